package handler

import (
	"net/http"
	"strconv"

	"github.com/corpsite-backoffice/internal/application/inquiry"
	"github.com/corpsite-backoffice/internal/domain"
	"github.com/go-chi/chi/v5"
)

// InquiryHandler serves the admin inquiry endpoints.
type InquiryHandler struct {
	svc inquiry.Service
}

func NewInquiryHandler(svc inquiry.Service) *InquiryHandler { return &InquiryHandler{svc: svc} }

func (h *InquiryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.InquiryFilter{
		Status: domain.InquiryStatus(q.Get("status")),
		Limit:  queryInt(q.Get("limit"), inquiry.DefaultListLimit),
		Offset: queryInt(q.Get("offset"), 0),
	}
	items, total, err := h.svc.List(r.Context(), f)
	if err != nil {
		httpError(w, r, err)
		return
	}
	if items == nil {
		items = []domain.Inquiry{}
	}
	limit := f.Limit
	if limit <= 0 {
		limit = inquiry.DefaultListLimit
	}
	writeJSON(w, http.StatusOK, Envelope{
		Success:    true,
		Data:       items,
		Pagination: &Pagination{Total: total, Limit: min(limit, inquiry.MaxListLimit), Offset: f.Offset},
	})
}

func (h *InquiryHandler) Get(w http.ResponseWriter, r *http.Request) {
	inq, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, inq)
}

func (h *InquiryHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateInquiryStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	inq, err := h.svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: inq, Message: "상태가 변경되었습니다"})
}

func (h *InquiryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "문의가 삭제되었습니다")
}

// queryInt parses a non-negative integer query value, falling back to def.
func queryInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

type statusOption struct {
	Value domain.InquiryStatus `json:"value"`
	Label string               `json:"label"`
}

// Statuses lists the inquiry statuses an admin may set, in display order.
func (h *InquiryHandler) Statuses(w http.ResponseWriter, _ *http.Request) {
	out := make([]statusOption, len(domain.InquiryStatuses))
	for i, s := range domain.InquiryStatuses {
		out[i] = statusOption{Value: s, Label: s.Label()}
	}
	writeData(w, http.StatusOK, out)
}
