package handler

import (
	"net/http"

	"github.com/corpsite-backoffice/internal/application/notice"
	"github.com/corpsite-backoffice/internal/domain"
	"github.com/corpsite-backoffice/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// NoticeHandler serves public and admin notice endpoints.
type NoticeHandler struct {
	svc notice.Service
}

func NewNoticeHandler(svc notice.Service) *NoticeHandler { return &NoticeHandler{svc: svc} }

// List returns published notices.
func (h *NoticeHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

// AdminList includes drafts.
func (h *NoticeHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *NoticeHandler) list(w http.ResponseWriter, r *http.Request, includeDrafts bool) {
	items, err := h.svc.List(r.Context(), domain.NoticeListOptions{
		Category:      r.URL.Query().Get("category"),
		IncludeDrafts: includeDrafts,
	})
	if err != nil {
		httpError(w, r, err)
		return
	}
	if items == nil {
		items = []domain.Notice{}
	}
	writeData(w, http.StatusOK, items)
}

// Get returns a published notice and counts the view.
func (h *NoticeHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.get(w, r, false)
}

// AdminGet returns any notice without counting a view.
func (h *NoticeHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	h.get(w, r, true)
}

func (h *NoticeHandler) get(w http.ResponseWriter, r *http.Request, includeDrafts bool) {
	n, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"), includeDrafts)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, n)
}

func (h *NoticeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateNoticeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Author == "" {
		if p := middleware.IdentityFromContext(r.Context()).Profile; p != nil {
			req.Author = p.FullName
		}
	}
	n, err := h.svc.Create(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Envelope{Success: true, Data: n, Message: "공지사항이 등록되었습니다"})
}

func (h *NoticeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateNoticeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: n, Message: "공지사항이 수정되었습니다"})
}

func (h *NoticeHandler) SetPublished(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Published *bool `json:"published"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Published == nil {
		writeError(w, http.StatusBadRequest, "published 항목은 필수입니다")
		return
	}
	n, err := h.svc.SetPublished(r.Context(), chi.URLParam(r, "id"), *req.Published)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, n)
}

func (h *NoticeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "공지사항이 삭제되었습니다")
}
