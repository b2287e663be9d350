package handler

import (
	"net/http"

	"github.com/corpsite-backoffice/internal/application/inquiry"
	"github.com/corpsite-backoffice/internal/domain"
)

// ContactHandler accepts the public contact form.
type ContactHandler struct {
	svc inquiry.Service
}

func NewContactHandler(svc inquiry.Service) *ContactHandler { return &ContactHandler{svc: svc} }

func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req domain.ContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	inq, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Envelope{
		Success: true,
		Data:    inq,
		Message: "문의가 성공적으로 접수되었습니다",
	})
}
