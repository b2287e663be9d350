package handler

import (
	"net/http"

	"github.com/corpsite-backoffice/internal/application/profile"
	"github.com/corpsite-backoffice/internal/domain"
	"github.com/go-chi/chi/v5"
)

type ProfileHandler struct {
	svc profile.Service
}

func NewProfileHandler(svc profile.Service) *ProfileHandler { return &ProfileHandler{svc: svc} }

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (h *ProfileHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.SetRole(r.Context(), chi.URLParam(r, "id"), req.Role)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: p, Message: "권한이 변경되었습니다"})
}
