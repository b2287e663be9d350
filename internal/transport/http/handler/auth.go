package handler

import (
	"net/http"
	"time"

	"github.com/corpsite-backoffice/internal/application/session"
	"github.com/corpsite-backoffice/internal/domain"
	"github.com/corpsite-backoffice/internal/transport/http/middleware"
)

// CookieOptions controls the access token cookie.
type CookieOptions struct {
	Name   string
	Secure bool
}

// AuthHandler serves the admin sign-in endpoints.
type AuthHandler struct {
	svc    session.Service
	cookie CookieOptions
}

func NewAuthHandler(svc session.Service, cookie CookieOptions) *AuthHandler {
	return &AuthHandler{svc: svc, cookie: cookie}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Login(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	h.setCookie(w, res.AccessToken, time.Duration(res.ExpiresIn)*time.Second)
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: res, Message: "로그인되었습니다"})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	if err := h.svc.Logout(r.Context(), id.SessionID); err != nil {
		httpError(w, r, err)
		return
	}
	h.setCookie(w, "", -1)
	writeMessage(w, http.StatusOK, "로그아웃되었습니다")
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.Register(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Envelope{Success: true, Data: p, Message: "관리자 계정이 생성되었습니다"})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token 항목은 필수입니다")
		return
	}
	tok, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httpError(w, r, err)
		return
	}
	h.setCookie(w, tok.AccessToken, time.Duration(tok.ExpiresIn)*time.Second)
	writeData(w, http.StatusOK, tok)
}

// Session reports the resolved identity. Anonymous callers get a successful
// response with every flag false.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, middleware.IdentityFromContext(r.Context()))
}

// setCookie writes the access token cookie; a negative ttl clears it.
func (h *AuthHandler) setCookie(w http.ResponseWriter, value string, ttl time.Duration) {
	c := &http.Cookie{
		Name:     h.cookie.Name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl < 0 {
		c.MaxAge = -1
	} else {
		c.MaxAge = int(ttl / time.Second)
	}
	http.SetCookie(w, c)
}
