package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/corpsite-backoffice/internal/domain"
	"github.com/corpsite-backoffice/internal/pkg/validate"
)

// Envelope is the response wrapper used by every endpoint.
type Envelope struct {
	Success    bool                  `json:"success"`
	Data       interface{}           `json:"data,omitempty"`
	Error      string                `json:"error,omitempty"`
	Message    string                `json:"message,omitempty"`
	Details    []validate.FieldError `json:"details,omitempty"`
	Pagination *Pagination           `json:"pagination,omitempty"`
}

type Pagination struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Envelope{Success: true, Message: msg})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Envelope{Error: msg})
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "잘못된 요청 형식입니다")
		return false
	}
	return true
}

// httpError maps a service error to a status code and envelope. Unclassified
// errors are logged and answered with a generic message.
func httpError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *validate.Error
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, Envelope{Error: "입력값을 확인해주세요", Details: ve.Fields})
		return
	}
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, clientMessage(err, domain.ErrBadRequest))
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, clientMessage(err, domain.ErrUnauthorized))
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, clientMessage(err, domain.ErrForbidden))
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "요청한 항목을 찾을 수 없습니다")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, clientMessage(err, domain.ErrConflict))
	default:
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "서버 오류가 발생했습니다")
	}
}

// clientMessage strips the sentinel suffix from a wrapped domain error,
// e.g. "유효하지 않은 상태 값입니다: invalid input" becomes "유효하지 않은 상태 값입니다".
func clientMessage(err, sentinel error) string {
	msg := err.Error()
	suffix := ": " + sentinel.Error()
	if len(msg) > len(suffix) && msg[len(msg)-len(suffix):] == suffix {
		return msg[:len(msg)-len(suffix)]
	}
	return msg
}
