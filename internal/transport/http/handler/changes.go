package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/corpsite-backoffice/internal/application/authgate"
	"github.com/corpsite-backoffice/internal/transport/http/middleware"
	"github.com/gorilla/websocket"
)

const recheckTimeout = 5 * time.Second

// ChangeStream serves one WebSocket connection until the peer goes away or
// authorized reports false.
type ChangeStream interface {
	Serve(conn *websocket.Conn, userID string, authorized func() bool)
}

// Rechecker re-resolves an identity admitted earlier.
type Rechecker interface {
	Recheck(ctx context.Context, id authgate.Identity) authgate.Identity
}

// ChangesHandler upgrades admin requests to the inquiry change stream.
type ChangesHandler struct {
	hub      ChangeStream
	gate     Rechecker
	upgrader websocket.Upgrader
}

func NewChangesHandler(hub ChangeStream, gate Rechecker, allowedOrigins []string) *ChangesHandler {
	return &ChangesHandler{
		hub:  hub,
		gate: gate,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func (h *ChangesHandler) Stream(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		slog.WarnContext(r.Context(), "websocket upgrade failed", "err", err)
		return
	}
	var userID string
	if id.User != nil {
		userID = id.User.ID
	}
	h.hub.Serve(conn, userID, h.stillAdmin(id))
}

// stillAdmin reports whether id keeps admin access. A signed-out session or a
// demoted profile ends the stream.
func (h *ChangesHandler) stillAdmin(id authgate.Identity) func() bool {
	if h.gate == nil {
		return nil
	}
	return func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), recheckTimeout)
		defer cancel()
		return h.gate.Recheck(ctx, id).IsAdmin
	}
}

// originChecker accepts requests without an Origin header (non-browser clients),
// any origin when "*" is configured, and otherwise only listed origins.
func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.ToLower(o)] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.ToLower(origin)]
		return ok
	}
}
