// Package authgate resolves who is calling and what they may do.
package authgate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/corpsite-backoffice/internal/domain"
	jwtinfra "github.com/corpsite-backoffice/internal/infrastructure/jwt"
)

// Identity is the resolved caller. The zero value is an anonymous caller.
type Identity struct {
	User            *domain.AuthUser `json:"user"`
	Profile         *domain.Profile  `json:"profile"`
	SessionID       string           `json:"-"`
	IsAuthenticated bool             `json:"is_authenticated"`
	IsAdmin         bool             `json:"is_admin"`
	IsSuperAdmin    bool             `json:"is_super_admin"`
}

// NewIdentity derives the capability flags from user and profile.
func NewIdentity(user *domain.AuthUser, profile *domain.Profile) Identity {
	if user == nil {
		return Identity{}
	}
	return Identity{
		User:            user,
		Profile:         profile,
		IsAuthenticated: true,
		IsAdmin:         profile.IsAdmin(),
		IsSuperAdmin:    profile.IsSuperAdmin(),
	}
}

type Verifier interface {
	Verify(token string) (*jwtinfra.Claims, error)
}

type sessionStore interface {
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
}

type profileStore interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
}

type GateDeps struct {
	Verifier   Verifier
	Sessions   sessionStore
	Profiles   profileStore
	CookieName string
	Logger     *slog.Logger
}

// Gate resolves an Identity from request credentials. It never fails: any
// credential or session problem yields an anonymous identity, and a profile
// lookup failure yields an authenticated identity without admin capability.
type Gate struct {
	verifier   Verifier
	sessions   sessionStore
	profiles   profileStore
	cookieName string
	log        *slog.Logger
}

func NewGate(deps GateDeps) *Gate {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Gate{
		verifier:   deps.Verifier,
		sessions:   deps.Sessions,
		profiles:   deps.Profiles,
		cookieName: deps.CookieName,
		log:        log,
	}
}

func (g *Gate) Resolve(r *http.Request) Identity {
	raw := g.credential(r)
	if raw == "" {
		return Identity{}
	}
	return g.ResolveToken(r.Context(), raw)
}

// ResolveToken resolves an Identity from a raw access token.
func (g *Gate) ResolveToken(ctx context.Context, raw string) Identity {
	claims, err := g.verifier.Verify(raw)
	if err != nil {
		g.log.Debug("access token rejected", "err", err)
		return Identity{}
	}
	return g.resolveSession(ctx, claims.SessionID, claims.UserID, claims.Email)
}

// Recheck resolves id again from its server-side session. Long-lived connections
// use it to notice a sign-out or a role change after they were admitted.
func (g *Gate) Recheck(ctx context.Context, id Identity) Identity {
	if !id.IsAuthenticated || id.User == nil || id.SessionID == "" {
		return Identity{}
	}
	return g.resolveSession(ctx, id.SessionID, id.User.ID, id.User.Email)
}

func (g *Gate) resolveSession(ctx context.Context, sessionID, userID, email string) Identity {
	sess, err := g.sessions.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			g.log.Warn("session lookup failed", "session_id", sessionID, "err", err)
		}
		return Identity{}
	}
	if !sess.Enable || sess.UserID != userID {
		return Identity{}
	}

	user := &domain.AuthUser{ID: userID, Email: email}
	profile, err := g.profiles.Get(ctx, userID)
	if err != nil {
		g.log.Warn("profile lookup failed", "user_id", userID, "err", err)
		profile = nil
	}
	id := NewIdentity(user, profile)
	id.SessionID = sess.SessionID
	return id
}

// credential prefers an Authorization bearer token over the session cookie.
func (g *Gate) credential(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	if g.cookieName == "" {
		return ""
	}
	c, err := r.Cookie(g.cookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
