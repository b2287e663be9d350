package middleware

import (
	"context"
	"net/http"

	"github.com/corpsite-backoffice/internal/application/authgate"
)

type contextKey string

const identityKey contextKey = "identity"

// Resolver turns request credentials into an identity. It must not fail.
type Resolver interface {
	Resolve(r *http.Request) authgate.Identity
}

// Identify resolves the caller once and stores the identity in the request context.
func Identify(gate Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := gate.Resolve(r)
			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the identity stored by Identify, or an anonymous one.
func IdentityFromContext(ctx context.Context) authgate.Identity {
	id, _ := ctx.Value(identityKey).(authgate.Identity)
	return id
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id authgate.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// RequireAuth rejects anonymous callers with 401.
func RequireAuth(next http.Handler) http.Handler {
	return guard(func(id authgate.Identity) bool { return true }, next)
}

// RequireAdmin allows admin and super_admin callers.
func RequireAdmin(next http.Handler) http.Handler {
	return guard(func(id authgate.Identity) bool { return id.IsAdmin }, next)
}

// RequireSuperAdmin allows super_admin callers only.
func RequireSuperAdmin(next http.Handler) http.Handler {
	return guard(func(id authgate.Identity) bool { return id.IsSuperAdmin }, next)
}

func guard(allowed func(authgate.Identity) bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := IdentityFromContext(r.Context())
		if !id.IsAuthenticated {
			writeJSONError(w, http.StatusUnauthorized, "인증이 필요합니다")
			return
		}
		if !allowed(id) {
			writeJSONError(w, http.StatusForbidden, "권한이 없습니다")
			return
		}
		next.ServeHTTP(w, r)
	})
}
