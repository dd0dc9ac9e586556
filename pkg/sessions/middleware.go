package sessions

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey string

const identityKey contextKey = "login_identity"

// Middleware resolves the Authorization header against the registry and
// stores the identity in the request context. Requests without a live
// session get 401.
func Middleware(registry *Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := registry.Lookup(r.Context(), r.Header.Get("Authorization"))
			if !ok {
				slog.Debug("No live session for request", "path", r.URL.Path)
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin returns 403 unless the caller holds an admin role.
// Must be used after Middleware.
func RequireAdmin(registry *Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !registry.IsAdmin(r.Context(), r.Header.Get("Authorization")) {
				identity, _ := IdentityFromContext(r.Context())
				slog.Warn("User lacks admin role", "id", identity.ID, "role", identity.Role)
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}
