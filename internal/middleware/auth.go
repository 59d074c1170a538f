package middleware

import (
	"net/http"

	"github.com/rainbowtourguides/backend/internal/auth"
	"github.com/rainbowtourguides/backend/internal/domain"
)

// RequireRole authorizes each request once and stores the actor in the
// request context for handlers (see auth.ActorFrom). An empty roles list
// admits any authenticated caller; admins pass every role check.
func RequireRole(v auth.Verifier, roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch d := auth.Authorize(r, v, roles...).(type) {
			case auth.Authorized:
				next.ServeHTTP(w, r.WithContext(auth.WithActor(r.Context(), d.Actor)))
			case auth.Unauthenticated:
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				writeError(w, http.StatusUnauthorized, "unauthenticated", d.Reason)
			case auth.Forbidden:
				writeError(w, http.StatusForbidden, "forbidden", d.Reason)
			default:
				writeError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
			}
		})
	}
}
