package httpx

import (
	"net/http"
)

// RequireRole the caller must be authenticated with one of the listed roles.
// It relies on an earlier middleware having called ContextWithIdentity.
func RequireRole(roles ...string) Middleware {
	want := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		want[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := RoleFromContext(r.Context())
			if !ok {
				WriteBearerError(w, http.StatusUnauthorized, "ACCESS_TOKEN_MISSING", "authentication required")
				return
			}

			if _, ok := want[role]; !ok {
				WriteBearerError(w, http.StatusForbidden, "ACCESS_DENIED", "access denied")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
