package middleware

import (
	"net/http"
)

// RequireAdmin allows only callers whose stored role is admin. It must run
// after Auth; the role is read from the user record Auth loaded, not from
// token claims, so demotions take effect immediately.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := UserFromContext(r.Context())
		if u == nil {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !u.IsAdmin() {
			writeJSONError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
