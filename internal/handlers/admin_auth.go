package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/kongrex/regdesk/internal/config"
)

// RequireAdmin guards the /api/admin routes with a shared token. Full
// session and role management lives in the upstream identity service; this
// middleware only keeps the back-office API off the public surface.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := config.AdminToken()
		if token == "" {
			fail(w, http.StatusServiceUnavailable, "admin access not configured")
			return
		}
		got := r.Header.Get("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			fail(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
