package middleware

import (
	"net/http"
)

// NoStore marks every response as uncacheable. Responses that carry bearer
// tokens or profile data must never be held by shared caches.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		next.ServeHTTP(w, r)
	})
}
