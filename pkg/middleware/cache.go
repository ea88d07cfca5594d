package middleware

import (
	"fmt"
	"net/http"
	"time"
)

// CacheControl marks anonymous GET responses as publicly cacheable for
// maxAge. Responses to signed-in callers carry viewer-specific fields and
// are marked private.
func CacheControl(maxAge time.Duration) func(http.Handler) http.Handler {
	public := fmt.Sprintf("public, max-age=%d", int(maxAge.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				if ClaimsFromContext(r.Context()) != nil {
					w.Header().Set("Cache-Control", "private, no-cache")
				} else {
					w.Header().Set("Cache-Control", public)
				}
				w.Header().Add("Vary", "Authorization")
			}
			next.ServeHTTP(w, r)
		})
	}
}
