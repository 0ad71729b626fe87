package httpx

import (
	"context"
	"net/http"
	"time"
)

// Timeout bounds the request context. Store and mail calls take the request
// context, so a stuck backend fails the request instead of holding it open.
// Handlers still write their own response when the deadline passes.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
