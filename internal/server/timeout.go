package server

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware bounds request duration by cancelling the request
// context. Handlers must observe ctx.Done(); nothing is forcibly killed.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
