package middleware

import (
	"context"
	"net/http"
	"time"
)

// Deadline bounds each request's context by d. Unlike chi's Timeout it never
// writes a status itself: handlers see the expired context and answer with
// their own error body.
func Deadline(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
