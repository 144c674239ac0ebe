package controller

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimit caps a route group at perMinute requests with a burst of one.
// Excess requests get 429.
func RateLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute < 1 {
		perMinute = 1
	}
	limiter := rate.NewLimiter(rate.Limit(float64(perMinute)/60), 1)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
