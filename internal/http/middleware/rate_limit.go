package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/verimart/verimart/internal/http/response"
	"github.com/verimart/verimart/pkg/logger"
)

// RateLimitStore is a counting backend; the Redis implementation lives in
// internal/repo/redis.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit throttles requests per client IP (plus the authenticated
// username when present) within a fixed window. Backend failures fail open:
// throttling is protection, not a correctness gate.
func RateLimit(store RateLimitStore, prefix string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := prefix + ":" + getClientIP(r)
			if username := Username(r); username != "" {
				key = prefix + ":" + username
			}

			allowed, err := store.Allow(r.Context(), key, limit, window)
			if err != nil {
				logger.ErrorContext(r.Context(), "Rate limit check failed", "error", err)
			} else if !allowed {
				response.RateLimit(w, "Too many requests. Try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP extracts the real client IP from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
