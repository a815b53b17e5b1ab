package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/alex-user-go/travelgw/internal/obs"
)

// Limiter decides whether a request keyed by client IP may proceed.
type Limiter interface {
	Allow(key string) bool
}

// RateLimit rejects requests over the per-IP budget with a JSON 429.
func RateLimit(limiter Limiter, metrics *obs.Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			if !limiter.Allow(ip) {
				metrics.IncRateLimited()
				logger.Warn("rate limit exceeded", "request_id", RequestID(r.Context()), "ip", ip)
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP extracts the client IP from the request.
// Checks X-Forwarded-For, X-Real-IP, then falls back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
