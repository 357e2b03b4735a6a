package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/funnelreach/dispatch-backend/internal/auth"
	appErrors "github.com/funnelreach/dispatch-backend/internal/errors"
)

// Middleware rejects over-budget callers with 429 and a retryAfterSeconds
// hint before the handler runs. Identity is the authenticated executor when
// present, the caller IP otherwise.
func (l *Limiter) Middleware(class RouteClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := auth.ExecutorFromContext(r.Context())
			if identity == "" {
				identity = clientIP(r)
			}

			ok, retryAfter := l.Allow(class, identity)
			if !ok {
				rlErr := &appErrors.ErrRateLimited{RetryAfter: retryAfter}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error":             "rate limit exceeded",
					"retryAfterSeconds": rlErr.RetryAfterSeconds(),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
