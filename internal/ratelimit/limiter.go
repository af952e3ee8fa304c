package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/redmonkez12/contacts-api/internal/httputil"
	"github.com/redmonkez12/contacts-api/internal/logging"
)

// Limiter is a fixed-window request counter backed by Redis, so every
// service instance shares the same limit state. The window is enforced
// by INCR plus an EXPIRE set on the first hit; Redis guarantees the
// increment is atomic.
type Limiter struct {
	client *redis.Client
}

func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

// Allow counts a call for clientKey and reports whether it is within
// limit for the current window.
func (l *Limiter) Allow(ctx context.Context, clientKey string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf("ratelimit:%s", clientKey)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	// First hit in this window starts the clock
	if count == 1 {
		if err := l.client.Expire(ctx, key, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count <= int64(limit), nil
}

// Handler returns a middleware enforcing limit requests per window per
// client IP for the given purpose. If Redis is unavailable the request
// is let through; limiting is protection, not a correctness dependency.
func (l *Limiter) Handler(limit int, window time.Duration, purpose string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := logging.GetLoggerFromContext(r.Context())

			ip := ClientIP(r)
			allowed, err := l.Allow(r.Context(), purpose+":"+ip, limit, window)
			if err != nil {
				logger.Error("failed to check rate limit", "purpose", purpose, "error", err)
			} else if !allowed {
				logger.Warn("rate limit exceeded", "purpose", purpose, "ip", ip)
				httputil.RespondErrorWithCode(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP extracts the caller's IP. RemoteAddr already reflects
// X-Forwarded-For when the RealIP middleware runs earlier in the chain.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
