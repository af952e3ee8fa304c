package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewLimiter(client), mr
}

func TestAllow_WithinLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		allowed, err := limiter.Allow(ctx, "users_me:1.2.3.4", 10, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "call %d should be allowed", i+1)
	}

	allowed, err := limiter.Allow(ctx, "users_me:1.2.3.4", 10, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed, "call 11 should be rejected")
}

func TestAllow_WindowResets(t *testing.T) {
	limiter, mr := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 11; i++ {
		limiter.Allow(ctx, "users_me:1.2.3.4", 10, time.Minute)
	}

	mr.FastForward(61 * time.Second)

	allowed, err := limiter.Allow(ctx, "users_me:1.2.3.4", 10, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed, "new window should start fresh")
}

func TestAllow_IndependentKeys(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		limiter.Allow(ctx, "users_me:1.2.3.4", 10, time.Minute)
	}

	// A different client has its own counter
	allowed, err := limiter.Allow(ctx, "users_me:5.6.7.8", 10, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	// As does the same client on a different endpoint
	allowed, err = limiter.Allow(ctx, "login:1.2.3.4", 10, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestHandler_Returns429(t *testing.T) {
	limiter, _ := newTestLimiter(t)

	handler := limiter.Handler(2, time.Minute, "test")(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "1.2.3.4:5678"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "1.2.3.4:5678"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "too_many_requests")
}

func TestHandler_FailsOpenWhenRedisDown(t *testing.T) {
	limiter, mr := newTestLimiter(t)
	mr.Close()

	handler := limiter.Handler(1, time.Minute, "test")(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "1.2.3.4:5678"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	assert.Equal(t, "10.0.0.1", ClientIP(req))

	req.RemoteAddr = "10.0.0.2"
	assert.Equal(t, "10.0.0.2", ClientIP(req))
}
