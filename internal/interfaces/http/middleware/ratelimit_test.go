package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dee-studio/internal/interfaces/http/middleware"
)

type fakeLimiter struct {
	allowFn     func(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	remainingFn func(ctx context.Context, key string, limit int, window time.Duration) (int, error)
}

func (l *fakeLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return l.allowFn(ctx, key, limit, window)
}

func (l *fakeLimiter) Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error) {
	if l.remainingFn == nil {
		return 0, nil
	}
	return l.remainingFn(ctx, key, limit, window)
}

func rateLimitEngine(cfg middleware.RateLimitConfig, limiter middleware.RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/sdxl/generate", middleware.RateLimit(cfg, limiter), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return engine
}

func TestRateLimitAllowedSetsQuotaHeaders(t *testing.T) {
	limiter := &fakeLimiter{
		allowFn: func(_ context.Context, _ string, _ int, _ time.Duration) (bool, error) {
			return true, nil
		},
		remainingFn: func(_ context.Context, _ string, _ int, _ time.Duration) (int, error) {
			return 7, nil
		},
	}
	engine := rateLimitEngine(middleware.RateLimitConfig{Enabled: true, RequestsPerMinute: 10}, limiter)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sdxl/generate", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "7", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimitDenied(t *testing.T) {
	limiter := &fakeLimiter{
		allowFn: func(_ context.Context, _ string, _ int, _ time.Duration) (bool, error) {
			return false, nil
		},
	}
	engine := rateLimitEngine(middleware.RateLimitConfig{Enabled: true, RequestsPerMinute: 10}, limiter)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sdxl/generate", nil))

	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "1006")
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimitFailsOpenOnLimiterError(t *testing.T) {
	limiter := &fakeLimiter{
		allowFn: func(_ context.Context, _ string, _ int, _ time.Duration) (bool, error) {
			return false, errors.New("redis: connection refused")
		},
	}
	engine := rateLimitEngine(middleware.RateLimitConfig{Enabled: true, RequestsPerMinute: 10}, limiter)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sdxl/generate", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimitDisabledSkipsLimiter(t *testing.T) {
	limiter := &fakeLimiter{
		allowFn: func(_ context.Context, _ string, _ int, _ time.Duration) (bool, error) {
			t.Fatal("limiter must not be called")
			return false, nil
		},
	}
	engine := rateLimitEngine(middleware.RateLimitConfig{Enabled: false}, limiter)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sdxl/generate", nil))

	require.Equal(t, http.StatusOK, w.Code)
}
