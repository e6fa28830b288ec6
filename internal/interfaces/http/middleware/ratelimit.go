package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dee-studio/internal/infrastructure/persistence/redis"
	"dee-studio/pkg/errors"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// Enabled 是否启用限流
	Enabled bool
	// RequestsPerMinute 每分钟允许的生成请求数
	RequestsPerMinute int
}

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error)
}

// RateLimit 生成端点限流中间件，按客户端 IP 计数
// 限流器故障时放行，限流是保护手段而非前置依赖
func RateLimit(cfg RateLimitConfig, limiter RateLimiter) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 10
	}

	return func(c *gin.Context) {
		key := redis.BuildClientRateLimitKey(c.ClientIP(), c.FullPath())

		allowed, err := limiter.Allow(c.Request.Context(), key, cfg.RequestsPerMinute, time.Minute)
		if err != nil {
			c.Next()
			return
		}

		// 配额响应头，限流器故障时省略
		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerMinute))
		if remaining, rerr := limiter.Remaining(c.Request.Context(), key, cfg.RequestsPerMinute, time.Minute); rerr == nil {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    errors.CodeTooManyRequests,
				"message": "rate limit exceeded",
				"detail":  "generation is rate limited, please retry later",
			})
			return
		}

		c.Next()
	}
}
