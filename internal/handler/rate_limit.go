package handler

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/hrms-identity/internal/domain"
	"github.com/prperemyshlev/hrms-identity/internal/dto"
	"go.uber.org/zap"
)

// Limiter is the subset of service.RateLimiter the middleware needs
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (time.Duration, error)
	Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error)
}

// RateLimitMiddleware limits requests per key over a sliding window. When the
// limiter itself fails the request is let through and the failure logged.
func RateLimitMiddleware(limiter Limiter, limit int, window time.Duration, keyFunc func(*gin.Context) string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))

		retryAfter, err := limiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			if errors.Is(err, domain.ErrRateLimited) {
				c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				c.Header("X-RateLimit-Remaining", "0")
				c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.ErrorResponse{
					Error:   "Too Many Requests",
					Message: domain.ErrRateLimited.Error(),
				})
				return
			}

			logger.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		if remaining, err := limiter.Remaining(c.Request.Context(), key, limit, window); err == nil {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		}

		c.Next()
	}
}

// RouteIPKey limits each client IP separately on every route
func RouteIPKey(c *gin.Context) string {
	return c.FullPath() + ":" + c.ClientIP()
}
