package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/hrms-identity/internal/domain"
	"github.com/prperemyshlev/hrms-identity/pkg/database"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiter is a sliding-window log over a Redis sorted set
type RateLimiter struct {
	redis  *database.Redis
	logger *zap.Logger
	now    func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redis *database.Redis, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		redis:  redis,
		logger: logger.With(zap.String("component", "rate_limiter")),
		now:    time.Now,
	}
}

// Allow records a hit for key. When limit hits already fall inside window it
// returns an error matching domain.ErrRateLimited and the time until the oldest
// hit leaves the window.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (time.Duration, error) {
	now := r.now()
	windowStart := now.Add(-window)
	redisKey := fmt.Sprintf("ratelimit:%s", key)

	if err := r.redis.Client.ZRemRangeByScore(ctx, redisKey, "-inf", strconv.FormatInt(windowStart.UnixMilli(), 10)).Err(); err != nil {
		return 0, fmt.Errorf("failed to clean old entries: %w", err)
	}

	count, err := r.redis.Client.ZCard(ctx, redisKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}

	if count >= int64(limit) {
		retryAfter := window
		oldest, err := r.redis.Client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
		if err == nil && len(oldest) > 0 {
			oldestAt := time.UnixMilli(int64(oldest[0].Score))
			retryAfter = window - now.Sub(oldestAt)
		}
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return retryAfter, fmt.Errorf("%w, try again in %v", domain.ErrRateLimited, retryAfter.Round(time.Second))
	}

	err = r.redis.Client.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: uuid.NewString(),
	}).Err()
	if err != nil {
		return 0, fmt.Errorf("failed to add entry: %w", err)
	}

	if err := r.redis.Client.Expire(ctx, redisKey, window+time.Minute).Err(); err != nil {
		r.logger.Warn("failed to set rate limit key expiry", zap.String("key", redisKey), zap.Error(err))
	}

	return 0, nil
}

// Remaining returns how many more hits key may make inside window
func (r *RateLimiter) Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error) {
	windowStart := r.now().Add(-window)
	redisKey := fmt.Sprintf("ratelimit:%s", key)

	if err := r.redis.Client.ZRemRangeByScore(ctx, redisKey, "-inf", strconv.FormatInt(windowStart.UnixMilli(), 10)).Err(); err != nil {
		return 0, fmt.Errorf("failed to clean old entries: %w", err)
	}

	count, err := r.redis.Client.ZCard(ctx, redisKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}

	return max(limit-int(count), 0), nil
}
