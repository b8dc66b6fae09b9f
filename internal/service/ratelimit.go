package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/proctored-mcq/internal/config"
)

// RateLimiter is a fixed-window counter shared by every server instance.
type RateLimiter struct {
	rdb *redis.Client
}

// NewRateLimiter creates a RateLimiter.
func NewRateLimiter(rdb *redis.Client) *RateLimiter {
	return &RateLimiter{rdb: rdb}
}

// Allow counts one hit for identifier and reports whether it is within limit
// for the current window. The window starts at the first hit.
func (l *RateLimiter) Allow(ctx context.Context, identifier string, limit int, window time.Duration) (bool, error) {
	key := config.CacheKey.RateLimitKey(identifier)
	n, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	return n <= int64(limit), nil
}
