package usage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	burstKeyPrefix = "usage:burst:"
	windowDuration = 60 * time.Second
	keyTTL         = 90 * time.Second
)

// RateLimiter is a Redis sorted-set sliding window capping how many paid
// generations one account may start per minute, on top of the monthly quota.
type RateLimiter struct {
	rdb redis.Cmdable
}

// NewRateLimiter creates a new Redis-based burst limiter.
func NewRateLimiter(rdb redis.Cmdable) *RateLimiter {
	return &RateLimiter{rdb: rdb}
}

// CheckAndIncrement records one generation start and returns true when the
// account is still under maxPerMinute; it returns false without recording
// anything otherwise.
func (rl *RateLimiter) CheckAndIncrement(ctx context.Context, accountID uuid.UUID, maxPerMinute int) (bool, error) {
	key := burstKeyPrefix + accountID.String()
	now := time.Now()
	windowStart := float64(now.Add(-windowDuration).UnixMilli())

	pipe := rl.rdb.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatFloat(windowStart, 'f', 0, 64))
	countCmd := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("burst limiter pipeline (clean+count): %w", err)
	}

	count := countCmd.Val()
	if count >= int64(maxPerMinute) {
		return false, nil
	}

	pipe2 := rl.rdb.Pipeline()
	member := fmt.Sprintf("%d:%d", now.UnixNano(), count)
	pipe2.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMilli()), Member: member})
	pipe2.Expire(ctx, key, keyTTL)
	if _, err := pipe2.Exec(ctx); err != nil {
		return false, fmt.Errorf("burst limiter pipeline (add): %w", err)
	}

	return true, nil
}

// GetMinuteUsage returns the number of generation starts in the current window.
func (rl *RateLimiter) GetMinuteUsage(ctx context.Context, accountID uuid.UUID) (int, error) {
	key := burstKeyPrefix + accountID.String()
	now := time.Now()
	windowStart := strconv.FormatFloat(float64(now.Add(-windowDuration).UnixMilli()), 'f', 0, 64)
	windowEnd := strconv.FormatFloat(float64(now.UnixMilli()), 'f', 0, 64)

	count, err := rl.rdb.ZCount(ctx, key, windowStart, windowEnd).Result()
	if err != nil {
		return 0, fmt.Errorf("getting minute usage: %w", err)
	}
	return int(count), nil
}
