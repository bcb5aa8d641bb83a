// Package ratelimit throttles public endpoints with fixed windows kept in
// Redis, so limits hold across every API instance.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result describes a single limiter decision
type Result struct {
	Allowed   bool
	Count     int
	Limit     int
	ResetAt   time.Time
	Remaining int
}

// RateLimiter counts requests per key and window
type RateLimiter struct {
	redis *redis.Client
	now   func() time.Time
}

// NewRateLimiter connects to redisURL and checks the connection
func NewRateLimiter(ctx context.Context, redisURL string) (*RateLimiter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RateLimiter{redis: client, now: time.Now}, nil
}

// Allow counts one request for key in the current window
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	now := rl.now()
	windowKey, resetAt := windowKey(key, now, window)

	pipe := rl.redis.Pipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	count := int(incr.Val())
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   count <= limit,
		Count:     count,
		Limit:     limit,
		ResetAt:   resetAt,
		Remaining: remaining,
	}, nil
}

// Close closes the Redis connection
func (rl *RateLimiter) Close() error {
	return rl.redis.Close()
}

// windowKey names the bucket now falls into and when it resets
func windowKey(key string, now time.Time, window time.Duration) (string, time.Time) {
	size := int64(window / time.Second)
	if size < 1 {
		size = 1
	}
	bucket := now.Unix() / size
	return fmt.Sprintf("ratelimit:%s:%d", key, bucket), time.Unix((bucket+1)*size, 0)
}
