package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter counts message publishes per identity in Redis. It is
// optional; with no Redis configured every publish is allowed.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRateLimiter connects to Redis and returns a publish rate limiter.
func NewRateLimiter(ctx context.Context, redisURL string, limit int, window time.Duration) (*RateLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RateLimiter{client: client, limit: limit, window: window}, nil
}

// Close closes the Redis connection.
func (l *RateLimiter) Close() error {
	if l == nil {
		return nil
	}
	return l.client.Close()
}

// Ping checks the Redis connection.
func (l *RateLimiter) Ping(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.client.Ping(ctx).Err()
}

func publishKey(userID int64, window time.Duration) string {
	bucket := time.Now().UnixMilli() / window.Milliseconds()
	return fmt.Sprintf("publish:%s:%d", strconv.FormatInt(userID, 10), bucket)
}

// Allow records one publish for the user and reports whether it is
// within the window limit. A nil limiter always allows; on Redis errors
// the publish is allowed rather than failing the chat action.
func (l *RateLimiter) Allow(ctx context.Context, userID int64) bool {
	if l == nil {
		return true
	}

	key := publishKey(userID, l.window)

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return true
	}

	return incr.Val() <= int64(l.limit)
}
