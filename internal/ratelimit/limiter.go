// Package ratelimit counts requests per client IP in Redis fixed windows.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter allows at most max requests per key within each window
type Limiter struct {
	client *redis.Client
	max    int
	window time.Duration
}

func NewLimiter(client *redis.Client, max int, window time.Duration) *Limiter {
	return &Limiter{client: client, max: max, window: window}
}

// getIPKey generates the Redis key for an IP counter
func getIPKey(ip, purpose string) string {
	return fmt.Sprintf("rate_limit:%s:%s", purpose, ip)
}

// CheckIPRateLimitWithPurpose reports whether ip already used up its window for purpose
func (l *Limiter) CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error) {
	count, err := l.client.Get(ctx, getIPKey(ip, purpose)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read rate limit counter: %w", err)
	}

	return count >= l.max, nil
}

// RecordIPRequestWithPurpose counts one request. The window starts with the
// first request and is not extended by later ones. The counter and its expiry
// are written in one MULTI so a counter can never outlive its window.
func (l *Limiter) RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error {
	key := getIPKey(ip, purpose)

	pipe := l.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, l.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record request: %w", err)
	}

	return nil
}
