package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRateLimited is returned once an identifier exhausts its window budget.
var ErrRateLimited = errors.New("rate limited")

const limiterKeyPrefix = "reset:attempts:"

// ResetLimiter is a fixed-window counter for reset requests shared across
// replicas: INCR plus an EXPIRE on the first hit of each window.
type ResetLimiter struct {
	client      redis.UniversalClient
	maxAttempts int
	window      time.Duration
}

func NewResetLimiter(client redis.UniversalClient, maxAttempts int, window time.Duration) *ResetLimiter {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &ResetLimiter{client: client, maxAttempts: maxAttempts, window: window}
}

// Allow counts an attempt and reports whether it fits the budget.
func (l *ResetLimiter) Allow(ctx context.Context, identifier string) error {
	key := limiterKeyPrefix + identifier
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	if count > int64(l.maxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Remaining reports how long until the identifier's window resets, floored
// at zero for unknown identifiers.
func (l *ResetLimiter) Remaining(ctx context.Context, identifier string) (time.Duration, error) {
	ttl, err := l.client.TTL(ctx, limiterKeyPrefix+identifier).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}
