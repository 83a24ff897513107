// Package throttle limits how often a keyed action may happen.
package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisThrottle admits one action per key per window using SET NX with a TTL.
type RedisThrottle struct {
	client *redis.Client
	prefix string
}

// NewRedisThrottle creates a throttle storing its markers under prefix.
func NewRedisThrottle(client *redis.Client, prefix string) *RedisThrottle {
	return &RedisThrottle{client: client, prefix: prefix}
}

// Allow reports whether the action for key may proceed now. A permitted call
// blocks further calls for the same key until window has passed.
func (t *RedisThrottle) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	if window <= 0 {
		return true, nil
	}

	ok, err := t.client.SetNX(ctx, t.prefix+key, 1, window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check throttle: %w", err)
	}
	return ok, nil
}

// RetryAfter returns how long until key is admitted again.
func (t *RedisThrottle) RetryAfter(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := t.client.TTL(ctx, t.prefix+key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read throttle ttl: %w", err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}
