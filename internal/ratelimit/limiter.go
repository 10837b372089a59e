package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// Limiter answers whether a request under the given key is within budget.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Result carries the limiter state exposed through response headers.
type Result struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   time.Time
}

// RedisLimiter enforces a fixed-window limit shared across instances.
type RedisLimiter struct {
	inner *limiter.Limiter
}

// NewRedisLimiter builds a Redis-backed limiter allowing max requests per window.
func NewRedisLimiter(client *redis.Client, prefix string, window time.Duration, max int) (*RedisLimiter, error) {
	store, err := limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: prefix,
	})
	if err != nil {
		return nil, err
	}
	rate := limiter.Rate{Period: window, Limit: int64(max)}
	return &RedisLimiter{inner: limiter.New(store, rate)}, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	c, err := l.inner.Get(ctx, key)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Allowed:   !c.Reached,
		Limit:     c.Limit,
		Remaining: c.Remaining,
		ResetAt:   time.Unix(c.Reset, 0),
	}, nil
}
