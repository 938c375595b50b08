package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// RateLimitedError reports an exhausted request budget and how long until a
// retry can be admitted.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}

type LimiterRedis struct {
	instance *redis_rate.Limiter
}

func NewLimiterRedis(client redis.UniversalClient) *LimiterRedis {
	return &LimiterRedis{instance: redis_rate.NewLimiter(client)}
}

func (l *LimiterRedis) Allow(ctx context.Context, key string, limit redis_rate.Limit) error {
	res, err := l.instance.Allow(ctx, key, limit)
	if err != nil {
		return err
	}
	if res.Allowed == 0 {
		return &RateLimitedError{RetryAfter: res.RetryAfter}
	}
	return nil
}
