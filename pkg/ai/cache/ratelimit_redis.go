package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter shares window counters across processes via Redis.
// Counters live under ratelimit:{scope}:{window}:{bucket} with an
// expiry slightly past the window so stale buckets clean themselves up.
type RedisRateLimiter struct {
	client *redis.Client
	limits Limits
	now    func() time.Time
}

var _ RateLimiter = &RedisRateLimiter{}

func NewRedisRateLimiter(client *redis.Client, limits Limits) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		limits: limits,
		now:    time.Now,
	}
}

type redisCheck struct {
	key    string
	limit  int
	window time.Duration
}

func (r *RedisRateLimiter) checks(userID string, now time.Time) []redisCheck {
	minuteBucket := now.Unix() / 60
	hourBucket := now.Unix() / 3600
	dayBucket := now.Unix() / 86400

	return []redisCheck{
		{fmt.Sprintf("ratelimit:user:%s:minute:%d", userID, minuteBucket), r.limits.UserPerMinute, time.Minute},
		{fmt.Sprintf("ratelimit:user:%s:hour:%d", userID, hourBucket), r.limits.UserPerHour, time.Hour},
		{fmt.Sprintf("ratelimit:user:%s:day:%d", userID, dayBucket), r.limits.UserPerDay, 24 * time.Hour},
		{fmt.Sprintf("ratelimit:global:minute:%d", minuteBucket), r.limits.GlobalPerMinute, time.Minute},
		{fmt.Sprintf("ratelimit:global:hour:%d", hourBucket), r.limits.GlobalPerHour, time.Hour},
		{fmt.Sprintf("ratelimit:global:day:%d", dayBucket), r.limits.GlobalPerDay, 24 * time.Hour},
	}
}

// Allow reads every applicable counter, rejects if any is at ceiling,
// and otherwise increments them all in one pipeline. The read/increment
// pair is not transactional; a burst racing the check can overshoot a
// ceiling by the number of in-flight requests, which is acceptable for
// throttling purposes.
func (r *RedisRateLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	now := r.now()
	checks := r.checks(userID, now)

	keys := make([]string, len(checks))
	for i, check := range checks {
		keys[i] = check.key
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit read: %w", err)
	}

	for i, raw := range values {
		if checks[i].limit <= 0 || raw == nil {
			continue
		}
		count := 0
		if s, ok := raw.(string); ok {
			fmt.Sscanf(s, "%d", &count)
		}
		if count >= checks[i].limit {
			return false, nil
		}
	}

	pipe := r.client.TxPipeline()
	for _, check := range checks {
		pipe.Incr(ctx, check.key)
		pipe.Expire(ctx, check.key, check.window+time.Minute)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit increment: %w", err)
	}

	return true, nil
}
