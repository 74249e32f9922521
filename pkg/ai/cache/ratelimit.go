package cache

import (
	"context"
	"sync"
	"time"
)

// Limits holds the ceilings for each window. A zero ceiling disables
// that window's check.
type Limits struct {
	UserPerMinute int
	UserPerHour   int
	UserPerDay    int

	GlobalPerMinute int
	GlobalPerHour   int
	GlobalPerDay    int
}

// DefaultLimits mirrors the production ceilings
func DefaultLimits() Limits {
	return Limits{
		UserPerMinute:   20,
		UserPerHour:     200,
		UserPerDay:      1000,
		GlobalPerMinute: 200,
		GlobalPerHour:   2000,
		GlobalPerDay:    10000,
	}
}

// RateLimiter rejects requests once any applicable window counter is
// at its ceiling. Requests are rejected, never queued.
type RateLimiter interface {
	Allow(ctx context.Context, userID string) (bool, error)
}

type windowCounter struct {
	count     int
	windowEnd time.Time
}

// reset lazily zeroes the counter once its window has passed
func (w *windowCounter) reset(now time.Time, window time.Duration) {
	if !now.Before(w.windowEnd) {
		w.count = 0
		w.windowEnd = now.Truncate(window).Add(window)
	}
}

type userCounters struct {
	minute windowCounter
	hour   windowCounter
	day    windowCounter
}

// MemoryRateLimiter keeps rolling counters in process memory.
// Suitable for a single-process deployment; multi-process deployments
// should use the Redis-backed limiter so increments stay atomic.
type MemoryRateLimiter struct {
	mu     sync.Mutex
	limits Limits
	users  map[string]*userCounters
	global userCounters
	now    func() time.Time
}

var _ RateLimiter = &MemoryRateLimiter{}

func NewMemoryRateLimiter(limits Limits) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		limits: limits,
		users:  make(map[string]*userCounters),
		now:    time.Now,
	}
}

// Allow checks every applicable window and, if all pass, consumes one
// slot from each. A rejected request consumes nothing.
func (r *MemoryRateLimiter) Allow(_ context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	uc, ok := r.users[userID]
	if !ok {
		uc = &userCounters{}
		r.users[userID] = uc
	}

	uc.minute.reset(now, time.Minute)
	uc.hour.reset(now, time.Hour)
	uc.day.reset(now, 24*time.Hour)
	r.global.minute.reset(now, time.Minute)
	r.global.hour.reset(now, time.Hour)
	r.global.day.reset(now, 24*time.Hour)

	checks := []struct {
		counter *windowCounter
		limit   int
	}{
		{&uc.minute, r.limits.UserPerMinute},
		{&uc.hour, r.limits.UserPerHour},
		{&uc.day, r.limits.UserPerDay},
		{&r.global.minute, r.limits.GlobalPerMinute},
		{&r.global.hour, r.limits.GlobalPerHour},
		{&r.global.day, r.limits.GlobalPerDay},
	}

	for _, check := range checks {
		if check.limit > 0 && check.counter.count >= check.limit {
			return false, nil
		}
	}

	for _, check := range checks {
		check.counter.count++
	}
	return true, nil
}

// SetClock overrides the limiter clock. Test hook.
func (r *MemoryRateLimiter) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}
