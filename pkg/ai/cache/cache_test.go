package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestCacheGetSet(t *testing.T) {
	c := New(10, time.Minute)

	c.Set("a", "value-a")

	got, ok := c.Get("a")
	if !ok {
		t.Fatal("expected hit for key a")
	}
	if got != "value-a" {
		t.Errorf("Get(a) = %v, want value-a", got)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestCacheLazyExpiry(t *testing.T) {
	c := New(10, time.Minute)

	now := time.Now()
	c.SetClock(func() time.Time { return now })
	c.Set("a", "value-a")

	// Still fresh
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected hit before ttl")
	}

	// Past ttl
	c.SetClock(func() time.Time { return now.Add(2 * time.Minute) })
	if _, ok := c.Get("a"); ok {
		t.Error("expected miss after ttl elapsed")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be removed on read, len = %d", c.Len())
	}
}

func TestCacheEvictionRemovesColdest20Percent(t *testing.T) {
	c := New(10, time.Minute)

	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("key-%d", i), i)
	}

	// Warm up everything except key-0 and key-1
	for i := 2; i < 10; i++ {
		for j := 0; j <= i; j++ {
			c.Get(fmt.Sprintf("key-%d", i))
		}
	}

	// Insert at capacity: 20% of 10 = 2 coldest entries must go
	c.Set("key-10", 10)

	if c.Len() != 9 {
		t.Fatalf("len = %d, want 9 (10 - 2 evicted + 1 inserted)", c.Len())
	}
	for _, cold := range []string{"key-0", "key-1"} {
		if _, ok := c.Get(cold); ok {
			t.Errorf("cold entry %s should have been evicted", cold)
		}
	}
	for i := 2; i < 10; i++ {
		if _, ok := c.Get(fmt.Sprintf("key-%d", i)); !ok {
			t.Errorf("warm entry key-%d should have survived eviction", i)
		}
	}
	if _, ok := c.Get("key-10"); !ok {
		t.Error("freshly inserted entry must never be evicted by its own insert")
	}
}

func TestInvalidatePattern(t *testing.T) {
	c := New(10, time.Minute)

	c.Set(UnderstandingKey("how many contacts do I have", "ctx1"), "cached")
	c.Set(UnderstandingKey("show me contacts", "ctx1"), "cached")
	c.Set(UnderstandingKey("create a chart", "ctx1"), "cached")

	removed := c.InvalidatePattern("contacts")
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if c.Len() != 1 {
		t.Errorf("len = %d, want 1", c.Len())
	}
}

func TestNormalizeMessage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Show me contacts!", "show me contacts"},
		{"  show   me  CONTACTS  ", "show me contacts"},
		{"update john's email.", "update john's email"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeMessage(tt.in); got != tt.want {
			t.Errorf("NormalizeMessage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUnderstandingKeyStableUnderRephrasing(t *testing.T) {
	a := UnderstandingKey("Show me contacts", "ctx")
	b := UnderstandingKey("show me contacts!", "ctx")
	if a != b {
		t.Errorf("keys differ for trivially different phrasings: %q vs %q", a, b)
	}

	other := UnderstandingKey("show me contacts", "other-ctx")
	if a == other {
		t.Error("different contexts must not share an understanding key")
	}
}

func TestMemoryRateLimiterWindowEdge(t *testing.T) {
	limits := Limits{UserPerMinute: 3}
	r := NewMemoryRateLimiter(limits)

	base := time.Date(2026, 1, 1, 10, 0, 30, 0, time.UTC)
	r.SetClock(func() time.Time { return base })

	for i := 0; i < 3; i++ {
		ok, err := r.Allow(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("Allow returned error: %v", err)
		}
		if !ok {
			t.Fatalf("call %d should be allowed", i+1)
		}
	}

	// Exactly at the ceiling: next call in the same window is rejected
	ok, _ := r.Allow(context.Background(), "user-1")
	if ok {
		t.Error("call beyond ceiling should be rejected")
	}

	// First call after the window resets succeeds
	r.SetClock(func() time.Time { return base.Add(time.Minute) })
	ok, _ = r.Allow(context.Background(), "user-1")
	if !ok {
		t.Error("first call after window reset should be allowed")
	}
}

func TestMemoryRateLimiterIsolatesUsers(t *testing.T) {
	r := NewMemoryRateLimiter(Limits{UserPerMinute: 1})

	if ok, _ := r.Allow(context.Background(), "user-a"); !ok {
		t.Fatal("user-a first call should pass")
	}
	if ok, _ := r.Allow(context.Background(), "user-a"); ok {
		t.Error("user-a second call should be rejected")
	}
	if ok, _ := r.Allow(context.Background(), "user-b"); !ok {
		t.Error("user-b must not be affected by user-a's counters")
	}
}

func TestMemoryRateLimiterGlobalCeiling(t *testing.T) {
	r := NewMemoryRateLimiter(Limits{UserPerMinute: 10, GlobalPerMinute: 2})

	r.Allow(context.Background(), "user-a")
	r.Allow(context.Background(), "user-b")

	if ok, _ := r.Allow(context.Background(), "user-c"); ok {
		t.Error("global ceiling should reject regardless of per-user headroom")
	}
}

func TestBatchFetcherJoinsLegs(t *testing.T) {
	c := New(10, time.Minute)
	b := NewBatchFetcher(c, time.Minute)

	legs := []Leg{
		{Kind: "contacts", FilterFingerprint: "all", Fetch: func(ctx context.Context) (interface{}, error) {
			return []string{"John Smith"}, nil
		}},
		{Kind: "deals", FilterFingerprint: "all", Fetch: func(ctx context.Context) (interface{}, error) {
			return nil, errors.New("store down")
		}},
	}

	results := b.FetchAll(context.Background(), "user-1", legs)

	if results["contacts"].Err != nil {
		t.Errorf("contacts leg errored: %v", results["contacts"].Err)
	}
	if results["deals"].Err == nil {
		t.Error("deals leg should carry its own error")
	}

	// Second fetch of the healthy leg is served from cache
	results = b.FetchAll(context.Background(), "user-1", legs[:1])
	if !results["contacts"].Cached {
		t.Error("second fetch should be a cache hit")
	}
}
