package cache

import (
	"crypto/md5"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Entry is a single cached value with access bookkeeping.
// Access counts drive eviction, so plain TTL caches cannot back this.
type Entry struct {
	Data         interface{}
	Timestamp    time.Time
	TTL          time.Duration
	AccessCount  int
	LastAccessed time.Time
}

// Cache is a bounded TTL cache. Expiry is lazy (checked on read);
// when an insert finds the cache at capacity, the bottom 20% of
// entries by access count are evicted in one pass.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*Entry
	capacity   int
	defaultTTL time.Duration
	now        func() time.Time // injectable clock for tests
}

func New(capacity int, defaultTTL time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 100
	}
	return &Cache{
		entries:    make(map[string]*Entry),
		capacity:   capacity,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get returns the cached value if present and not expired.
// A hit bumps AccessCount and LastAccessed.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	now := c.now()
	if now.Sub(entry.Timestamp) > entry.TTL {
		delete(c.entries, key)
		return nil, false
	}

	entry.AccessCount++
	entry.LastAccessed = now
	return entry.Data, true
}

// Set stores a value under the default TTL
func (c *Cache) Set(key string, data interface{}) {
	c.SetWithTTL(key, data, c.defaultTTL)
}

// SetWithTTL stores a value, evicting cold entries if at capacity
func (c *Cache) SetWithTTL(key string, data interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.evictColdest()
	}

	now := c.now()
	c.entries[key] = &Entry{
		Data:         data,
		Timestamp:    now,
		TTL:          ttl,
		AccessCount:  0,
		LastAccessed: now,
	}
}

// evictColdest removes the bottom 20% of entries by access count.
// Caller must hold the lock. Tie order among equal counts is
// unspecified.
func (c *Cache) evictColdest() {
	n := len(c.entries) / 5
	if n < 1 {
		n = 1
	}

	type keyCount struct {
		key   string
		count int
	}
	ranked := make([]keyCount, 0, len(c.entries))
	for k, e := range c.entries {
		ranked = append(ranked, keyCount{key: k, count: e.AccessCount})
	}
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].count < ranked[j].count
	})

	for i := 0; i < n && i < len(ranked); i++ {
		delete(c.entries, ranked[i].key)
	}
}

// Delete removes a single key
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidatePattern deletes every key containing the given substring.
// Used when underlying data changes in a way that would stale cached
// classifications (count queries in particular).
func (c *Cache) InvalidatePattern(substr string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k := range c.entries {
		if strings.Contains(k, substr) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Clear drops every entry
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
}

// Len returns the current number of entries (expired included until read)
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// SetClock overrides the cache clock. Test hook.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// DataKey builds the composite key for data caches
func DataKey(userID, kind, filterFingerprint string) string {
	return fmt.Sprintf("%s|%s|%s", userID, kind, filterFingerprint)
}

// UnderstandingKey builds the composite key for understanding caches.
// The message is normalized so trivially different phrasings share an
// entry; the context is fingerprinted so stale contexts miss.
func UnderstandingKey(message, contextFingerprint string) string {
	return fmt.Sprintf("%s|%s", NormalizeMessage(message), contextFingerprint)
}

// NormalizeMessage lowercases, collapses whitespace and strips
// trailing punctuation so "Show me contacts!" and "show me contacts"
// hit the same understanding entry.
func NormalizeMessage(message string) string {
	normalized := strings.ToLower(strings.TrimSpace(message))
	normalized = strings.TrimRight(normalized, ".!?")
	return strings.Join(strings.Fields(normalized), " ")
}

// Fingerprint hashes arbitrary context material into a short stable key part
func Fingerprint(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, "\x1f")))
	return fmt.Sprintf("%x", sum[:8])
}
