package cache

import (
	"context"
	"sync"
	"time"
)

// FetchFunc loads one leg of a batched fetch from the record store
type FetchFunc func(ctx context.Context) (interface{}, error)

// Leg is a single cacheable fetch within a batch
type Leg struct {
	Kind              string
	FilterFingerprint string
	Fetch             FetchFunc
}

// LegResult carries the outcome of one leg
type LegResult struct {
	Data   interface{}
	Err    error
	Cached bool
}

// BatchFetcher runs sibling fetches concurrently, each leg
// independently served from (and written back to) the data cache.
// Legs are joined before the combined map is returned; no background
// work survives the call.
type BatchFetcher struct {
	cache *Cache
	ttl   time.Duration
}

func NewBatchFetcher(dataCache *Cache, ttl time.Duration) *BatchFetcher {
	return &BatchFetcher{
		cache: dataCache,
		ttl:   ttl,
	}
}

// FetchAll resolves every leg for one user and returns results keyed
// by leg kind. A failed leg reports its own error without poisoning
// the siblings.
func (b *BatchFetcher) FetchAll(ctx context.Context, userID string, legs []Leg) map[string]LegResult {
	results := make(map[string]LegResult, len(legs))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, leg := range legs {
		key := DataKey(userID, leg.Kind, leg.FilterFingerprint)

		if data, ok := b.cache.Get(key); ok {
			results[leg.Kind] = LegResult{Data: data, Cached: true}
			continue
		}

		wg.Add(1)
		go func(leg Leg, key string) {
			defer wg.Done()

			data, err := leg.Fetch(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[leg.Kind] = LegResult{Err: err}
				return
			}
			b.cache.SetWithTTL(key, data, b.ttl)
			results[leg.Kind] = LegResult{Data: data}
		}(leg, key)
	}

	wg.Wait()
	return results
}
