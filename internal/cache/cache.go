// Package cache is the single chokepoint between "callers want fresh data on
// every tick" and "network calls happen only when the TTL expires".
package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     any
	fetchedAt time.Time
}

// Cache holds the most recent successful result per key. Entries are
// overwritten atomically on success and never partially written.
type Cache struct {
	mu    sync.Mutex
	items map[string]entry

	// now is replaceable in tests.
	now func() time.Time
}

func New() *Cache {
	return &Cache{
		items: make(map[string]entry),
		now:   time.Now,
	}
}

// GetOrFetch returns the cached value for key when it is younger than ttl,
// without invoking fn. Otherwise fn runs: on success the entry is overwritten
// and returned; on failure a stale entry, if any, is returned with stale=true;
// with no entry the failure propagates.
func GetOrFetch[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fn func(context.Context) (T, error)) (value T, stale bool, err error) {
	now := c.now()

	c.mu.Lock()
	if e, ok := c.items[key]; ok && now.Sub(e.fetchedAt) < ttl {
		c.mu.Unlock()
		return e.value.(T), false, nil
	}
	c.mu.Unlock()

	v, err := fn(ctx)
	if err != nil {
		c.mu.Lock()
		e, ok := c.items[key]
		c.mu.Unlock()
		if ok {
			return e.value.(T), true, nil
		}
		var zero T
		return zero, false, err
	}

	c.mu.Lock()
	c.items[key] = entry{value: v, fetchedAt: c.now()}
	c.mu.Unlock()
	return v, false, nil
}

// Len reports how many keys currently hold an entry.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
