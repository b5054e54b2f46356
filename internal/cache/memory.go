package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	createdAt time.Time
	ttl       time.Duration
}

// valid reports whether the entry is still usable at now.
func (e entry) valid(now time.Time) bool {
	return e.ttl == 0 || now.Sub(e.createdAt) < e.ttl
}

// MemoryCache is the in-process cache tier. A single mutex guards the map:
// external call latency dominates lock contention by orders of magnitude.
// Entries are never mutated in place; a Set replaces the whole entry.
// There is no eviction beyond TTL expiry.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the value for key if present and unexpired.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.valid(c.now()) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores value under key with the given TTL (0 = keep forever).
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{value: value, createdAt: c.now(), ttl: ttl}
	return nil
}

// Len returns the number of live entries. Expired entries still pending
// lazy removal are counted.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops all entries.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}
