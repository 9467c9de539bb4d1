// Package cache provides a small in-memory TTL cache for external source
// results (news feeds, market quotes) that are expensive to refetch.
package cache

import (
	"sync"
	"time"
)

type entry struct {
	value  any
	expiry time.Time
}

// Cache is a concurrency-safe key/value store with per-entry TTL. Expired
// entries are dropped lazily on read.
type Cache struct {
	mu    sync.Mutex
	store map[string]entry
	now   func() time.Time
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		store: make(map[string]entry),
		now:   time.Now,
	}
}

// Get returns the cached value for key, or false if missing or expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.store[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiry) {
		delete(c.store, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for the given TTL.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = entry{value: value, expiry: c.now().Add(ttl)}
}
