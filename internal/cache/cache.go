// Package cache provides a small in-process cache with an explicit TTL per
// entity type, an injected clock, and explicit invalidation. Staleness is
// decided only by entry age against the configured TTL, never by inspecting
// cached record contents.
package cache

import (
	"sync"
	"time"
)

// Clock returns the current time. Tests inject a fake clock to control expiry.
type Clock func() time.Time

// DefaultTTL applies to entity types with no explicit TTL configured.
const DefaultTTL = 5 * time.Minute

type item struct {
	value    interface{}
	storedAt time.Time
}

// Cache is a thread-safe TTL cache keyed by (entityType, key).
type Cache struct {
	mu      sync.RWMutex
	now     Clock
	ttls    map[string]time.Duration
	entries map[string]map[string]item
}

// New creates a cache using the given clock. A nil clock defaults to time.Now.
func New(now Clock) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		now:     now,
		ttls:    make(map[string]time.Duration),
		entries: make(map[string]map[string]item),
	}
}

// SetTTL configures the time-to-live for an entity type.
func (c *Cache) SetTTL(entityType string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttls[entityType] = ttl
}

// Put stores a value under (entityType, key), stamping it with the clock.
func (c *Cache) Put(entityType, key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bucket, ok := c.entries[entityType]
	if !ok {
		bucket = make(map[string]item)
		c.entries[entityType] = bucket
	}
	bucket[key] = item{value: value, storedAt: c.now()}
}

// Get returns the cached value for (entityType, key) if present and fresh.
func (c *Cache) Get(entityType, key string) (interface{}, bool) {
	c.mu.RLock()
	entry, ok := c.entries[entityType][key]
	ttl, hasTTL := c.ttls[entityType]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if !hasTTL {
		ttl = DefaultTTL
	}
	if c.now().Sub(entry.storedAt) >= ttl {
		c.mu.Lock()
		delete(c.entries[entityType], key)
		c.mu.Unlock()
		return nil, false
	}
	return entry.value, true
}

// Invalidate drops every entry of the given entity type.
func (c *Cache) Invalidate(entityType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, entityType)
}
