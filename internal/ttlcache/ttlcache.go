package ttlcache

import (
	"sync"
	"time"
)

// Entry is a cached value together with its creation time.
type Entry[V any] struct {
	Value     V
	CreatedAt time.Time
}

// Stats is a point-in-time view of a cache.
type Stats struct {
	Count        int `json:"count"`
	ExpiredCount int `json:"expiredCount"`
}

// Cache is a key/value store with a single TTL for every entry.
// Expiry is evaluated lazily on read; SweepExpired removes expired
// entries explicitly. It is safe for concurrent use by multiple goroutines.
type Cache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]Entry[V]
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithClock replaces time.Now, mostly useful for tests.
func WithClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *Cache[K, V]) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a cache whose entries expire ttl after they were set.
// A ttl <= 0 means entries never expire.
func New[K comparable, V any](ttl time.Duration, opts ...Option[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{
		entries: make(map[K]Entry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured time-to-live.
func (c *Cache[K, V]) TTL() time.Duration { return c.ttl }

// Get returns the value for key if present and younger than the TTL.
// An expired entry is evicted as a side effect.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	var zero V
	now := c.now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if !c.expired(e, now) {
		return e.Value, true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Re-check: a concurrent Set may have replaced the entry between locks.
	if cur, ok := c.entries[key]; ok && c.expired(cur, now) {
		delete(c.entries, key)
	}
	return zero, false
}

// Set inserts or overwrites key with createdAt = now.
func (c *Cache[K, V]) Set(key K, value V) {
	c.setAt(key, value, c.now())
}

// SetWithCreatedAt stores value as if it had been created at createdAt.
// Warm-up from durable storage uses it to keep the original age.
func (c *Cache[K, V]) SetWithCreatedAt(key K, value V, createdAt time.Time) {
	c.setAt(key, value, createdAt)
}

func (c *Cache[K, V]) setAt(key K, value V, createdAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry[V]{Value: value, CreatedAt: createdAt}
}

// Invalidate removes key. It reports whether an entry was present.
func (c *Cache[K, V]) Invalidate(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

// InvalidateAll removes every entry.
func (c *Cache[K, V]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]Entry[V])
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats counts entries without evicting anything.
func (c *Cache[K, V]) Stats() Stats {
	now := c.now()
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Stats{Count: len(c.entries)}
	for _, e := range c.entries {
		if c.expired(e, now) {
			s.ExpiredCount++
		}
	}
	return s
}

// SweepExpired removes all expired entries and returns how many were removed.
func (c *Cache[K, V]) SweepExpired() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, e := range c.entries {
		if c.expired(e, now) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

func (c *Cache[K, V]) expired(e Entry[V], now time.Time) bool {
	return c.ttl > 0 && now.Sub(e.CreatedAt) >= c.ttl
}
