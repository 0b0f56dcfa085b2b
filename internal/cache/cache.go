// Package cache provides a TTL-bounded, fixed-capacity result cache
// for search responses. Eviction is insertion-order (FIFO): when the
// cache is full, the oldest entry goes first regardless of how
// recently it was read.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// DefaultTTL is how long a cached search result stays fresh.
const DefaultTTL = 5 * time.Minute

// DefaultCapacity bounds the number of cached results.
const DefaultCapacity = 100

// Key derives a cache key from a user ID and a canonical query
// signature. Hashing keeps keys fixed-length and avoids leaking query
// text into logs that print keys.
func Key(userID, signature string) string {
	sum := sha256.Sum256([]byte(userID + "\x00" + signature))
	return hex.EncodeToString(sum[:])
}

type entry[V any] struct {
	value      V
	insertedAt time.Time
}

// Cache is a mutex-serialized TTL cache with FIFO capacity eviction.
// The zero value is not usable; construct with New.
type Cache[V any] struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  map[string]*entry[V]
	order    []string // insertion order, oldest first

	now func() time.Time // mockable time source
}

// New creates a Cache with the given TTL and capacity. Non-positive
// arguments fall back to the defaults.
func New[V any](ttl time.Duration, capacity int) *Cache[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache[V]{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[string]*entry[V]),
		now:      time.Now,
	}
}

// WithNow sets the time source. Used by tests to control expiry.
func (c *Cache[V]) WithNow(now func() time.Time) *Cache[V] {
	c.now = now
	return c
}

// Get returns the cached value for key if it is still within its TTL.
// An expired entry is evicted and reported as a miss. A miss is a
// control signal, not an error.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.now().Sub(e.insertedAt) >= c.ttl {
		c.remove(key)
		return zero, false
	}
	return e.value, true
}

// Put stores a value under key. Re-putting an existing key refreshes
// its value and timestamp but keeps its original insertion position.
// When the entry count exceeds capacity, the oldest-inserted entry is
// evicted.
func (c *Cache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.insertedAt = c.now()
		return
	}

	c.entries[key] = &entry[V]{value: value, insertedAt: c.now()}
	c.order = append(c.order, key)

	for len(c.entries) > c.capacity {
		c.remove(c.order[0])
	}
}

// Invalidate removes key if present.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(key)
}

// Clear drops all entries.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[V])
	c.order = nil
}

// Len returns the current entry count.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// remove deletes key from the map and the insertion-order list.
// Caller must hold c.mu.
func (c *Cache[V]) remove(key string) {
	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
