// Package cache implements a process-local TTL cache. Each adapter and the
// aggregator own one instance; the cache never outlives the process and makes
// no cross-instance coherency promises.
package cache

import (
	"sync"
	"time"
)

// TTL holds a single value with an expiry window. A value is fresh while its
// age is strictly under the configured TTL.
type TTL[T any] struct {
	mu     sync.Mutex
	ttl    time.Duration
	val    T
	setAt  time.Time
	filled bool
	now    func() time.Time // for testing
}

// New creates an empty cache with the given TTL.
func New[T any](ttl time.Duration) *TTL[T] {
	return &TTL[T]{ttl: ttl, now: time.Now}
}

// Get returns the cached value and true while it is fresh.
func (c *TTL[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	if !c.filled {
		return zero, false
	}
	if c.now().Sub(c.setAt) >= c.ttl {
		return zero, false
	}
	return c.val, true
}

// Set stores a value and resets its age.
func (c *TTL[T]) Set(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.val = v
	c.setAt = c.now()
	c.filled = true
}

// Clear empties the cache.
func (c *TTL[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	c.val = zero
	c.filled = false
}

// TTLWindow returns the configured time-to-live.
func (c *TTL[T]) TTLWindow() time.Duration { return c.ttl }
