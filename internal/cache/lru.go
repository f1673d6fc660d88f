// Package cache is the Memory Cache from spec.md §4.2: a generic
// bounded LRU map plus three specialized wrappers (peers, messages,
// credit relationships) with secondary indexes. It is a read-through,
// write-through cache in front of internal/store — the store remains
// authoritative; the cache is strictly a subset of what the store would
// return (spec.md §3 "Ownership").
//
// Grounded on github.com/hashicorp/golang-lru/v2 (an indirect dependency
// of orbas1-Synnergy in the retrieval pack): its simplelru.LRU gives an
// unsynchronized doubly-linked-list LRU that this package wraps in its
// own sync.RWMutex, so Get (which mutates recency) can take the writer
// lock while Peek/Contains take the reader lock — exactly the split
// spec.md §4.2 and §5 call for ("the get operation requires exclusive
// access because it mutates recency").
package cache

import (
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// LRU is a generic bounded map with LRU eviction, safe for concurrent use.
type LRU[K comparable, V any] struct {
	mu   sync.RWMutex
	lru  *simplelru.LRU[K, V]
}

// NewLRU creates an LRU capped at capacity entries.
func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	inner, err := simplelru.NewLRU[K, V](capacity, nil)
	if err != nil {
		// capacity <= 0 panics. The replica passes its Config
		// capacities here, which cmd/node fills from its cache-size
		// flags (defaulting to spec.md §4.2's values).
		panic(err)
	}
	return &LRU[K, V]{lru: inner}
}

// Get returns the value for key and marks it most-recently-used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(key)
}

// Peek returns the value for key without affecting recency.
func (c *LRU[K, V]) Peek(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru.Peek(key)
}

// Insert adds or updates key, evicting the least-recently-used entry if
// capacity is exceeded. Returns true if an eviction occurred.
func (c *LRU[K, V]) Insert(key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Add(key, value)
}

// Remove deletes key, if present.
func (c *LRU[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Remove(key)
}

// Contains reports whether key is present, without affecting recency.
func (c *LRU[K, V]) Contains(key K) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru.Contains(key)
}

// Len returns the number of entries currently cached.
func (c *LRU[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru.Len()
}

// Keys returns a snapshot of all cached keys, oldest first.
func (c *LRU[K, V]) Keys() []K {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru.Keys()
}

// Clear removes every entry.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}
