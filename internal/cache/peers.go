package cache

import "ledgermesh/internal/model"

// peerEntry is what PeerCache stores per peer id (spec.md §4.2).
type peerEntry struct {
	record     model.PeerRecord
	reputation model.Reputation
}

// PeerCache stores (PeerRecord, Reputation) pairs under the peer id.
type PeerCache struct {
	entries *LRU[string, peerEntry]
}

// NewPeerCache creates a PeerCache capped at capacity peers (default
// 1000 per spec.md §4.2).
func NewPeerCache(capacity int) *PeerCache {
	return &PeerCache{entries: NewLRU[string, peerEntry](capacity)}
}

// Get returns the peer and reputation for id, marking it recently used.
func (c *PeerCache) Get(peerID string) (model.PeerRecord, model.Reputation, bool) {
	e, ok := c.entries.Get(peerID)
	return e.record, e.reputation, ok
}

// Peek returns the peer and reputation without affecting recency.
func (c *PeerCache) Peek(peerID string) (model.PeerRecord, model.Reputation, bool) {
	e, ok := c.entries.Peek(peerID)
	return e.record, e.reputation, ok
}

// Insert adds or replaces the cached pair for a peer.
func (c *PeerCache) Insert(record model.PeerRecord, reputation model.Reputation) {
	c.entries.Insert(record.PeerID, peerEntry{record: record, reputation: reputation})
}

// UpdateReputation replaces the cached reputation for peerID. Returns
// false if the peer is not present in the cache (spec.md §4.2).
func (c *PeerCache) UpdateReputation(peerID string, rep model.Reputation) bool {
	e, ok := c.entries.Peek(peerID)
	if !ok {
		return false
	}
	e.reputation = rep
	c.entries.Insert(peerID, e)
	return true
}

// Remove evicts a peer from the cache.
func (c *PeerCache) Remove(peerID string) bool {
	return c.entries.Remove(peerID)
}

// Contains reports whether peerID is cached.
func (c *PeerCache) Contains(peerID string) bool {
	return c.entries.Contains(peerID)
}

// Len returns the number of cached peers.
func (c *PeerCache) Len() int {
	return c.entries.Len()
}

// Clear empties the cache.
func (c *PeerCache) Clear() {
	c.entries.Clear()
}

// GetTrusted iterates the cached peers and returns those at or above
// threshold, as a snapshot taken under one read pass.
func (c *PeerCache) GetTrusted(threshold float64) []model.PeerRecord {
	var out []model.PeerRecord
	for _, key := range c.entries.Keys() {
		e, ok := c.entries.Peek(key)
		if ok && e.reputation.Score() >= threshold {
			out = append(out, e.record)
		}
	}
	return out
}
