package cache

import (
	"sync"

	"ledgermesh/internal/model"
)

// CreditCache stores relationships under the derived creditor_debtor
// key, with a secondary by-peer index listing each relationship id
// under both endpoints (spec.md §4.2).
type CreditCache struct {
	entries *LRU[string, model.CreditRelationship]
	indexMu sync.RWMutex
	byPeer  map[string][]string // peer id -> relationship ids, may contain dangling ids
}

// NewCreditCache creates a CreditCache capped at capacity relationships
// (default 500 per spec.md §4.2).
func NewCreditCache(capacity int) *CreditCache {
	return &CreditCache{
		entries: NewLRU[string, model.CreditRelationship](capacity),
		byPeer:  make(map[string][]string),
	}
}

// Insert adds or replaces c and extends the by-peer index for both endpoints.
func (cc *CreditCache) Insert(c model.CreditRelationship) {
	cc.indexMu.Lock()
	defer cc.indexMu.Unlock()

	id := c.ID()
	_, existed := cc.entries.Peek(id)
	cc.entries.Insert(id, c)
	if !existed {
		cc.byPeer[c.Creditor] = append(cc.byPeer[c.Creditor], id)
		cc.byPeer[c.Debtor] = append(cc.byPeer[c.Debtor], id)
	}
}

// Get returns the relationship by its derived id, marking it recently used.
func (cc *CreditCache) Get(id string) (model.CreditRelationship, bool) {
	return cc.entries.Get(id)
}

// GetBetween builds the derived key and does one lookup (spec.md §4.2).
func (cc *CreditCache) GetBetween(creditor, debtor string) (model.CreditRelationship, bool) {
	return cc.Get(model.RelationshipID(creditor, debtor))
}

// Remove deletes id from the primary map and both index entries.
func (cc *CreditCache) Remove(id string) bool {
	cc.indexMu.Lock()
	defer cc.indexMu.Unlock()

	c, ok := cc.entries.Peek(id)
	removed := cc.entries.Remove(id)
	if ok {
		cc.shrinkIndexLocked(c.Creditor, id)
		cc.shrinkIndexLocked(c.Debtor, id)
	}
	return removed
}

func (cc *CreditCache) shrinkIndexLocked(peer, id string) {
	ids := cc.byPeer[peer]
	for i, existing := range ids {
		if existing == id {
			cc.byPeer[peer] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(cc.byPeer[peer]) == 0 {
		delete(cc.byPeer, peer)
	}
}

// Len returns the number of cached relationships.
func (cc *CreditCache) Len() int {
	return cc.entries.Len()
}

// Clear empties both the primary map and the by-peer index.
func (cc *CreditCache) Clear() {
	cc.indexMu.Lock()
	defer cc.indexMu.Unlock()
	cc.entries.Clear()
	cc.byPeer = make(map[string][]string)
}

// ListForPeer returns every cached relationship where peer is an endpoint.
func (cc *CreditCache) ListForPeer(peer string) []model.CreditRelationship {
	cc.indexMu.RLock()
	ids := append([]string(nil), cc.byPeer[peer]...)
	cc.indexMu.RUnlock()

	out := make([]model.CreditRelationship, 0, len(ids))
	for _, id := range ids {
		if c, ok := cc.entries.Peek(id); ok && (c.Creditor == peer || c.Debtor == peer) {
			out = append(out, c)
		}
	}
	return out
}

// GetActive filters the currently cached relationships under one pass.
func (cc *CreditCache) GetActive() []model.CreditRelationship {
	var out []model.CreditRelationship
	for _, id := range cc.entries.Keys() {
		if c, ok := cc.entries.Peek(id); ok && c.Active {
			out = append(out, c)
		}
	}
	return out
}
