package cache

import (
	"sync"

	"ledgermesh/internal/model"
)

// MessageCache stores messages under their stringified id, with a
// secondary by-sender index (spec.md §4.2). The index is owned by the
// cache and updated together with the primary map — Insert and Remove
// hold indexMu around both the index mutation and the underlying LRU
// call, so neither is ever half-applied. Messages the LRU evicts on its
// own stay in the index as dangling ids, which GetFromSender filters.
type MessageCache struct {
	entries  *LRU[string, model.Message]
	indexMu  sync.RWMutex
	bySender map[string][]string // sender -> message ids, may contain dangling ids
}

// NewMessageCache creates a MessageCache capped at capacity messages
// (default 5000 per spec.md §4.2).
func NewMessageCache(capacity int) *MessageCache {
	return &MessageCache{
		entries:  NewLRU[string, model.Message](capacity),
		bySender: make(map[string][]string),
	}
}

// Insert adds m and extends the by-sender index.
func (c *MessageCache) Insert(m model.Message) {
	c.indexMu.Lock()
	defer c.indexMu.Unlock()
	c.entries.Insert(m.ID, m)
	c.bySender[m.Sender] = append(c.bySender[m.Sender], m.ID)
}

// Get returns m by id, marking it recently used.
func (c *MessageCache) Get(id string) (model.Message, bool) {
	return c.entries.Get(id)
}

// Peek returns m by id without affecting recency.
func (c *MessageCache) Peek(id string) (model.Message, bool) {
	return c.entries.Peek(id)
}

// Remove deletes id from both the primary map and the by-sender index.
func (c *MessageCache) Remove(id string) bool {
	c.indexMu.Lock()
	defer c.indexMu.Unlock()

	m, ok := c.entries.Peek(id)
	removed := c.entries.Remove(id)
	if ok {
		c.shrinkIndexLocked(m.Sender, id)
	}
	return removed
}

func (c *MessageCache) shrinkIndexLocked(sender, id string) {
	ids := c.bySender[sender]
	for i, existing := range ids {
		if existing == id {
			c.bySender[sender] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(c.bySender[sender]) == 0 {
		delete(c.bySender, sender)
	}
}

// Contains reports whether id is cached.
func (c *MessageCache) Contains(id string) bool {
	return c.entries.Contains(id)
}

// Len returns the number of cached messages.
func (c *MessageCache) Len() int {
	return c.entries.Len()
}

// Clear empties both the primary map and the by-sender index.
func (c *MessageCache) Clear() {
	c.indexMu.Lock()
	defer c.indexMu.Unlock()
	c.entries.Clear()
	c.bySender = make(map[string][]string)
}

// GetFromSender walks the by-sender index and resolves each id via Peek
// (not Get) so a bulk read does not thrash LRU recency (spec.md §4.2).
// Ids whose message has since been evicted from the primary map are
// silently filtered — the index tolerates dangling ids (spec.md §4.2
// Invariant, property 5).
func (c *MessageCache) GetFromSender(sender string) []model.Message {
	c.indexMu.RLock()
	ids := append([]string(nil), c.bySender[sender]...)
	c.indexMu.RUnlock()

	out := make([]model.Message, 0, len(ids))
	for _, id := range ids {
		if m, ok := c.entries.Peek(id); ok && m.Sender == sender {
			out = append(out, m)
		}
	}
	return out
}
