package cache

import (
	"testing"

	"ledgermesh/internal/model"
)

func TestMessageCacheBySenderIndex(t *testing.T) {
	c := NewMessageCache(10)
	c.Insert(model.Message{ID: "m1", Sender: "alice"})
	c.Insert(model.Message{ID: "m2", Sender: "alice"})
	c.Insert(model.Message{ID: "m3", Sender: "bob"})

	fromAlice := c.GetFromSender("alice")
	if len(fromAlice) != 2 {
		t.Fatalf("expected 2 messages from alice, got %d", len(fromAlice))
	}
}

func TestMessageCacheIndexToleratesDanglingIds(t *testing.T) {
	c := NewMessageCache(1) // capacity 1 forces eviction
	c.Insert(model.Message{ID: "m1", Sender: "alice"})
	c.Insert(model.Message{ID: "m2", Sender: "alice"}) // evicts m1 from primary map

	fromAlice := c.GetFromSender("alice")
	if len(fromAlice) != 1 || fromAlice[0].ID != "m2" {
		t.Fatalf("expected only the surviving message, got %+v", fromAlice)
	}
}

func TestMessageCacheRemoveClearsIndex(t *testing.T) {
	c := NewMessageCache(10)
	c.Insert(model.Message{ID: "m1", Sender: "alice"})
	c.Remove("m1")

	if len(c.GetFromSender("alice")) != 0 {
		t.Fatalf("expected empty index after removal")
	}
	if c.Contains("m1") {
		t.Fatalf("expected message to be gone")
	}
}
