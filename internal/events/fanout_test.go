package events

import (
	"context"
	"testing"
	"time"
)

func TestSubscribeOnlySeesFutureEvents(t *testing.T) {
	f := New()
	f.Publish(newTestEvent(PeerJoined, 1))

	sub := f.Subscribe()
	defer sub.Close()

	f.Publish(newTestEvent(PeerLeft, 2))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	event, gap, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gap {
		t.Fatalf("unexpected gap on first read")
	}
	if event.Kind != PeerLeft {
		t.Fatalf("expected to only observe events published after Subscribe, got %v", event.Kind)
	}
}

func TestPublishNeverBlocksWithoutSubscribers(t *testing.T) {
	f := New()
	for i := 0; i < Capacity*2; i++ {
		f.Publish(newTestEvent(PeerJoined, int64(i)))
	}
	// reaching here without deadlock is the assertion
}

func TestSlowConsumerGapDetection(t *testing.T) {
	f := New()
	sub := f.Subscribe()
	defer sub.Close()

	for i := 0; i < Capacity+10; i++ {
		f.Publish(newTestEvent(PeerJoined, int64(i)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, gap, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gap {
		t.Fatalf("expected gap to be reported after falling behind by more than Capacity events")
	}
}

func TestNextBlocksUntilContextDone(t *testing.T) {
	f := New()
	sub := f.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, _, err := sub.Next(ctx)
	if err == nil {
		t.Fatalf("expected context deadline error when no event is ever published")
	}
}

// newTestEvent builds a minimal Event for tests without depending on
// fields unrelated to fan-out ordering semantics.
func newTestEvent(kind Kind, ts int64) Event {
	return New(kind, ts, nil)
}
