// Package events is the Event Fan-out from spec.md §4.5: a bounded
// multi-producer/multi-consumer broadcast with capacity 256 and
// slow-consumer drop semantics. Producers never block — Publish always
// succeeds, discarding the oldest buffered event once the ring is full,
// and waking subscribers through a non-blocking signal.
//
// No library in the retrieval pack implements exactly this
// gap-detecting bounded broadcast (the pack's channel-based fan-outs,
// e.g. internal/cluster/replicator.go's response channels, are plain
// point-to-point); this is built directly on sync.Mutex, a ring buffer,
// and a non-blocking per-subscriber wake channel — the stdlib
// concurrency idiom used throughout the pack (e.g. orbas1-Synnergy's
// sync.Cond-based notifiers) adapted to support independent subscriber
// cursors. See DESIGN.md.
package events

import (
	"context"
	"sync"
)

// Capacity is the fixed ring-buffer size (spec.md §4.5).
const Capacity = 256

// Fanout is a bounded broadcast of Event values.
type Fanout struct {
	mu  sync.RWMutex
	seq uint64
	buf [Capacity]Event

	subsMu    sync.Mutex
	subs      map[int]chan struct{}
	nextSubID int
}

// New creates an empty Fanout.
func New() *Fanout {
	return &Fanout{subs: make(map[int]chan struct{})}
}

// Publish appends event to the ring, overwriting the oldest entry once
// full, and wakes every subscriber without blocking. If no subscribers
// are connected, the event is simply discarded on the next overwrite
// (spec.md §4.5).
func (f *Fanout) Publish(event Event) {
	f.mu.Lock()
	f.buf[f.seq%Capacity] = event
	f.seq++
	f.mu.Unlock()

	f.subsMu.Lock()
	for _, wake := range f.subs {
		select {
		case wake <- struct{}{}:
		default:
		}
	}
	f.subsMu.Unlock()
}

// Subscription is one consumer's cursor into the fan-out.
type Subscription struct {
	f      *Fanout
	id     int
	cursor uint64
	wake   chan struct{}
}

// Subscribe registers a new subscriber whose cursor starts at the
// current head — it only observes events published from now on.
func (f *Fanout) Subscribe() *Subscription {
	f.mu.RLock()
	cursor := f.seq
	f.mu.RUnlock()

	wake := make(chan struct{}, 1)
	f.subsMu.Lock()
	id := f.nextSubID
	f.nextSubID++
	f.subs[id] = wake
	f.subsMu.Unlock()

	return &Subscription{f: f, id: id, cursor: cursor, wake: wake}
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.f.subsMu.Lock()
	delete(s.f.subs, s.id)
	s.f.subsMu.Unlock()
}

// Next blocks until an event is available or ctx is done. gap reports
// that the subscriber fell more than Capacity events behind and its
// cursor was advanced to the oldest event still buffered (spec.md §4.5).
func (s *Subscription) Next(ctx context.Context) (event Event, gap bool, err error) {
	for {
		s.f.mu.RLock()
		seq := s.f.seq
		var oldest uint64
		if seq > Capacity {
			oldest = seq - Capacity
		}
		if s.cursor < oldest {
			gap = true
			s.cursor = oldest
		}
		if s.cursor < seq {
			event = s.f.buf[s.cursor%Capacity]
			s.f.mu.RUnlock()
			s.cursor++
			return event, gap, nil
		}
		s.f.mu.RUnlock()

		select {
		case <-s.wake:
		case <-ctx.Done():
			return Event{}, false, ctx.Err()
		}
	}
}
