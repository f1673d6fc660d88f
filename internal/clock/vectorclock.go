// Package clock implements the vector clock used to summarize causal
// history across the replica's peers.
//
// A vector clock is a map from peer id to a logical tick counter. Every
// time a peer writes a key, it bumps its own counter. Comparing two
// clocks tells you whether one causally dominates the other or whether
// they diverged independently (ConcurrentClocks) — but per spec.md
// §4.3 / §9 this relation is only used for causality introspection, not
// for accept/reject decisions. Accept/reject is per-field LWW or
// grow-only, handled entirely in internal/resolver.
package clock

import "maps"

// Relation describes how two vector clocks relate to each other.
type Relation int

const (
	Before Relation = iota
	After
	Equal
	Concurrent
)

// VectorClock maps peer id -> tick counter. A missing entry means 0.
type VectorClock map[string]uint64

// New returns an empty vector clock.
func New() VectorClock {
	return make(VectorClock)
}

// Increment bumps the counter for self by one.
func (vc VectorClock) Increment(self string) {
	vc[self]++
}

// union collects every peer id known to either clock, so callers can walk
// a single combined key set instead of handling "only in vc" / "only in
// other" as separate cases.
func union(vc, other VectorClock) map[string]struct{} {
	peers := make(map[string]struct{}, len(vc)+len(other))
	for p := range vc {
		peers[p] = struct{}{}
	}
	for p := range other {
		peers[p] = struct{}{}
	}
	return peers
}

// Compare reports how vc relates to other by checking, for every peer
// either side has ticked, which clock (if any) leads on that peer. If vc
// leads on at least one peer and other leads on none, vc is After; if
// both lead on at least one peer each, they diverged independently and
// the relation is Concurrent.
func (vc VectorClock) Compare(other VectorClock) Relation {
	var leadsVC, leadsOther bool
	for p := range union(vc, other) {
		switch a, b := vc[p], other[p]; {
		case a > b:
			leadsVC = true
		case a < b:
			leadsOther = true
		}
	}

	switch {
	case leadsVC && leadsOther:
		return Concurrent
	case leadsVC:
		return After
	case leadsOther:
		return Before
	default:
		return Equal
	}
}

// Merge returns the element-wise max of vc and other over their combined
// peer set. Merge is commutative, associative, and idempotent (see
// vectorclock_test.go).
func (vc VectorClock) Merge(other VectorClock) VectorClock {
	merged := make(VectorClock, len(vc)+len(other))
	for p := range union(vc, other) {
		if a, b := vc[p], other[p]; a > b {
			merged[p] = a
		} else {
			merged[p] = b
		}
	}
	return merged
}

// Copy returns a deep copy, since maps are reference types in Go.
func (vc VectorClock) Copy() VectorClock {
	c := make(VectorClock, len(vc))
	maps.Copy(c, vc)
	return c
}
