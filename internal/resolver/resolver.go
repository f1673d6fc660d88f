// Package resolver is the Conflict Resolver from spec.md §4.3: a pure
// decision layer that owns no durable data. It holds an in-memory
// last-seen timestamp per update key and a VectorClock, and applies one
// fixed rule per update kind (LWW by timestamp, grow-only counter
// merge, or version-number merge). None of these decisions consult the
// vector clock — it is maintained purely for causality introspection
// (spec.md §4.3, §9).
package resolver

import (
	"sync"
	"time"

	"ledgermesh/internal/clock"
	"ledgermesh/internal/model"
)

// Resolver tracks per-key last-seen timestamps and a local vector clock.
// Safe for concurrent use.
type Resolver struct {
	mu       sync.Mutex
	selfID   string
	lastSeen map[string]time.Time
	vclock   clock.VectorClock
}

// New creates a Resolver for the given local peer id.
func New(selfID string) *Resolver {
	return &Resolver{
		selfID:   selfID,
		lastSeen: make(map[string]time.Time),
		vclock:   clock.New(),
	}
}

func peerKey(peerID string) string     { return "peer:" + peerID }
func creditKey(creditor, debtor string) string { return "credit:" + creditor + ":" + debtor }

// AcceptPeerUpdate applies the LWW rule for update key peer:{peer_id}.
// Ties (ts_in == ts_last_seen) are rejected — the existing value wins
// (spec.md §4.3: deterministic without a secondary tiebreaker).
func (r *Resolver) AcceptPeerUpdate(u model.PeerUpdate) bool {
	return r.acceptLWW(peerKey(u.PeerID), u.Timestamp)
}

// AcceptCreditUpdate applies the LWW rule for update key
// credit:{creditor}:{debtor}.
func (r *Resolver) AcceptCreditUpdate(u model.CreditUpdate) bool {
	return r.acceptLWW(creditKey(u.Creditor, u.Debtor), u.Timestamp)
}

func (r *Resolver) acceptLWW(key string, ts time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	last, ok := r.lastSeen[key]
	if ok && !ts.After(last) {
		return false
	}
	r.lastSeen[key] = ts
	return true
}

// MergeReputation applies the grow-only counter rule: each counter
// becomes the max of local and incoming. Accept iff either counter
// strictly increased (spec.md §4.3). There is no update key for
// ReputationUpdate — counters are monotone regardless of delivery order
// (property 1, property 6).
func MergeReputation(local model.Reputation, incoming model.ReputationUpdate) (merged model.Reputation, accepted bool) {
	successful := local.SuccessfulInteractions
	if incoming.SuccessfulInteractions > successful {
		successful = incoming.SuccessfulInteractions
	}
	failed := local.FailedInteractions
	if incoming.FailedInteractions > failed {
		failed = incoming.FailedInteractions
	}

	if successful == local.SuccessfulInteractions && failed == local.FailedInteractions {
		return local, false
	}

	merged = local
	merged.SuccessfulInteractions = successful
	merged.FailedInteractions = failed
	return merged, true
}

// AcceptKeyValueUpdate applies the version-number merge rule: accept
// iff version_in > version_local. Timestamp is ignored (spec.md §4.3).
func AcceptKeyValueUpdate(localVersion, incomingVersion uint64) bool {
	return incomingVersion > localVersion
}

// MergeClock folds an incoming peer's vector clock into the resolver's
// own, for causality introspection only — it never affects the above
// accept/reject decisions (spec.md §4.3, §9).
func (r *Resolver) MergeClock(incoming clock.VectorClock) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vclock = r.vclock.Merge(incoming)
}

// ObserveRemoteTick folds in the implicit clock of a remote update: the
// wire format (spec.md §6) carries no explicit vector clock, so
// receiving an accepted update from peerID is taken as evidence that
// peer's tick advanced by one (spec.md §4.3: "merged with every
// incoming update's implicit clock").
func (r *Resolver) ObserveRemoteTick(peerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vclock.Increment(peerID)
}

// PrepareLocal increments the resolver's own tick in the vector clock
// and returns the current wall-clock time and a snapshot of the clock,
// for stamping a locally generated StateUpdate before publication
// (spec.md §4.3).
func (r *Resolver) PrepareLocal() (time.Time, clock.VectorClock) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vclock.Increment(r.selfID)
	return time.Now().UTC(), r.vclock.Copy()
}

// Clock returns a snapshot of the current vector clock, for causality
// introspection (spec.md §4.3: "exposed for causality introspection").
func (r *Resolver) Clock() clock.VectorClock {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.vclock.Copy()
}
