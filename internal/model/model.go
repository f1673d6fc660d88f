// Package model holds the entity types from spec.md §3: the data the
// replica persists, caches, and merges. These types are shared by
// internal/store, internal/cache, internal/resolver, and
// internal/replica — they are the nouns the rest of the core agrees on.
package model

import "time"

// PeerRecord is the identity and reachability record for one peer.
type PeerRecord struct {
	PeerID      string    `json:"peer_id"`
	PublicKey   string    `json:"public_key"`
	Addresses   []string  `json:"addresses"`
	DisplayName string    `json:"display_name,omitempty"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
}

// AddAddress appends addr if it is not already present, preserving
// first-occurrence order (spec.md §3).
func (p *PeerRecord) AddAddress(addr string) {
	for _, a := range p.Addresses {
		if a == addr {
			return
		}
	}
	p.Addresses = append(p.Addresses, addr)
}

// ReputationSnapshot is one entry in a Reputation's bounded history.
type ReputationSnapshot struct {
	Successful uint64    `json:"successful_interactions"`
	Failed     uint64    `json:"failed_interactions"`
	At         time.Time `json:"at"`
}

// MaxHistoryLength bounds Reputation.History, following the bounded
// ring-buffer behavior of the original Rust implementation (oldest
// entries are evicted first) — see SPEC_FULL.md Open Question 3.
const MaxHistoryLength = 50

// Reputation is attached 1:1 to a PeerRecord.
type Reputation struct {
	SuccessfulInteractions uint64               `json:"successful_interactions"`
	FailedInteractions     uint64               `json:"failed_interactions"`
	History                []ReputationSnapshot `json:"history"`
}

// DefaultReputation returns the zero-value reputation (score 0.5).
func DefaultReputation() Reputation {
	return Reputation{}
}

// Score computes successful/(successful+failed), defaulting to 0.5
// when there have been no interactions yet (spec.md §3).
func (r Reputation) Score() float64 {
	total := r.SuccessfulInteractions + r.FailedInteractions
	if total == 0 {
		return 0.5
	}
	return float64(r.SuccessfulInteractions) / float64(total)
}

// AppendHistory records a snapshot of the current counters, evicting
// the oldest entry once MaxHistoryLength is exceeded.
func (r *Reputation) AppendHistory(at time.Time) {
	r.History = append(r.History, ReputationSnapshot{
		Successful: r.SuccessfulInteractions,
		Failed:     r.FailedInteractions,
		At:         at,
	})
	if len(r.History) > MaxHistoryLength {
		r.History = r.History[len(r.History)-MaxHistoryLength:]
	}
}

// CreditRelationship is keyed by the ordered pair (Creditor, Debtor).
type CreditRelationship struct {
	Creditor         string    `json:"creditor"`
	Debtor           string    `json:"debtor"`
	CreditLimit      float64   `json:"credit_limit"`
	Balance          float64   `json:"balance"`
	Active           bool      `json:"active"`
	Established      time.Time `json:"established"`
	LastTransaction  time.Time `json:"last_transaction"`
}

// ID returns the derived single-string identifier for this relationship.
func (c CreditRelationship) ID() string {
	return RelationshipID(c.Creditor, c.Debtor)
}

// RelationshipID derives the single-key identifier for a (creditor,
// debtor) pair (spec.md §3).
func RelationshipID(creditor, debtor string) string {
	return creditor + "_" + debtor
}

// MessageType is the closed tag set from spec.md §3.
type MessageType string

const (
	MessageDiscovery  MessageType = "discovery"
	MessageContent    MessageType = "content"
	MessageReputation MessageType = "reputation"
	MessageCredit     MessageType = "credit"
	MessageGovernance MessageType = "governance"
	MessageDirect     MessageType = "direct"
	MessageSystem     MessageType = "system"
)

// Message is immutable once stored; duplicate insert by ID is a no-op.
type Message struct {
	ID          string      `json:"id"`
	MessageType MessageType `json:"message_type"`
	Sender      string      `json:"sender"`
	Recipient   string      `json:"recipient,omitempty"`
	Payload     []byte      `json:"payload"`
	Signature   []byte      `json:"signature,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}

// SyncValue is the generic version-counter key/value entry (spec.md §3).
type SyncValue struct {
	Key     string `json:"key"`
	Value   []byte `json:"value"`
	Version uint64 `json:"version"`
}

// CreditTransaction is one entry in a credit relationship's append-only
// ledger (spec.md §4.1 record_credit_transaction).
type CreditTransaction struct {
	RelationshipID string
	Amount         float64
	BalanceAfter   float64
	Description    string
	At             time.Time
}
