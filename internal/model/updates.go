package model

import "time"

// PeerInfo is the payload carried by a PeerUpdate (spec.md §6).
type PeerInfo struct {
	PublicKey string   `json:"public_key"`
	Addresses []string `json:"addresses"`
	Name      string   `json:"name,omitempty"`
}

// PeerUpdate is the on-wire PeerUpdate variant (spec.md §6).
type PeerUpdate struct {
	PeerID    string    `json:"peer_id"`
	Info      PeerInfo  `json:"info"`
	Timestamp time.Time `json:"timestamp"`
}

// ReputationUpdate is the on-wire ReputationUpdate variant.
type ReputationUpdate struct {
	PeerID                 string    `json:"peer_id"`
	SuccessfulInteractions uint64    `json:"successful_interactions"`
	FailedInteractions     uint64    `json:"failed_interactions"`
	Timestamp              time.Time `json:"timestamp"`
}

// CreditUpdate is the on-wire CreditUpdate variant.
type CreditUpdate struct {
	Creditor    string    `json:"creditor"`
	Debtor      string    `json:"debtor"`
	CreditLimit float64   `json:"credit_limit"`
	Balance     float64   `json:"balance"`
	Active      bool      `json:"active"`
	Timestamp   time.Time `json:"timestamp"`
}

// KeyValueUpdate is the on-wire KeyValueUpdate variant.
type KeyValueUpdate struct {
	Key       string    `json:"key"`
	Value     []byte    `json:"value"`
	Version   uint64    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// UpdateKind tags the closed StateUpdate union (spec.md §6).
type UpdateKind string

const (
	UpdatePeer       UpdateKind = "PeerUpdate"
	UpdateReputation UpdateKind = "ReputationUpdate"
	UpdateCredit     UpdateKind = "CreditUpdate"
	UpdateKeyValue   UpdateKind = "KeyValueUpdate"
)

// StateUpdate is the JSON-encoded tagged union exchanged with the
// publish sink / network event stream (spec.md §6). Exactly one of the
// pointer fields is set, matching Kind.
type StateUpdate struct {
	Kind       UpdateKind        `json:"kind"`
	Peer       *PeerUpdate       `json:"peer,omitempty"`
	Reputation *ReputationUpdate `json:"reputation,omitempty"`
	Credit     *CreditUpdate     `json:"credit,omitempty"`
	KeyValue   *KeyValueUpdate   `json:"key_value,omitempty"`
}
