package replica

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ledgermesh/internal/model"
	"ledgermesh/internal/replicaerr"
	"ledgermesh/internal/transport"
)

// Local actions build a StateUpdate, apply it through the exact same
// path as a remote one (so local and remote writes honor identical
// invariants, spec.md §4.4), then queue it for outbound publication.
// Two actions differ: SetSyncValue writes through the store's own
// version bump (SetSyncValue) instead of the resolver's version
// comparison, then queues the update; PublishMessage is not one of the
// resolver's four update kinds, so it is stored and published directly
// to the sink, without queueing (spec.md §6).

// CreatePeer announces (or re-announces) a locally known peer.
func (c *Coordinator) CreatePeer(info model.PeerInfo, peerID string) error {
	ts, _ := c.res.PrepareLocal()
	update := model.PeerUpdate{PeerID: peerID, Info: info, Timestamp: ts}
	if err := c.applyPeerUpdate(&update); err != nil {
		return err
	}
	c.enqueue(model.StateUpdate{Kind: model.UpdatePeer, Peer: &update})
	return nil
}

// RecordInteraction bumps the local reputation counters for peerID by
// one successful or failed interaction and publishes the result
// (spec.md §4.1 record_interaction).
func (c *Coordinator) RecordInteraction(peerID string, successful bool) error {
	local, known, err := c.loadReputation(peerID)
	if err != nil {
		return err
	}
	if !known {
		return replicaerr.NotFound("peer", peerID)
	}

	ts, _ := c.res.PrepareLocal()
	update := model.ReputationUpdate{
		PeerID:                 peerID,
		SuccessfulInteractions: local.SuccessfulInteractions,
		FailedInteractions:     local.FailedInteractions,
		Timestamp:              ts,
	}
	if successful {
		update.SuccessfulInteractions++
	} else {
		update.FailedInteractions++
	}

	if err := c.applyReputationUpdate(&update); err != nil {
		return err
	}
	c.enqueue(model.StateUpdate{Kind: model.UpdateReputation, Reputation: &update})
	return nil
}

// OpenCreditLine establishes or updates a mutual-credit line between
// creditor and debtor (spec.md §4.1 open_credit_line).
func (c *Coordinator) OpenCreditLine(creditor, debtor string, limit float64) error {
	ts, _ := c.res.PrepareLocal()
	balance := 0.0
	if existing, err := c.store.GetCreditRelationshipBetween(creditor, debtor); err == nil {
		balance = existing.Balance
	}

	update := model.CreditUpdate{
		Creditor:    creditor,
		Debtor:      debtor,
		CreditLimit: limit,
		Balance:     balance,
		Active:      true,
		Timestamp:   ts,
	}
	if err := c.applyCreditUpdate(&update); err != nil {
		return err
	}
	c.enqueue(model.StateUpdate{Kind: model.UpdateCredit, Credit: &update})
	return nil
}

// RecordCreditTransaction applies amount to the running balance of the
// relationship between creditor and debtor, appends a ledger entry, and
// publishes the updated balance (spec.md §4.1 record_credit_transaction).
func (c *Coordinator) RecordCreditTransaction(creditor, debtor string, amount float64, description string) error {
	existing, err := c.store.GetCreditRelationshipBetween(creditor, debtor)
	if err != nil {
		return err
	}

	ts, _ := c.res.PrepareLocal()
	newBalance := existing.Balance + amount

	if err := c.store.RecordCreditTransaction(model.CreditTransaction{
		RelationshipID: existing.ID(),
		Amount:         amount,
		BalanceAfter:   newBalance,
		Description:    description,
		At:             ts,
	}); err != nil {
		return err
	}

	update := model.CreditUpdate{
		Creditor:    creditor,
		Debtor:      debtor,
		CreditLimit: existing.CreditLimit,
		Balance:     newBalance,
		Active:      existing.Active,
		Timestamp:   ts,
	}
	if err := c.applyCreditUpdate(&update); err != nil {
		return err
	}
	c.enqueue(model.StateUpdate{Kind: model.UpdateCredit, Credit: &update})
	return nil
}

// SetSyncValue writes key locally at the next version and publishes the
// new value (spec.md §4.1 set_sync_value).
func (c *Coordinator) SetSyncValue(key string, value []byte) error {
	ts, _ := c.res.PrepareLocal()
	version, err := c.store.SetSyncValue(key, value)
	if err != nil {
		return err
	}

	update := model.KeyValueUpdate{Key: key, Value: value, Version: version, Timestamp: ts}
	c.enqueue(model.StateUpdate{Kind: model.UpdateKeyValue, KeyValue: &update})
	return nil
}

// PublishMessage stores m locally, caches it, and ships it straight to
// the publish sink — Message is not a resolver update kind, so there is
// no accept/reject step (spec.md §4.1, §6).
func (c *Coordinator) PublishMessage(ctx context.Context, sink transport.PublishSink, topicName string, m model.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}

	if err := c.store.StoreMessage(m); err != nil {
		return err
	}
	c.msgs.Insert(m)

	if sink == nil {
		return nil
	}
	return sink.Publish(ctx, topicName, m.Payload)
}
