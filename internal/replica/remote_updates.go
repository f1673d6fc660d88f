package replica

import (
	"errors"

	"ledgermesh/internal/events"
	"ledgermesh/internal/model"
	"ledgermesh/internal/replicaerr"
	"ledgermesh/internal/resolver"
)

// ApplyRemoteUpdate runs one StateUpdate through the Conflict Resolver
// and, if accepted, writes it to the store. Peer, reputation and credit
// updates are then written to the cache as well; key/value updates have
// no cache and go to the store only. Reputation and credit updates emit
// a dashboard event; peer and key/value updates emit none. Rejected
// updates are dropped silently — rejection is not an error (spec.md §7).
func (c *Coordinator) ApplyRemoteUpdate(update *model.StateUpdate) error {
	switch update.Kind {
	case model.UpdatePeer:
		return c.applyPeerUpdate(update.Peer)
	case model.UpdateReputation:
		return c.applyReputationUpdate(update.Reputation)
	case model.UpdateCredit:
		return c.applyCreditUpdate(update.Credit)
	case model.UpdateKeyValue:
		return c.applyKeyValueUpdate(update.KeyValue)
	default:
		c.log.WithField("kind", update.Kind).Debug("unrecognized state update kind")
		return nil
	}
}

func (c *Coordinator) applyPeerUpdate(u *model.PeerUpdate) error {
	if !c.res.AcceptPeerUpdate(*u) {
		return nil
	}

	firstSeen := u.Timestamp
	if existing, _, err := c.store.GetPeer(u.PeerID); err == nil {
		firstSeen = existing.FirstSeen
	} else if !errors.Is(err, replicaerr.ErrNotFound) {
		return err
	}

	rec := model.PeerRecord{
		PeerID:      u.PeerID,
		PublicKey:   u.Info.PublicKey,
		Addresses:   u.Info.Addresses,
		DisplayName: u.Info.Name,
		FirstSeen:   firstSeen,
		LastSeen:    u.Timestamp,
	}
	if err := c.store.UpsertPeer(rec, nil); err != nil {
		return err
	}

	stored, rep, err := c.store.GetPeer(u.PeerID)
	if err != nil {
		return err
	}
	c.peers.Insert(stored, rep)

	c.res.ObserveRemoteTick(u.PeerID)
	return nil
}

func (c *Coordinator) applyReputationUpdate(u *model.ReputationUpdate) error {
	local, known, err := c.loadReputation(u.PeerID)
	if err != nil {
		return err
	}
	if !known {
		// spec.md §4.3: a ReputationUpdate for a peer the store has
		// never seen is rejected and dropped silently, not fabricated
		// against a zero baseline.
		return nil
	}

	merged, accepted := resolver.MergeReputation(local, *u)
	if !accepted {
		return nil
	}
	merged.AppendHistory(u.Timestamp)

	if err := c.store.UpdatePeerReputation(u.PeerID, merged); err != nil {
		return err
	}
	c.peers.UpdateReputation(u.PeerID, merged)

	c.fanout.Publish(events.New(events.ReputationUpdate, nowMillis(), map[string]any{
		"peer_id": u.PeerID,
		"score":   merged.Score(),
	}))

	c.res.ObserveRemoteTick(u.PeerID)
	return nil
}

// loadReputation returns the peer's current reputation and whether the
// peer is known at all. An unknown peer (no cache entry, no store row)
// reports known=false so the caller can drop the update instead of
// merging against a fabricated zero baseline (spec.md §4.3).
func (c *Coordinator) loadReputation(peerID string) (model.Reputation, bool, error) {
	if _, rep, ok := c.peers.Peek(peerID); ok {
		return rep, true, nil
	}
	_, rep, err := c.store.GetPeer(peerID)
	if errors.Is(err, replicaerr.ErrNotFound) {
		return model.Reputation{}, false, nil
	}
	if err != nil {
		return model.Reputation{}, false, err
	}
	return rep, true, nil
}

func (c *Coordinator) applyCreditUpdate(u *model.CreditUpdate) error {
	if !c.res.AcceptCreditUpdate(*u) {
		return nil
	}

	rel := model.CreditRelationship{
		Creditor:        u.Creditor,
		Debtor:          u.Debtor,
		CreditLimit:     u.CreditLimit,
		Balance:         u.Balance,
		Active:          u.Active,
		LastTransaction: u.Timestamp,
	}
	if existing, err := c.store.GetCreditRelationshipBetween(u.Creditor, u.Debtor); err == nil {
		rel.Established = existing.Established
	} else if errors.Is(err, replicaerr.ErrNotFound) {
		rel.Established = u.Timestamp
	} else {
		return err
	}

	if err := c.store.UpsertCreditRelationship(rel); err != nil {
		return err
	}
	c.credit.Insert(rel)

	c.fanout.Publish(events.New(events.CreditLine, nowMillis(), map[string]any{
		"creditor":     rel.Creditor,
		"debtor":       rel.Debtor,
		"balance":      rel.Balance,
		"credit_limit": rel.CreditLimit,
		"active":       rel.Active,
	}))

	c.res.ObserveRemoteTick(u.Creditor)
	return nil
}

func (c *Coordinator) applyKeyValueUpdate(u *model.KeyValueUpdate) error {
	_, localVersion, err := c.store.GetSyncValue(u.Key)
	if err != nil && !errors.Is(err, replicaerr.ErrNotFound) {
		return err
	}

	if !resolver.AcceptKeyValueUpdate(localVersion, u.Version) {
		return nil
	}
	return c.store.SetSyncValueAtVersion(u.Key, u.Value, u.Version)
}
