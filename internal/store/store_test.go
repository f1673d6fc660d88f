package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"ledgermesh/internal/model"
	"ledgermesh/internal/replicaerr"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "replica.db")
	s, err := Open(path, "test-node")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertAndGetPeer(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	rec := model.PeerRecord{
		PeerID:      "p1",
		PublicKey:   "pub1",
		Addresses:   []string{"/ip4/127.0.0.1/tcp/4001"},
		DisplayName: "Alice",
		FirstSeen:   now,
		LastSeen:    now,
	}
	if err := s.UpsertPeer(rec, nil); err != nil {
		t.Fatalf("upsert peer: %v", err)
	}

	got, rep, err := s.GetPeer("p1")
	if err != nil {
		t.Fatalf("get peer: %v", err)
	}
	if got.DisplayName != "Alice" || len(got.Addresses) != 1 {
		t.Fatalf("unexpected peer round-trip: %+v", got)
	}
	if rep.Score() != 0.5 {
		t.Fatalf("expected default score 0.5 for a peer with no interactions, got %v", rep.Score())
	}
}

func TestUpsertPeerPreservesNameOnBlankReannounce(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC()

	if err := s.UpsertPeer(model.PeerRecord{PeerID: "p1", DisplayName: "Alice", FirstSeen: now, LastSeen: now}, nil); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := s.UpsertPeer(model.PeerRecord{PeerID: "p1", FirstSeen: now, LastSeen: now.Add(time.Minute)}, nil); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, _, err := s.GetPeer("p1")
	if err != nil {
		t.Fatalf("get peer: %v", err)
	}
	if got.DisplayName != "Alice" {
		t.Fatalf("expected display name to survive a blank re-announce, got %q", got.DisplayName)
	}
}

func TestGetPeerNotFound(t *testing.T) {
	s := openTestStore(t)
	_, _, err := s.GetPeer("ghost")
	if !errors.Is(err, replicaerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListTrustedPeersFiltersByScore(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC()

	s.UpsertPeer(model.PeerRecord{PeerID: "good", FirstSeen: now, LastSeen: now}, &model.Reputation{SuccessfulInteractions: 9, FailedInteractions: 1})
	s.UpsertPeer(model.PeerRecord{PeerID: "bad", FirstSeen: now, LastSeen: now}, &model.Reputation{SuccessfulInteractions: 1, FailedInteractions: 9})

	trusted, _, err := s.ListTrustedPeers(0.5)
	if err != nil {
		t.Fatalf("list trusted peers: %v", err)
	}
	if len(trusted) != 1 || trusted[0].PeerID != "good" {
		t.Fatalf("expected only the high-reputation peer, got %+v", trusted)
	}
}

func TestStoreMessageDuplicateIsNoOp(t *testing.T) {
	s := openTestStore(t)
	msg := model.Message{ID: "m1", MessageType: model.MessageContent, Sender: "alice", Payload: []byte("hi"), Timestamp: time.Now().UTC()}

	if err := s.StoreMessage(msg); err != nil {
		t.Fatalf("store message: %v", err)
	}
	if err := s.StoreMessage(msg); err != nil {
		t.Fatalf("duplicate store should be a no-op, not an error: %v", err)
	}

	got, err := s.GetMessage("m1")
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if string(got.Payload) != "hi" {
		t.Fatalf("unexpected payload round-trip: %q", got.Payload)
	}
}

func TestCreditRelationshipRoundTrip(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC()

	rel := model.CreditRelationship{
		Creditor: "alice", Debtor: "bob", CreditLimit: 100, Balance: 10, Active: true,
		Established: now, LastTransaction: now,
	}
	if err := s.UpsertCreditRelationship(rel); err != nil {
		t.Fatalf("upsert credit relationship: %v", err)
	}

	got, err := s.GetCreditRelationshipBetween("alice", "bob")
	if err != nil {
		t.Fatalf("get credit relationship: %v", err)
	}
	if got.Balance != 10 || got.CreditLimit != 100 {
		t.Fatalf("unexpected round-trip: %+v", got)
	}

	if _, err := s.GetCreditRelationshipBetween("bob", "alice"); !errors.Is(err, replicaerr.ErrNotFound) {
		t.Fatalf("reversed pair should not resolve to the same relationship")
	}
}

func TestCreditRelationshipAcceptsUnknownPeers(t *testing.T) {
	// SPEC_FULL.md Open Question decision 4: no foreign-key constraint
	// ties credit relationships to the peers table.
	s := openTestStore(t)
	rel := model.CreditRelationship{Creditor: "ghost-a", Debtor: "ghost-b", Active: true}
	if err := s.UpsertCreditRelationship(rel); err != nil {
		t.Fatalf("expected credit relationship for unknown peers to be accepted: %v", err)
	}
}

func TestSyncValueVersionIncrements(t *testing.T) {
	s := openTestStore(t)

	v1, err := s.SetSyncValue("k1", []byte("a"))
	if err != nil {
		t.Fatalf("set sync value: %v", err)
	}
	if v1 != 1 {
		t.Fatalf("expected first version 1, got %d", v1)
	}

	v2, err := s.SetSyncValue("k1", []byte("b"))
	if err != nil {
		t.Fatalf("set sync value: %v", err)
	}
	if v2 != 2 {
		t.Fatalf("expected version to bump to 2, got %d", v2)
	}

	value, version, err := s.GetSyncValue("k1")
	if err != nil {
		t.Fatalf("get sync value: %v", err)
	}
	if string(value) != "b" || version != 2 {
		t.Fatalf("unexpected sync value state: %q v%d", value, version)
	}
}

func TestPruneMessagesDeletesOnlyOlderThanCutoff(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC()

	old := model.Message{ID: "old", MessageType: model.MessageContent, Sender: "alice", Payload: []byte("old"), Timestamp: now.Add(-2 * time.Hour)}
	recent := model.Message{ID: "recent", MessageType: model.MessageContent, Sender: "alice", Payload: []byte("recent"), Timestamp: now}
	if err := s.StoreMessage(old); err != nil {
		t.Fatalf("store old message: %v", err)
	}
	if err := s.StoreMessage(recent); err != nil {
		t.Fatalf("store recent message: %v", err)
	}

	n, err := s.PruneMessages(int64(time.Hour.Seconds()))
	if err != nil {
		t.Fatalf("prune messages: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected exactly the two-hour-old message pruned, got %d", n)
	}

	if _, err := s.GetMessage("old"); !errors.Is(err, replicaerr.ErrNotFound) {
		t.Fatalf("expected old message to be gone, got err=%v", err)
	}
	if _, err := s.GetMessage("recent"); err != nil {
		t.Fatalf("expected recent message to survive prune: %v", err)
	}
}

func TestDeletePeerNotFoundIsError(t *testing.T) {
	s := openTestStore(t)
	if err := s.DeletePeer("ghost"); !errors.Is(err, replicaerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting a peer that doesn't exist, got %v", err)
	}
}
