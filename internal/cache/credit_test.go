package cache

import (
	"testing"

	"ledgermesh/internal/model"
)

func TestCreditCacheByPeerIndexBothEndpoints(t *testing.T) {
	c := NewCreditCache(10)
	c.Insert(model.CreditRelationship{Creditor: "alice", Debtor: "bob", Active: true})

	if len(c.ListForPeer("alice")) != 1 {
		t.Fatalf("expected relationship indexed under creditor")
	}
	if len(c.ListForPeer("bob")) != 1 {
		t.Fatalf("expected relationship indexed under debtor")
	}
	if len(c.ListForPeer("carol")) != 0 {
		t.Fatalf("expected no relationships for unrelated peer")
	}
}

func TestCreditCacheGetBetween(t *testing.T) {
	c := NewCreditCache(10)
	c.Insert(model.CreditRelationship{Creditor: "alice", Debtor: "bob", Balance: 5})

	rel, ok := c.GetBetween("alice", "bob")
	if !ok || rel.Balance != 5 {
		t.Fatalf("expected to find relationship by ordered pair")
	}
	if _, ok := c.GetBetween("bob", "alice"); ok {
		t.Fatalf("reversed pair should not resolve to the same relationship")
	}
}

func TestCreditCacheGetActive(t *testing.T) {
	c := NewCreditCache(10)
	c.Insert(model.CreditRelationship{Creditor: "a", Debtor: "b", Active: true})
	c.Insert(model.CreditRelationship{Creditor: "c", Debtor: "d", Active: false})

	active := c.GetActive()
	if len(active) != 1 || !active[0].Active {
		t.Fatalf("expected exactly one active relationship, got %+v", active)
	}
}
