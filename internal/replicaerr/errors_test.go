package replicaerr

import (
	"errors"
	"testing"
)

func TestWrappedKindsSatisfyErrorsIs(t *testing.T) {
	driverErr := errors.New("driver exploded")

	cases := []struct {
		name string
		err  error
		kind error
	}{
		{"Connection", Connection("store.Open", driverErr), ErrConnection},
		{"Migration", Migration("store.migrate", driverErr), ErrMigration},
		{"Serialization", Serialization("store.UpsertPeer", driverErr), ErrSerialization},
		{"Deserialization", Deserialization("store.GetPeer", driverErr), ErrDeserialize},
		{"Integrity", Integrity("store.StoreMessage", driverErr), ErrIntegrity},
	}

	for _, c := range cases {
		if !errors.Is(c.err, c.kind) {
			t.Fatalf("%s: expected errors.Is to match %v, got %v", c.name, c.kind, c.err)
		}
		if !errors.Is(c.err, driverErr) {
			t.Fatalf("%s: expected errors.Is to still reach the underlying driver error, got %v", c.name, c.err)
		}
	}
}

func TestNotFoundErrorSatisfiesErrorsIs(t *testing.T) {
	err := NotFound("peer", "p1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected NotFound to satisfy errors.Is(err, ErrNotFound), got %v", err)
	}
}
