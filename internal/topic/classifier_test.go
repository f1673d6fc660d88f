package topic

import (
	"encoding/json"
	"testing"
)

func TestClassifyVouchByEconPrefix(t *testing.T) {
	payload, _ := json.Marshal(VouchPayload{Kind: "request", Truster: "a", Trustee: "b"})
	result := Classify("econ.vouch", payload)
	if result.Classification != EconomicsEvent || result.Family != FamilyVouch {
		t.Fatalf("expected an economics vouch event, got %+v", result)
	}
	if result.Vouch.Truster != "a" {
		t.Fatalf("expected decoded vouch payload")
	}
}

func TestClassifyCreditByBareName(t *testing.T) {
	payload, _ := json.Marshal(CreditPayload{Kind: "line", Creditor: "a", Debtor: "b", CreditLimit: 100})
	result := Classify("credit", payload)
	if result.Classification != EconomicsEvent || result.Family != FamilyCredit {
		t.Fatalf("expected a credit event, got %+v", result)
	}
}

func TestClassifyGovernanceQuorumAndVotes(t *testing.T) {
	payload, _ := json.Marshal(GovernancePayload{Kind: "vote", ProposalID: "p1", VotesFor: 42, Quorum: 0.667})
	result := Classify("econ.governance", payload)
	if result.Classification != EconomicsEvent {
		t.Fatalf("expected governance classification")
	}
	if result.Governance.QuorumPercent() != 66 {
		t.Fatalf("expected floor(0.667*100) = 66, got %d", result.Governance.QuorumPercent())
	}
	if result.Governance.VotesForUint32() != 42 {
		t.Fatalf("expected votes_for truncated to 42")
	}
}

func TestClassifyResourceUndecodablePayloadIsOpaque(t *testing.T) {
	result := Classify("resource", []byte("not json"))
	if result.Classification != Opaque {
		t.Fatalf("expected decode failure on an economics-named topic to yield Opaque")
	}
}

func TestClassifyChatLikeByTopicSubstring(t *testing.T) {
	result := Classify("room-42-chat", []byte("hello there"))
	if result.Classification != ChatLike {
		t.Fatalf("expected ChatLike classification")
	}
}

func TestClassifyChatLikeInvalidUTF8IsOpaque(t *testing.T) {
	result := Classify("direct-message", []byte{0xff, 0xfe, 0xfd})
	if result.Classification != Opaque {
		t.Fatalf("expected invalid UTF-8 chat payload to be Opaque")
	}
}

func TestClassifyUnknownTopicIsOpaque(t *testing.T) {
	result := Classify("some-random-topic", []byte("whatever"))
	if result.Classification != Opaque {
		t.Fatalf("expected unrecognized topic to be Opaque")
	}
}

func TestClassifyIsTotal(t *testing.T) {
	inputs := []struct {
		topic   string
		payload []byte
	}{
		{"econ.vouch", []byte("{}")},
		{"econ.vouch", []byte("not json")},
		{"", nil},
		{"chat", []byte{0xff}},
	}
	for _, in := range inputs {
		result := Classify(in.topic, in.payload)
		switch result.Classification {
		case Opaque, EconomicsEvent, ChatLike:
		default:
			t.Fatalf("Classify(%q, %q) returned an unrecognized classification", in.topic, in.payload)
		}
	}
}
