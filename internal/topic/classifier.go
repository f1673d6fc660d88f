// Package topic is the Topic Classifier from spec.md §4.6: a pure
// function mapping (topic, payload bytes) to one of EconomicsEvent,
// ChatLike, or Opaque. The economics family is closed: Vouch, Credit,
// Governance, Resource, recognized either by an "econ.<family>" prefix
// or by the bare family name as the topic (implementer's choice per
// spec.md §4.6).
package topic

import (
	"encoding/json"
	"math"
	"strings"
	"unicode/utf8"
)

// Family is one of the closed economics message families.
type Family string

const (
	FamilyVouch      Family = "vouch"
	FamilyCredit     Family = "credit"
	FamilyGovernance Family = "governance"
	FamilyResource   Family = "resource"
)

// Classification is the closed outcome of Classify (spec.md property 7:
// totality — every input maps to exactly one of these three).
type Classification int

const (
	Opaque Classification = iota
	EconomicsEvent
	ChatLike
)

// Result is the outcome of classifying one (topic, payload) pair.
type Result struct {
	Classification Classification
	Family         Family // valid only when Classification == EconomicsEvent

	Vouch      *VouchPayload
	Credit     *CreditPayload
	Governance *GovernancePayload
	Resource   *ResourcePayload
}

// VouchPayload carries a reputation vouch request or acknowledgement.
type VouchPayload struct {
	Kind    string `json:"kind"` // "request" | "ack"
	Truster string `json:"truster"`
	Trustee string `json:"trustee"`
	Message string `json:"message,omitempty"`
}

// CreditPayload carries a mutual-credit line open or transfer.
type CreditPayload struct {
	Kind        string  `json:"kind"` // "line" | "transfer"
	Creditor    string  `json:"creditor"`
	Debtor      string  `json:"debtor"`
	Amount      float64 `json:"amount,omitempty"`
	CreditLimit float64 `json:"credit_limit,omitempty"`
}

// GovernancePayload carries a proposal or a vote cast against one.
// Quorum arrives as a real in [0, 1]; vote tallies arrive as reals
// (weighted voting) — both are rendered for the dashboard at the
// boundary (spec.md §4.6).
type GovernancePayload struct {
	Kind         string  `json:"kind"` // "proposal" | "vote"
	ProposalID   string  `json:"proposal_id"`
	Title        string  `json:"title,omitempty"`
	Quorum       float64 `json:"quorum,omitempty"`
	Voter        string  `json:"voter,omitempty"`
	Choice       string  `json:"choice,omitempty"`
	VotesFor     float64 `json:"votes_for,omitempty"`
	VotesAgainst float64 `json:"votes_against,omitempty"`
}

// QuorumPercent renders Quorum as floor(quorum * 100) for the dashboard
// (spec.md §4.6).
func (g GovernancePayload) QuorumPercent() int {
	return int(math.Floor(g.Quorum * 100))
}

// VotesForUint32 truncates the weighted tally to an unsigned 32-bit
// value for dashboard display (spec.md §4.6).
func (g GovernancePayload) VotesForUint32() uint32 {
	return truncateToUint32(g.VotesFor)
}

// VotesAgainstUint32 truncates the weighted tally to an unsigned 32-bit
// value for dashboard display (spec.md §4.6).
func (g GovernancePayload) VotesAgainstUint32() uint32 {
	return truncateToUint32(g.VotesAgainst)
}

func truncateToUint32(v float64) uint32 {
	if v <= 0 {
		return 0
	}
	if v >= math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

// ResourcePayload carries a resource contribution or a pool update.
type ResourcePayload struct {
	Kind         string  `json:"kind"` // "contribution" | "pool_update"
	Contributor  string  `json:"contributor,omitempty"`
	ResourceType string  `json:"resource_type,omitempty"`
	Amount       float64 `json:"amount,omitempty"`
	PoolTotal    float64 `json:"pool_total,omitempty"`
}

var chatSubstrings = []string{"chat", "content", "direct"}

// Classify maps a (topic, payload) pair to exactly one outcome
// (spec.md property 7). Payload decode failures for an economics-named
// topic return Opaque rather than an error (spec.md §4.6, §7).
func Classify(topicName string, payload []byte) Result {
	if family, ok := economicsFamily(topicName); ok {
		if r, ok := decodeEconomics(family, payload); ok {
			return r
		}
		return Result{Classification: Opaque}
	}

	lower := strings.ToLower(topicName)
	for _, s := range chatSubstrings {
		if strings.Contains(lower, s) {
			if utf8Valid(payload) {
				return Result{Classification: ChatLike}
			}
			return Result{Classification: Opaque}
		}
	}

	return Result{Classification: Opaque}
}

// economicsFamily recognizes "econ.<family>" or a bare family name.
func economicsFamily(topicName string) (Family, bool) {
	name := strings.ToLower(topicName)
	if after, found := strings.CutPrefix(name, "econ."); found {
		name = after
	}
	switch Family(name) {
	case FamilyVouch, FamilyCredit, FamilyGovernance, FamilyResource:
		return Family(name), true
	}
	return "", false
}

func decodeEconomics(family Family, payload []byte) (Result, bool) {
	switch family {
	case FamilyVouch:
		var p VouchPayload
		if json.Unmarshal(payload, &p) != nil {
			return Result{}, false
		}
		return Result{Classification: EconomicsEvent, Family: family, Vouch: &p}, true
	case FamilyCredit:
		var p CreditPayload
		if json.Unmarshal(payload, &p) != nil {
			return Result{}, false
		}
		return Result{Classification: EconomicsEvent, Family: family, Credit: &p}, true
	case FamilyGovernance:
		var p GovernancePayload
		if json.Unmarshal(payload, &p) != nil {
			return Result{}, false
		}
		return Result{Classification: EconomicsEvent, Family: family, Governance: &p}, true
	case FamilyResource:
		var p ResourcePayload
		if json.Unmarshal(payload, &p) != nil {
			return Result{}, false
		}
		return Result{Classification: EconomicsEvent, Family: family, Resource: &p}, true
	}
	return Result{}, false
}

func utf8Valid(b []byte) bool {
	return utf8.Valid(b)
}
