package events

// Kind is the closed tagged union of dashboard event types (spec.md §4.5).
type Kind string

const (
	PeerJoined            Kind = "PeerJoined"
	PeerLeft              Kind = "PeerLeft"
	ChatMessage           Kind = "ChatMessage"
	VouchRequest          Kind = "VouchRequest"
	VouchAck              Kind = "VouchAck"
	ReputationUpdate      Kind = "ReputationUpdate"
	CreditLine            Kind = "CreditLine"
	CreditTransfer        Kind = "CreditTransfer"
	Proposal              Kind = "Proposal"
	VoteCast              Kind = "VoteCast"
	ResourceContribution  Kind = "ResourceContribution"
	ResourcePoolUpdate    Kind = "ResourcePoolUpdate"
)

// Event is the JSON-encoded dashboard envelope (spec.md §4.5, §6). It is
// a serialization boundary toward the dashboard: ids are always
// strings, and TimestampMillis is milliseconds since epoch, kept stable
// even if the internal model types change shape.
type Event struct {
	Kind            Kind           `json:"kind"`
	TimestampMillis int64          `json:"timestamp_ms"`
	Fields          map[string]any `json:"fields"`
}

// New builds an Event, copying fields into a fresh map so callers can't
// mutate a published event after the fact.
func New(kind Kind, timestampMillis int64, fields map[string]any) Event {
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return Event{Kind: kind, TimestampMillis: timestampMillis, Fields: copied}
}
