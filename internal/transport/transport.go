// Package transport defines the boundary between the replica and the
// out-of-scope P2P transport (spec.md §1, §4.4, §6). The replica
// consumes a NetworkEvent stream and calls out to a PublishSink for
// outbound updates; it never dials peers, manages topics, or performs
// discovery itself.
package transport

import "context"

// NetworkEventKind is the closed set of variants the coordinator
// recognizes from the transport collaborator (spec.md §4.4).
type NetworkEventKind string

const (
	PeerConnected    NetworkEventKind = "PeerConnected"
	PeerDisconnected NetworkEventKind = "PeerDisconnected"
	MessageReceived  NetworkEventKind = "MessageReceived"
	ListeningOn      NetworkEventKind = "ListeningOn"
	Subscribed       NetworkEventKind = "Subscribed"
	Unsubscribed     NetworkEventKind = "Unsubscribed"
	Started          NetworkEventKind = "Started"
	Stopped          NetworkEventKind = "Stopped"
	DialFailed       NetworkEventKind = "DialFailed"
	MdnsDiscovered   NetworkEventKind = "MdnsDiscovered"
)

// NetworkEvent is one event from the inbound transport stream. Fields
// not relevant to Kind are left zero-valued.
type NetworkEvent struct {
	Kind NetworkEventKind

	// PeerConnected
	PeerID         string
	NumConnections int

	// MessageReceived
	MessageID string
	Topic     string
	Source    string // optional sender hint, empty if unknown
	Data      []byte
	Timestamp int64 // unix millis, as delivered by the transport

	// ListeningOn
	Address string
}

// EventStream is a lazy, single-consumer sequence of NetworkEvents
// (spec.md §4.4). Implementations are supplied by the (out-of-scope)
// transport layer; the coordinator only ever calls Next.
type EventStream interface {
	// Next blocks until an event is available or ctx is done.
	Next(ctx context.Context) (NetworkEvent, error)
}

// PublishSink accepts (topic, bytes) pairs for outbound gossip
// (spec.md §6). Implementations are supplied by the transport layer.
type PublishSink interface {
	Publish(ctx context.Context, topic string, data []byte) error
}
