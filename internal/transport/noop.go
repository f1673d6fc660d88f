package transport

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LoggingSink is a PublishSink that only logs the outbound gossip —
// there is no real transport wired up in this repo (spec.md §1: the
// P2P transport is an out-of-scope collaborator). It lets the rest of
// the replica be exercised without a live libp2p stack.
type LoggingSink struct {
	log *logrus.Entry
}

// NewLoggingSink builds a LoggingSink.
func NewLoggingSink(log *logrus.Entry) *LoggingSink {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &LoggingSink{log: log.WithField("component", "transport")}
}

// Publish logs the (topic, size) pair and always succeeds.
func (s *LoggingSink) Publish(_ context.Context, topicName string, data []byte) error {
	s.log.WithFields(logrus.Fields{"topic": topicName, "bytes": len(data)}).Debug("publish")
	return nil
}

// IdleStream is an EventStream that never produces an event on its own —
// it only unblocks when ctx is canceled. Use it to run the coordinator's
// Run loop against a transport that has not connected to any peers yet.
type IdleStream struct{}

// Next blocks until ctx is done.
func (IdleStream) Next(ctx context.Context) (NetworkEvent, error) {
	<-ctx.Done()
	return NetworkEvent{}, ctx.Err()
}
