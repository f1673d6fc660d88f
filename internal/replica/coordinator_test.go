package replica

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"ledgermesh/internal/events"
	"ledgermesh/internal/model"
	"ledgermesh/internal/store"
	"ledgermesh/internal/transport"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *events.Fanout) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "replica.db"), "self")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	fanout := events.New()
	return New("self", st, fanout, DefaultConfig(), nil), fanout
}

func TestHandlePeerConnectedSynthesizesDisplayName(t *testing.T) {
	c, fanout := newTestCoordinator(t)
	sub := fanout.Subscribe()
	defer sub.Close()

	err := c.HandleNetworkEvent(context.Background(), transport.NetworkEvent{
		Kind: transport.PeerConnected, PeerID: "12D3KooWABCDEFGH", NumConnections: 1,
	})
	if err != nil {
		t.Fatalf("handle peer connected: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	event, _, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("expected a PeerJoined event: %v", err)
	}
	if event.Kind != events.PeerJoined {
		t.Fatalf("expected PeerJoined, got %v", event.Kind)
	}
	if event.Fields["display_name"] != "Peer-12D3KooW" {
		t.Fatalf("expected synthesized display name, got %v", event.Fields["display_name"])
	}
}

func TestHandlePeerDisconnectedEmitsPeerLeft(t *testing.T) {
	c, fanout := newTestCoordinator(t)
	sub := fanout.Subscribe()
	defer sub.Close()

	if err := c.HandleNetworkEvent(context.Background(), transport.NetworkEvent{
		Kind: transport.PeerDisconnected, PeerID: "p1",
	}); err != nil {
		t.Fatalf("handle peer disconnected: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	event, _, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("expected a PeerLeft event: %v", err)
	}
	if event.Kind != events.PeerLeft || event.Fields["peer_id"] != "p1" {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestStateUpdateTopicRoutesThroughResolver(t *testing.T) {
	c, _ := newTestCoordinator(t)

	update := model.StateUpdate{
		Kind: model.UpdatePeer,
		Peer: &model.PeerUpdate{
			PeerID:    "remote-1",
			Info:      model.PeerInfo{PublicKey: "pub", Name: "Remote"},
			Timestamp: time.Now().UTC(),
		},
	}
	data, err := json.Marshal(update)
	if err != nil {
		t.Fatalf("marshal update: %v", err)
	}

	if err := c.HandleNetworkEvent(context.Background(), transport.NetworkEvent{
		Kind: transport.MessageReceived, Topic: stateUpdateTopic, Data: data,
	}); err != nil {
		t.Fatalf("handle state update: %v", err)
	}

	rec, _, ok := c.peers.Get("remote-1")
	if !ok || rec.DisplayName != "Remote" {
		t.Fatalf("expected the remote peer to land in the cache, got %+v ok=%v", rec, ok)
	}
}

func TestChatTopicEmitsDashboardEventOnly(t *testing.T) {
	c, fanout := newTestCoordinator(t)
	sub := fanout.Subscribe()
	defer sub.Close()

	if err := c.HandleNetworkEvent(context.Background(), transport.NetworkEvent{
		Kind: transport.MessageReceived, Topic: "general-chat", Data: []byte("hello"),
	}); err != nil {
		t.Fatalf("handle chat message: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	event, _, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("expected a ChatMessage event: %v", err)
	}
	if event.Kind != events.ChatMessage {
		t.Fatalf("expected ChatMessage, got %v", event.Kind)
	}

	if c.peers.Len() != 0 {
		t.Fatalf("a chat message should never mutate the peer cache")
	}
}

func TestRecordInteractionAcceptsAndQueuesOutboundUpdate(t *testing.T) {
	c, _ := newTestCoordinator(t)

	if err := c.CreatePeer(model.PeerInfo{PublicKey: "pub"}, "local-peer"); err != nil {
		t.Fatalf("create peer: %v", err)
	}
	if err := c.RecordInteraction("local-peer", true); err != nil {
		t.Fatalf("record interaction: %v", err)
	}

	pending := c.DrainPendingUpdates()
	var sawReputation bool
	for _, u := range pending {
		if u.Kind == model.UpdateReputation {
			sawReputation = true
			if u.Reputation.SuccessfulInteractions != 1 {
				t.Fatalf("expected successful interaction count 1, got %d", u.Reputation.SuccessfulInteractions)
			}
		}
	}
	if !sawReputation {
		t.Fatalf("expected a ReputationUpdate to be queued for outbound publication")
	}
}

func TestApplyRemoteUpdateDropsReputationForUnknownPeer(t *testing.T) {
	c, fanout := newTestCoordinator(t)
	sub := fanout.Subscribe()
	defer sub.Close()

	update := &model.StateUpdate{Kind: model.UpdateReputation, Reputation: &model.ReputationUpdate{
		PeerID: "ghost", SuccessfulInteractions: 5, Timestamp: time.Now().UTC(),
	}}
	if err := c.ApplyRemoteUpdate(update); err != nil {
		t.Fatalf("expected an unknown-peer reputation update to be dropped, not errored: %v", err)
	}

	if _, _, ok := c.peers.Get("ghost"); ok {
		t.Fatalf("expected no cache entry to be fabricated for an unknown peer")
	}
	if _, _, err := c.store.GetPeer("ghost"); err == nil {
		t.Fatalf("expected no store row to be created for an unknown peer")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, _, err := sub.Next(ctx); err == nil {
		t.Fatalf("expected no dashboard event for a dropped reputation update")
	}
}

func TestApplyRemoteUpdateRejectsStaleKeyValue(t *testing.T) {
	c, _ := newTestCoordinator(t)

	first := &model.StateUpdate{Kind: model.UpdateKeyValue, KeyValue: &model.KeyValueUpdate{
		Key: "k", Value: []byte("new"), Version: 5,
	}}
	if err := c.ApplyRemoteUpdate(first); err != nil {
		t.Fatalf("apply first key value update: %v", err)
	}

	stale := &model.StateUpdate{Kind: model.UpdateKeyValue, KeyValue: &model.KeyValueUpdate{
		Key: "k", Value: []byte("stale"), Version: 3,
	}}
	if err := c.ApplyRemoteUpdate(stale); err != nil {
		t.Fatalf("apply stale key value update: %v", err)
	}

	value, version, err := c.store.GetSyncValue("k")
	if err != nil {
		t.Fatalf("get sync value: %v", err)
	}
	if string(value) != "new" || version != 5 {
		t.Fatalf("expected the stale update to be rejected, got %q v%d", value, version)
	}
}
