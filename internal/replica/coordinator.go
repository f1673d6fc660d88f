// Package replica is the Replica Coordinator from spec.md §4.4: the
// only component that writes through to both the Durable Store and the
// Memory Cache, keeping them consistent. It classifies inbound network
// events, invokes the Conflict Resolver, writes through store and
// cache, emits dashboard events, and turns local actions into outbound
// updates queued for the (out-of-scope) publish sink.
package replica

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"ledgermesh/internal/cache"
	"ledgermesh/internal/events"
	"ledgermesh/internal/model"
	"ledgermesh/internal/replicaerr"
	"ledgermesh/internal/resolver"
	"ledgermesh/internal/store"
	"ledgermesh/internal/topic"
	"ledgermesh/internal/transport"
)

// stateUpdateTopic is the reserved gossip topic carrying the JSON
// StateUpdate wire format (spec.md §6) — the channel the Conflict
// Resolver's four update kinds arrive on. Every other topic goes
// through the Topic Classifier (spec.md §4.6). This split is a wiring
// decision this repo makes to connect spec.md §4.3's resolver table to
// spec.md §4.4's single inbound NetworkEvent stream; see DESIGN.md.
const stateUpdateTopic = "state-sync"

// Config bundles the cache capacities from spec.md §4.2 defaults.
type Config struct {
	PeerCacheCapacity    int
	MessageCacheCapacity int
	CreditCacheCapacity  int
}

// DefaultConfig returns spec.md §4.2's stated defaults.
func DefaultConfig() Config {
	return Config{PeerCacheCapacity: 1000, MessageCacheCapacity: 5000, CreditCacheCapacity: 500}
}

// Coordinator orchestrates the replica (spec.md §4.4).
type Coordinator struct {
	selfID string
	store  *store.Store
	peers  *cache.PeerCache
	msgs   *cache.MessageCache
	credit *cache.CreditCache
	res    *resolver.Resolver
	fanout *events.Fanout
	log    *logrus.Entry

	messageCount atomic.Int64

	topicsMu sync.Mutex
	topics   map[string]struct{}

	pendingMu sync.Mutex
	pending   []model.StateUpdate
}

// New builds a Coordinator over an already-open Store.
func New(selfID string, st *store.Store, fanout *events.Fanout, cfg Config, log *logrus.Entry) *Coordinator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Coordinator{
		selfID: selfID,
		store:  st,
		peers:  cache.NewPeerCache(cfg.PeerCacheCapacity),
		msgs:   cache.NewMessageCache(cfg.MessageCacheCapacity),
		credit: cache.NewCreditCache(cfg.CreditCacheCapacity),
		res:    resolver.New(selfID),
		fanout: fanout,
		log:    log.WithField("component", "coordinator"),
		topics: make(map[string]struct{}),
	}
}

// MessageCount returns the process-wide message counter, incremented
// with relaxed ordering — a metric, not an invariant (spec.md §4.4, §5).
func (c *Coordinator) MessageCount() int64 {
	return c.messageCount.Load()
}

// Topics returns a snapshot of the current subscription set.
func (c *Coordinator) Topics() []string {
	c.topicsMu.Lock()
	defer c.topicsMu.Unlock()
	out := make([]string, 0, len(c.topics))
	for t := range c.topics {
		out = append(out, t)
	}
	return out
}

// DrainPendingUpdates atomically empties and returns the outbound
// StateUpdate queue, for the (out-of-scope) publish loop task to ship to
// the PublishSink (spec.md §4.4: "queue it for publication via
// drain_pending_updates").
func (c *Coordinator) DrainPendingUpdates() []model.StateUpdate {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	drained := c.pending
	c.pending = nil
	return drained
}

func (c *Coordinator) enqueue(u model.StateUpdate) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	c.pending = append(c.pending, u)
}

// ─── Network event stream (spec.md §4.4) ──────────────────────────────

// Run consumes stream until ctx is done or the stream returns an error.
func (c *Coordinator) Run(ctx context.Context, stream transport.EventStream) error {
	for {
		ev, err := stream.Next(ctx)
		if err != nil {
			return err
		}
		if err := c.HandleNetworkEvent(ctx, ev); err != nil {
			if errors.Is(err, replicaerr.ErrNotFound) {
				c.log.WithError(err).Debug("dropping network event: referenced entity not found")
			} else {
				c.log.WithError(err).Warn("dropping network event after handler error")
			}
		}
	}
}

// HandleNetworkEvent dispatches one inbound network event (spec.md §4.4).
func (c *Coordinator) HandleNetworkEvent(ctx context.Context, ev transport.NetworkEvent) error {
	switch ev.Kind {
	case transport.PeerConnected:
		return c.handlePeerConnected(ev)
	case transport.PeerDisconnected:
		c.fanout.Publish(events.New(events.PeerLeft, nowMillis(), map[string]any{
			"peer_id": ev.PeerID,
		}))
		return nil
	case transport.MessageReceived:
		return c.handleMessageReceived(ev)
	case transport.ListeningOn:
		c.log.WithField("address", ev.Address).Info("listening")
		return nil
	case transport.Subscribed:
		c.topicsMu.Lock()
		c.topics[ev.Topic] = struct{}{}
		c.topicsMu.Unlock()
		return nil
	case transport.Unsubscribed:
		c.topicsMu.Lock()
		delete(c.topics, ev.Topic)
		c.topicsMu.Unlock()
		return nil
	case transport.Started, transport.Stopped, transport.DialFailed, transport.MdnsDiscovered:
		c.log.WithField("kind", ev.Kind).Debug("transport lifecycle event")
		return nil
	default:
		c.log.WithField("kind", ev.Kind).Debug("unrecognized network event kind")
		return nil
	}
}

func (c *Coordinator) handlePeerConnected(ev transport.NetworkEvent) error {
	now := time.Now().UTC()
	rec := model.PeerRecord{
		PeerID:      ev.PeerID,
		PublicKey:   ev.PeerID,
		DisplayName: "Peer-" + firstN(ev.PeerID, 8),
		FirstSeen:   now,
		LastSeen:    now,
	}
	if err := c.store.UpsertPeer(rec, nil); err != nil {
		return err
	}
	stored, rep, err := c.store.GetPeer(rec.PeerID)
	if err != nil {
		return err
	}
	c.peers.Insert(stored, rep)

	c.fanout.Publish(events.New(events.PeerJoined, nowMillis(), map[string]any{
		"peer_id":         rec.PeerID,
		"display_name":    rec.DisplayName,
		"num_connections": ev.NumConnections,
	}))
	return nil
}

func (c *Coordinator) handleMessageReceived(ev transport.NetworkEvent) error {
	c.messageCount.Add(1)

	if ev.Topic == stateUpdateTopic {
		var update model.StateUpdate
		if err := json.Unmarshal(ev.Data, &update); err != nil {
			c.log.WithError(err).Debug("dropping undecodable state update")
			return nil
		}
		return c.ApplyRemoteUpdate(&update)
	}

	result := topic.Classify(ev.Topic, ev.Data)
	switch result.Classification {
	case topic.EconomicsEvent:
		c.emitEconomicsEvent(result)
	case topic.ChatLike:
		c.fanout.Publish(events.New(events.ChatMessage, nowMillis(), map[string]any{
			"message_id": ev.MessageID,
			"sender":     ev.Source,
			"topic":      ev.Topic,
			"data":       string(ev.Data),
		}))
	case topic.Opaque:
		// dropped silently (spec.md §4.4)
	}
	return nil
}

func (c *Coordinator) emitEconomicsEvent(r topic.Result) {
	ts := nowMillis()
	switch r.Family {
	case topic.FamilyVouch:
		v := r.Vouch
		kind := events.VouchRequest
		if v.Kind == "ack" {
			kind = events.VouchAck
		}
		c.fanout.Publish(events.New(kind, ts, map[string]any{
			"truster": v.Truster,
			"trustee": v.Trustee,
			"message": v.Message,
		}))
	case topic.FamilyCredit:
		cr := r.Credit
		kind := events.CreditLine
		if cr.Kind == "transfer" {
			kind = events.CreditTransfer
		}
		c.fanout.Publish(events.New(kind, ts, map[string]any{
			"creditor":     cr.Creditor,
			"debtor":       cr.Debtor,
			"amount":       cr.Amount,
			"credit_limit": cr.CreditLimit,
		}))
	case topic.FamilyGovernance:
		g := r.Governance
		if g.Kind == "vote" {
			c.fanout.Publish(events.New(events.VoteCast, ts, map[string]any{
				"proposal_id":   g.ProposalID,
				"voter":         g.Voter,
				"choice":        g.Choice,
				"votes_for":     g.VotesForUint32(),
				"votes_against": g.VotesAgainstUint32(),
			}))
			return
		}
		c.fanout.Publish(events.New(events.Proposal, ts, map[string]any{
			"proposal_id":    g.ProposalID,
			"title":          g.Title,
			"quorum_percent": g.QuorumPercent(),
		}))
	case topic.FamilyResource:
		res := r.Resource
		if res.Kind == "pool_update" {
			c.fanout.Publish(events.New(events.ResourcePoolUpdate, ts, map[string]any{
				"resource_type": res.ResourceType,
				"pool_total":    res.PoolTotal,
			}))
			return
		}
		c.fanout.Publish(events.New(events.ResourceContribution, ts, map[string]any{
			"contributor":   res.Contributor,
			"resource_type": res.ResourceType,
			"amount":        res.Amount,
		}))
	}
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func nowMillis() int64 {
	return time.Now().UTC().UnixMilli()
}
