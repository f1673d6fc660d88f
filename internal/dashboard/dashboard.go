// Package dashboard is a thin read-only query surface and live event
// feed over the replica's store and fan-out. The real dashboard UI is
// out of scope (spec.md §1) — this package exists only so the Event
// Fan-out and Durable Store have a consumer to exercise them end to
// end, following the teacher's internal/api package for HTTP wiring.
package dashboard

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"ledgermesh/internal/events"
	"ledgermesh/internal/model"
	"ledgermesh/internal/replicaerr"
	"ledgermesh/internal/store"
)

// Handler holds the dependencies injected from cmd/node.
type Handler struct {
	store  *store.Store
	fanout *events.Fanout
	selfID string
	log    *logrus.Entry
}

// NewHandler creates a Handler.
func NewHandler(st *store.Store, fanout *events.Fanout, selfID string, log *logrus.Entry) *Handler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Handler{store: st, fanout: fanout, selfID: selfID, log: log.WithField("component", "dashboard")}
}

// Register mounts all routes on r.
func (h *Handler) Register(r *gin.Engine) {
	r.Use(logger(h.log), recovery(h.log))

	r.GET("/health", h.Health)

	peers := r.Group("/peers")
	peers.GET("", h.ListPeers)
	peers.GET("/trusted", h.ListTrustedPeers)
	peers.GET("/:id", h.GetPeer)

	credit := r.Group("/credit")
	credit.GET("", h.ListActiveCredit)
	credit.GET("/:peer", h.ListCreditForPeer)

	messages := r.Group("/messages")
	messages.GET("/recent", h.ListRecentMessages)

	r.GET("/sync/:key", h.GetSyncValue)
	r.GET("/ws", h.LiveFeed)
}

// Health reports liveness and the node's identity.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"node": h.selfID, "status": "ok"})
}

// ListPeers handles GET /peers.
func (h *Handler) ListPeers(c *gin.Context) {
	peers, reps, err := h.store.ListPeers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, zipPeers(peers, reps))
}

// ListTrustedPeers handles GET /peers/trusted?threshold=0.7.
func (h *Handler) ListTrustedPeers(c *gin.Context) {
	threshold := 0.5
	if raw := c.Query("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid threshold"})
			return
		}
		threshold = parsed
	}
	peers, reps, err := h.store.ListTrustedPeers(threshold)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, zipPeers(peers, reps))
}

// GetPeer handles GET /peers/:id.
func (h *Handler) GetPeer(c *gin.Context) {
	peer, rep, err := h.store.GetPeer(c.Param("id"))
	if errors.Is(err, replicaerr.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "peer not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"peer": peer, "reputation": rep, "score": rep.Score()})
}

// ListActiveCredit handles GET /credit.
func (h *Handler) ListActiveCredit(c *gin.Context) {
	rels, err := h.store.ListActiveCreditRelationships()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rels)
}

// ListCreditForPeer handles GET /credit/:peer.
func (h *Handler) ListCreditForPeer(c *gin.Context) {
	rels, err := h.store.ListCreditRelationshipsFor(c.Param("peer"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rels)
}

// ListRecentMessages handles GET /messages/recent?limit=50.
func (h *Handler) ListRecentMessages(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}
	msgs, err := h.store.ListRecentMessages(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// GetSyncValue handles GET /sync/:key.
func (h *Handler) GetSyncValue(c *gin.Context) {
	value, version, err := h.store.GetSyncValue(c.Param("key"))
	if errors.Is(err, replicaerr.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "key not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": c.Param("key"), "value": value, "version": version})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// LiveFeed handles GET /ws: upgrades to a websocket and streams every
// fan-out event to the client as JSON until the connection closes.
func (h *Handler) LiveFeed(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := h.fanout.Subscribe()
	defer sub.Close()

	ctx := c.Request.Context()
	for {
		event, gap, err := sub.Next(ctx)
		if err != nil {
			return
		}
		if gap {
			h.log.Warn("dashboard client fell behind, cursor advanced past dropped events")
		}
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(event); err != nil {
			return
		}
	}
}

func zipPeers(peers []model.PeerRecord, reps []model.Reputation) []gin.H {
	out := make([]gin.H, len(peers))
	for i, p := range peers {
		out[i] = gin.H{"peer": p, "reputation": reps[i], "score": reps[i].Score()}
	}
	return out
}
