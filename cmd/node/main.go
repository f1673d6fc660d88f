// cmd/node is the main entrypoint for a cooperative-network replica
// node.
//
// Configuration is entirely via flags so a single binary can run any
// node in the network.
//
// Example:
//
//	./node --node-id alice --data-dir /var/ledgermesh/alice --dashboard-addr :8080
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ledgermesh/internal/dashboard"
	"ledgermesh/internal/events"
	"ledgermesh/internal/replica"
	"ledgermesh/internal/store"
	"ledgermesh/internal/transport"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		nodeID          string
		dataDir         string
		dashboardAddr   string
		peerCacheSize   int
		messageCacheSize int
		creditCacheSize int
		logLevel        string
	)

	cmd := &cobra.Command{
		Use:   "node",
		Short: "Run a cooperative-network replica node",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(logLevel).WithField("node_id", nodeID)
			return run(cmd.Context(), nodeOptions{
				nodeID:           nodeID,
				dataDir:          dataDir,
				dashboardAddr:    dashboardAddr,
				peerCacheSize:    peerCacheSize,
				messageCacheSize: messageCacheSize,
				creditCacheSize:  creditCacheSize,
			}, log)
		},
	}

	cmd.Flags().StringVar(&nodeID, "node-id", "node1", "unique identifier for this replica")
	cmd.Flags().StringVar(&dataDir, "data-dir", "/tmp/ledgermesh", "directory for the durable store's database file")
	cmd.Flags().StringVar(&dashboardAddr, "dashboard-addr", ":8080", "listen address for the dashboard query surface")
	cmd.Flags().IntVar(&peerCacheSize, "peer-cache-size", replica.DefaultConfig().PeerCacheCapacity, "bounded peer cache capacity")
	cmd.Flags().IntVar(&messageCacheSize, "message-cache-size", replica.DefaultConfig().MessageCacheCapacity, "bounded message cache capacity")
	cmd.Flags().IntVar(&creditCacheSize, "credit-cache-size", replica.DefaultConfig().CreditCacheCapacity, "bounded credit relationship cache capacity")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "logrus level: trace, debug, info, warn, error")

	return cmd
}

type nodeOptions struct {
	nodeID           string
	dataDir          string
	dashboardAddr    string
	peerCacheSize    int
	messageCacheSize int
	creditCacheSize  int
}

func newLogger(level string) *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if parsed, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(parsed)
	}
	return logrus.NewEntry(log)
}

func run(ctx context.Context, opts nodeOptions, log *logrus.Entry) error {
	if err := os.MkdirAll(opts.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	dbPath := fmt.Sprintf("%s/%s.db", opts.dataDir, opts.nodeID)

	st, err := store.Open(dbPath, opts.nodeID)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	fanout := events.New()
	coordinator := replica.New(opts.nodeID, st, fanout, replica.Config{
		PeerCacheCapacity:    opts.peerCacheSize,
		MessageCacheCapacity: opts.messageCacheSize,
		CreditCacheCapacity:  opts.creditCacheSize,
	}, log)

	sink := transport.NewLoggingSink(log)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	dashboard.NewHandler(st, fanout, opts.nodeID, log).Register(router)

	srv := &http.Server{
		Addr:         opts.dashboardAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // the websocket feed is long-lived
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.WithField("address", opts.dashboardAddr).Info("dashboard listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("dashboard server: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		err := coordinator.Run(groupCtx, transport.IdleStream{})
		if groupCtx.Err() != nil {
			return nil
		}
		return err
	})

	group.Go(func() error {
		return publishLoop(groupCtx, coordinator, sink)
	})

	<-groupCtx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("dashboard shutdown error")
	}

	return group.Wait()
}

// publishLoop periodically drains the coordinator's outbound StateUpdate
// queue and hands each one to the publish sink (spec.md §4.4:
// "drain_pending_updates").
func publishLoop(ctx context.Context, coordinator *replica.Coordinator, sink *transport.LoggingSink) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, update := range coordinator.DrainPendingUpdates() {
				data, err := json.Marshal(update)
				if err != nil {
					continue
				}
				_ = sink.Publish(ctx, "state-sync", data)
			}
		}
	}
}
