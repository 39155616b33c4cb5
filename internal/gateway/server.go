// Package gateway is the local control plane: a REST + SSE API over the
// pipeline's state, the Prometheus endpoint and the retention scheduler.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/winter-dragon/dragonlog/internal/audit"
	"github.com/winter-dragon/dragonlog/internal/config"
	"github.com/winter-dragon/dragonlog/internal/database"
	"github.com/winter-dragon/dragonlog/internal/pipeline"
	"github.com/winter-dragon/dragonlog/internal/store"
)

// Gateway is the long-running daemon that combines:
//   - a cron Scheduler (pruning old audit logs)
//   - a HeartbeatMonitor (deriving pipeline health)
//   - a REST + SSE HTTP server
type Gateway struct {
	cfg         *config.Config
	db          database.DB
	store       *store.SQL
	reg         *audit.Registry
	metrics     http.Handler
	scheduler   *Scheduler
	heartbeat   *HeartbeatMonitor
	broadcaster *Broadcaster

	mu          sync.RWMutex
	status      Status
	startedAt   time.Time
	lastEntryAt time.Time
}

// New creates a Gateway. gatherer backs GET /metrics; nil uses the default
// Prometheus registry.
func New(cfg *config.Config, db database.DB, reg *audit.Registry, gatherer prometheus.Gatherer) *Gateway {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	gw := &Gateway{
		cfg:         cfg,
		db:          db,
		store:       store.New(db),
		reg:         reg,
		metrics:     promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
		broadcaster: newBroadcaster(),
		startedAt:   time.Now(),
	}
	gw.scheduler = newScheduler(gw.store, cfg.Retention.Schedule, cfg.Retention.MaxAge,
		gw.broadcaster.send, gw.recordPrune)
	gw.heartbeat = newHeartbeatMonitor(gw, cfg.Gateway.StaleAfter)
	return gw
}

// Observe records a processed entry. It is meant to be passed as the
// pipeline's OnProcessed hook and never blocks.
func (gw *Gateway) Observe(o pipeline.Outcome) {
	gw.mu.Lock()
	gw.status.Processed++
	if o.Handled {
		gw.status.Handled++
	}
	gw.status.Delivered += int64(o.Delivered)
	gw.status.Failed += int64(o.Failed)
	if o.Error != "" {
		gw.status.Errors++
	}
	gw.status.LastEntryID = o.EntryID
	gw.status.LastAction = string(o.Action)
	gw.lastEntryAt = o.At
	gw.mu.Unlock()

	gw.broadcaster.send(SSEEvent{Type: "entry.processed", Payload: o})
}

func (gw *Gateway) recordPrune(at time.Time, _ int64) {
	gw.mu.Lock()
	gw.status.LastPruneAt = at.UTC().Format(time.RFC3339)
	gw.mu.Unlock()
}

// Start runs the gateway until ctx is cancelled. It:
//  1. Starts the retention scheduler
//  2. Starts the heartbeat monitor
//  3. Binds the HTTP server (blocks until shutdown)
func (gw *Gateway) Start(ctx context.Context) error {
	port := gw.cfg.Gateway.Port
	if port == 0 {
		port = 6090
	}
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	if err := gw.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	go gw.heartbeat.run(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           buildHandler(gw),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		gw.scheduler.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("gateway: listening", "addr", "http://"+addr)
	gw.broadcaster.send(SSEEvent{
		Type:    "gateway.started",
		Payload: map[string]string{"addr": "http://" + addr},
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (gw *Gateway) currentStatus() Status {
	hs := gw.heartbeat.computeStatus()
	gw.mu.RLock()
	defer gw.mu.RUnlock()
	s := gw.status
	s.Health = hs.Status
	s.Workers = gw.cfg.Pipeline.Workers
	s.Database = gw.db.Driver()
	s.UptimeSeconds = int64(time.Since(gw.startedAt).Seconds())
	if !gw.lastEntryAt.IsZero() {
		s.LastEntryAt = gw.lastEntryAt.UTC().Format(time.RFC3339)
	}
	return s
}
