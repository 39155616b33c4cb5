package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner deletes audit log rows older than a cutoff.
type Pruner interface {
	PruneAuditLogs(ctx context.Context, cutoff time.Time) (int64, error)
}

// Scheduler runs the retention job on a robfig/cron schedule.
type Scheduler struct {
	pruner    Pruner
	expr      string
	maxAge    time.Duration
	cron      *cron.Cron
	broadcast func(SSEEvent)
	onPrune   func(at time.Time, n int64)
	now       func() time.Time
}

func newScheduler(p Pruner, expr string, maxAge time.Duration, broadcast func(SSEEvent), onPrune func(time.Time, int64)) *Scheduler {
	return &Scheduler{
		pruner:    p,
		expr:      expr,
		maxAge:    maxAge,
		cron:      cron.New(),
		broadcast: broadcast,
		onPrune:   onPrune,
		now:       time.Now,
	}
}

// Start registers the retention job and starts the cron runner. An empty
// expression or a zero max age disables pruning.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.expr == "" || s.maxAge <= 0 {
		slog.Info("gateway scheduler: retention disabled")
		return nil
	}
	if err := validateSchedule(s.expr); err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", s.expr, err)
	}
	if _, err := s.cron.AddFunc(s.expr, func() {
		if _, err := s.Prune(ctx); err != nil {
			slog.Warn("scheduler: retention prune failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("registering retention job: %w", err)
	}
	s.cron.Start()
	slog.Info("gateway scheduler started", "retention", s.expr, "max_age", s.maxAge)
	return nil
}

// Stop halts the cron runner and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Prune deletes rows older than the configured max age.
func (s *Scheduler) Prune(ctx context.Context) (int64, error) {
	now := s.now()
	n, err := s.pruner.PruneAuditLogs(ctx, now.Add(-s.maxAge))
	if err != nil {
		return 0, err
	}
	slog.Info("scheduler: pruned audit logs", "rows", n, "max_age", s.maxAge)
	if s.onPrune != nil {
		s.onPrune(now, n)
	}
	if s.broadcast != nil {
		s.broadcast(SSEEvent{Type: "retention.pruned", Payload: map[string]any{
			"rows": n,
			"at":   now.UTC().Format(time.RFC3339),
		}})
	}
	return n, nil
}

// validateSchedule checks that expr is parseable by robfig/cron without adding it
// permanently to any runner.
func validateSchedule(expr string) error {
	_, err := cron.ParseStandard(expr)
	return err
}
