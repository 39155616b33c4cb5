// Package pipeline runs audit entries through classification, their handler
// and notification delivery.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/winter-dragon/dragonlog/internal/audit"
	"github.com/winter-dragon/dragonlog/internal/metrics"
	"github.com/winter-dragon/dragonlog/internal/notify"
	"github.com/winter-dragon/dragonlog/internal/store"
	"github.com/winter-dragon/dragonlog/models"
)

// DefaultEntryTimeout bounds one entry when Options.EntryTimeout is zero.
const DefaultEntryTimeout = 30 * time.Second

// Notifier delivers a built notification. *notify.Dispatcher implements it.
type Notifier interface {
	Deliver(ctx context.Context, n audit.Notification) []notify.Result
}

// Options configures a Pipeline.
type Options struct {
	Workers       int
	EntryTimeout  time.Duration
	RecordEntries bool
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
	// OnProcessed is called once per entry after processing finishes. It must
	// not block.
	OnProcessed func(Outcome)
}

// Outcome summarises one pass of one entry.
type Outcome struct {
	PassID    string        `json:"pass_id"`
	EntryID   string        `json:"entry_id"`
	GuildID   string        `json:"guild_id"`
	Action    audit.Action  `json:"action"`
	Handled   bool          `json:"handled"`
	Delivered int           `json:"delivered"`
	Failed    int           `json:"failed"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
	At        time.Time     `json:"at"`
}

// Pipeline wires the registry, the persistence gateway and the notifier.
type Pipeline struct {
	reg      *audit.Registry
	store    store.Store
	notifier Notifier
	opts     Options
	log      *slog.Logger
}

// New creates a Pipeline. st may be nil when nothing should be persisted.
func New(reg *audit.Registry, st store.Store, notifier Notifier, opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.EntryTimeout <= 0 {
		opts.EntryTimeout = DefaultEntryTimeout
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		reg:      reg,
		store:    st,
		notifier: notifier,
		opts:     opts,
		log:      log.With("component", "pipeline"),
	}
}

// Process runs one entry: classify, then for each descriptor handle, build the
// notification and deliver it. Failures stay scoped to the entry. Shape
// mismatches, persistence and delivery failures are logged and counted; only
// ErrNotImplemented is returned.
func (p *Pipeline) Process(ctx context.Context, e *audit.Entry) (err error) {
	if e == nil {
		p.log.Warn("dropping nil audit entry")
		return nil
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.opts.EntryTimeout)
	defer cancel()

	out := Outcome{
		PassID:  uuid.NewString(),
		EntryID: e.ID,
		GuildID: e.GuildID,
		Action:  e.Action,
		At:      start.UTC(),
	}
	log := p.log.With("pass_id", out.PassID, "entry_id", e.ID, "guild_id", e.GuildID, "action", e.Action)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing %s: %v", e.Action, r)
			log.Error("handler panicked", "panic", r)
			p.opts.Metrics.IncFailure(string(e.Action), "panic")
		}
		out.Duration = time.Since(start)
		if err != nil {
			out.Error = err.Error()
		}
		p.opts.Metrics.ObserveEntry(out.Duration)
		if p.opts.OnProcessed != nil {
			p.opts.OnProcessed(out)
		}
	}()

	p.opts.Metrics.IncEntry(string(e.Action))
	descriptors := p.reg.Classify(e)
	if len(descriptors) == 0 {
		p.opts.Metrics.IncUnhandled()
		log.Debug("no handler registered")
		return nil
	}
	out.Handled = true

	if p.opts.RecordEntries {
		p.record(ctx, log, e, descriptors[0].Category())
	}

	var errs []error
	for _, d := range descriptors {
		ev := d.Bind(e, p.store)

		if err := ev.Handle(ctx); err != nil {
			if errors.Is(err, audit.ErrNotImplemented) {
				p.fail(log, e.Action, err)
				errs = append(errs, err)
				continue
			}
			// The side effect is abandoned; the notification does not depend on it.
			p.fail(log, e.Action, err)
		}

		n, err := ev.Notification()
		if err != nil {
			p.fail(log, e.Action, err)
			if errors.Is(err, audit.ErrNotImplemented) {
				errs = append(errs, err)
			}
			continue
		}

		for _, res := range p.notifier.Deliver(ctx, n) {
			p.opts.Metrics.IncDelivery(string(res.Status))
			if res.Status == notify.Delivered {
				out.Delivered++
				continue
			}
			out.Failed++
			log.Warn("delivery failed", "destination", res.Destination.Name, "channel_id", res.Destination.ChannelID, "error", res.Err)
		}
	}
	return errors.Join(errs...)
}

func (p *Pipeline) record(ctx context.Context, log *slog.Logger, e *audit.Entry, cat audit.Category) {
	if p.store == nil {
		return
	}
	row := &models.AuditLog{
		ID:        e.ID,
		GuildID:   e.GuildID,
		Action:    string(e.Action),
		Category:  string(cat),
		Reason:    e.Reason,
		CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
	}
	if e.Actor != nil {
		row.ActorID = e.Actor.ID
	}
	if e.Target != nil {
		row.TargetID = e.Target.TargetID()
	}
	if err := p.store.Upsert(ctx, row); err != nil {
		p.fail(log, e.Action, fmt.Errorf("%w: recording entry: %w", audit.ErrPersistence, err))
	}
}

// fail logs err at the level its kind deserves and counts it.
func (p *Pipeline) fail(log *slog.Logger, a audit.Action, err error) {
	kind := FailureKind(err)
	p.opts.Metrics.IncFailure(string(a), kind)
	switch kind {
	case "shape_mismatch":
		log.Warn("skipping entry", "error", err)
	case "not_implemented":
		log.Error("handler not implemented", "error", err)
	default:
		log.Error("handler failed", "kind", kind, "error", err)
	}
}

// FailureKind classifies a handler error for metrics and logs.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, audit.ErrShapeMismatch):
		return "shape_mismatch"
	case errors.Is(err, audit.ErrNotImplemented):
		return "not_implemented"
	case errors.Is(err, audit.ErrPersistence):
		return "persistence"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "other"
	}
}

// Run processes entries until the channel is closed or ctx is cancelled. At
// most Options.Workers entries are in flight. A failing entry never stops the
// loop.
func (p *Pipeline) Run(ctx context.Context, entries <-chan *audit.Entry) error {
	g := new(errgroup.Group)
	g.SetLimit(p.opts.Workers)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case e, ok := <-entries:
			if !ok {
				break loop
			}
			if e == nil {
				continue
			}
			g.Go(func() error {
				if err := p.Process(ctx, e); err != nil {
					p.log.Error("entry failed", "entry_id", e.ID, "action", e.Action, "error", err)
				}
				return nil
			})
		}
	}
	_ = g.Wait()
	return ctx.Err()
}
