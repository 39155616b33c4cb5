package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"

	"github.com/winter-dragon/dragonlog/internal/audit"
	"github.com/winter-dragon/dragonlog/internal/metrics"
	"github.com/winter-dragon/dragonlog/internal/notify"
	"github.com/winter-dragon/dragonlog/internal/store"
	"github.com/winter-dragon/dragonlog/models"
)

type fakeNotifier struct {
	mu     sync.Mutex
	got    []audit.Notification
	status notify.Status
	block  bool
}

func (f *fakeNotifier) Deliver(ctx context.Context, n audit.Notification) []notify.Result {
	if f.block {
		<-ctx.Done()
		return []notify.Result{{Status: notify.DeliveryFailed, Err: ctx.Err()}}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, n)
	status := f.status
	if status == "" {
		status = notify.Delivered
	}
	return []notify.Result{{Destination: notify.Destination{GuildID: n.GuildID, Name: audit.Global, ChannelID: "1"}, Status: status}}
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.got)
}

type memStore struct {
	mu   sync.Mutex
	rows map[string]store.Record
}

func (m *memStore) key(rec store.Record) string { return fmt.Sprint(rec.Table(), rec.KeyValues()) }

func (m *memStore) FindByID(_ context.Context, rec store.Record) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[m.key(rec)]
	return ok, nil
}

func (m *memStore) Upsert(_ context.Context, rec store.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rows == nil {
		m.rows = map[string]store.Record{}
	}
	m.rows[m.key(rec)] = rec
	return nil
}

func (m *memStore) Delete(_ context.Context, rec store.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, m.key(rec))
	return nil
}

func newTestPipeline(t *testing.T, n Notifier, opts Options) (*Pipeline, *metrics.Metrics, *memStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg, err := audit.NewRegistry(logger, audit.DefaultHandlers())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	m := metrics.New(prometheus.NewRegistry())
	st := &memStore{}
	opts.Logger = logger
	opts.Metrics = m
	return New(reg, st, n, opts), m, st
}

func channelCreate(id string) *audit.Entry {
	return &audit.Entry{
		ID:        id,
		GuildID:   "1",
		Action:    audit.ChannelCreate,
		Actor:     &audit.User{ID: "100"},
		Target:    &audit.Channel{ID: "300", Kind: audit.ChannelText},
		CreatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestProcessDeliversNotification(t *testing.T) {
	n := &fakeNotifier{}
	var outcomes []Outcome
	p, m, _ := newTestPipeline(t, n, Options{OnProcessed: func(o Outcome) { outcomes = append(outcomes, o) }})

	if err := p.Process(context.Background(), channelCreate("10")); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if n.count() != 1 || n.got[0].Category != audit.CategoryCreated {
		t.Fatalf("unexpected notifications: %+v", n.got)
	}
	if len(outcomes) != 1 || !outcomes[0].Handled || outcomes[0].Delivered != 1 || outcomes[0].PassID == "" {
		t.Fatalf("unexpected outcome: %+v", outcomes)
	}
	if got := testutil.ToFloat64(m.Entries.WithLabelValues("channel_create")); got != 1 {
		t.Fatalf("entries_total = %v", got)
	}
	if got := testutil.ToFloat64(m.Deliveries.WithLabelValues("delivered")); got != 1 {
		t.Fatalf("deliveries_total = %v", got)
	}
}

func TestProcessUnknownActionIsSkipped(t *testing.T) {
	n := &fakeNotifier{}
	p, m, _ := newTestPipeline(t, n, Options{})
	e := channelCreate("11")
	e.Action = audit.ActionFromType(999)
	if err := p.Process(context.Background(), e); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if n.count() != 0 {
		t.Fatal("unknown action must not notify")
	}
	if got := testutil.ToFloat64(m.Unhandled); got != 1 {
		t.Fatalf("unhandled = %v", got)
	}
}

func TestProcessNilEntry(t *testing.T) {
	n := &fakeNotifier{}
	called := false
	p, _, _ := newTestPipeline(t, n, Options{OnProcessed: func(Outcome) { called = true }})
	if err := p.Process(context.Background(), nil); err != nil {
		t.Fatalf("Process(nil) = %v", err)
	}
	if n.count() != 0 || called {
		t.Fatal("a nil entry must be dropped without side effects")
	}
}

func TestProcessShapeMismatchIsSkippedNotReturned(t *testing.T) {
	n := &fakeNotifier{}
	p, m, _ := newTestPipeline(t, n, Options{})
	e := channelCreate("12")
	e.Actor = nil
	if err := p.Process(context.Background(), e); err != nil {
		t.Fatalf("shape mismatch should not be returned, got %v", err)
	}
	if n.count() != 0 {
		t.Fatal("no notification expected")
	}
	if got := testutil.ToFloat64(m.HandlerFailures.WithLabelValues("channel_create", "shape_mismatch")); got != 1 {
		t.Fatalf("shape_mismatch failures = %v", got)
	}
}

func TestProcessStubReturnsNotImplemented(t *testing.T) {
	n := &fakeNotifier{}
	p, _, _ := newTestPipeline(t, n, Options{})
	e := channelCreate("13")
	e.Action = audit.StickerCreate
	e.Target = &audit.Sticker{ID: "1"}
	err := p.Process(context.Background(), e)
	if !errors.Is(err, audit.ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
	if n.count() != 0 {
		t.Fatal("stub must not notify")
	}
}

func TestProcessRecordsEntry(t *testing.T) {
	p, _, st := newTestPipeline(t, &fakeNotifier{}, Options{RecordEntries: true})
	if err := p.Process(context.Background(), channelCreate("14")); err != nil {
		t.Fatalf("Process: %v", err)
	}
	found, _ := st.FindByID(context.Background(), &models.AuditLog{ID: "14"})
	if !found {
		t.Fatal("expected audit log row")
	}
	rec := st.rows[st.key(&models.AuditLog{ID: "14"})].(*models.AuditLog)
	if rec.Category != "created" || rec.ActorID != "100" || rec.TargetID != "300" {
		t.Fatalf("unexpected row %+v", rec)
	}
}

func TestProcessDeliveryFailureIsCounted(t *testing.T) {
	n := &fakeNotifier{status: notify.DeliveryFailed}
	var out Outcome
	p, m, _ := newTestPipeline(t, n, Options{OnProcessed: func(o Outcome) { out = o }})
	if err := p.Process(context.Background(), channelCreate("15")); err != nil {
		t.Fatalf("delivery failures are not returned, got %v", err)
	}
	if out.Failed != 1 || out.Delivered != 0 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if got := testutil.ToFloat64(m.Deliveries.WithLabelValues("delivery_failed")); got != 1 {
		t.Fatalf("delivery_failed = %v", got)
	}
}

func TestProcessHonoursEntryTimeout(t *testing.T) {
	n := &fakeNotifier{block: true}
	p, _, _ := newTestPipeline(t, n, Options{EntryTimeout: 50 * time.Millisecond})
	done := make(chan error, 1)
	go func() { done <- p.Process(context.Background(), channelCreate("16")) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Process did not honour the entry timeout")
	}
}

func TestRunKeepsGoingAfterFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	n := &fakeNotifier{}
	var processed atomic.Int64
	p, _, _ := newTestPipeline(t, n, Options{
		Workers:     4,
		OnProcessed: func(Outcome) { processed.Add(1) },
	})

	entries := make(chan *audit.Entry)
	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background(), entries) }()

	for i := 0; i < 30; i++ {
		e := channelCreate(fmt.Sprint(100 + i))
		switch i % 3 {
		case 1:
			e.Action = audit.StickerDelete
		case 2:
			e.Actor = nil
		}
		entries <- e
	}
	close(entries)

	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := processed.Load(); got != 30 {
		t.Fatalf("processed %d entries, want 30", got)
	}
	if n.count() != 10 {
		t.Fatalf("expected 10 notifications, got %d", n.count())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	p, _, _ := newTestPipeline(t, &fakeNotifier{}, Options{Workers: 2})
	ctx, cancel := context.WithCancel(context.Background())
	entries := make(chan *audit.Entry)
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, entries) }()

	entries <- channelCreate("200")
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestFailureKind(t *testing.T) {
	cases := map[string]error{
		"shape_mismatch":  &audit.ShapeError{Action: audit.Kick, Field: "actor"},
		"not_implemented": fmt.Errorf("x: %w", audit.ErrNotImplemented),
		"persistence":     fmt.Errorf("%w: boom", audit.ErrPersistence),
		"timeout":         context.DeadlineExceeded,
		"other":           errors.New("other"),
	}
	for want, err := range cases {
		if got := FailureKind(err); got != want {
			t.Fatalf("FailureKind(%v) = %s, want %s", err, got, want)
		}
	}
}
