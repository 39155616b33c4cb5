package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/winter-dragon/dragonlog/internal/audit"
	"github.com/winter-dragon/dragonlog/internal/config"
	"github.com/winter-dragon/dragonlog/models"
)

type fakeSender struct {
	mu       sync.Mutex
	guilds   map[string]string // channel -> guild
	rejected map[string]error
	sent     map[string][]Message
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		guilds:   map[string]string{},
		rejected: map[string]error{},
		sent:     map[string][]Message{},
	}
}

func (f *fakeSender) ChannelGuild(_ context.Context, channelID string) (string, error) {
	g, ok := f.guilds[channelID]
	if !ok {
		return "", errors.New("unknown channel")
	}
	return g, nil
}

func (f *fakeSender) Send(_ context.Context, channelID string, m Message) error {
	if err := f.rejected[channelID]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[channelID] = append(f.sent[channelID], m)
	return nil
}

type fakeResolver struct {
	rows []models.LogChannel
	err  error
}

func (r fakeResolver) LogChannels(_ context.Context, guildID string, names ...string) ([]models.LogChannel, error) {
	if r.err != nil {
		return nil, r.err
	}
	want := map[string]bool{}
	for _, n := range names {
		want[n] = true
	}
	var out []models.LogChannel
	for _, row := range r.rows {
		if row.GuildID == guildID && want[row.Name] {
			out = append(out, row)
		}
	}
	return out, nil
}

type recordingMirror struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (m *recordingMirror) Name() string       { return "recording" }
func (m *recordingMirror) IsConfigured() bool { return true }
func (m *recordingMirror) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return m.err
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func sampleNotification() audit.Notification {
	return audit.Notification{
		Action:      audit.Ban,
		Category:    audit.CategoryDeleted,
		GuildID:     "1",
		EntryID:     "99",
		CreatedAt:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Title:       "Ban",
		Description: "<@100> banned <@200> with reason: spam",
		Changes:     []audit.Change{{Name: "Nick", Before: "a", After: "b"}},
		Details:     []audit.Detail{{Name: "Content", Value: "`hi`"}},
	}
}

func TestRender(t *testing.T) {
	m := Render(sampleNotification())
	want := Message{
		Action:      "ban",
		GuildID:     "1",
		Title:       "Ban",
		Description: "<@100> banned <@200> with reason: spam",
		Color:       ColorDeleted,
		Fields: []Field{
			{Name: "Nick", Value: "From: `a` → To: `b`"},
			{Name: "Content", Value: "`hi`"},
		},
		Footer:    "Entry 99",
		Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if d := cmp.Diff(want, m); d != "" {
		t.Fatalf("render mismatch (-want +got):\n%s", d)
	}
}

func TestRenderTruncatesLongDescription(t *testing.T) {
	n := sampleNotification()
	long := make([]rune, maxDescription+50)
	for i := range long {
		long[i] = 'x'
	}
	n.Description = string(long)
	m := Render(n)
	if got := len([]rune(m.Description)); got != maxDescription {
		t.Fatalf("description length = %d", got)
	}
}

func TestRenderFitsTotalEmbedLimit(t *testing.T) {
	n := sampleNotification()
	n.Description = strings.Repeat("d", maxDescription)
	n.Changes = nil
	n.Details = nil
	for i := 0; i < maxFields; i++ {
		n.Details = append(n.Details, audit.Detail{Name: fmt.Sprintf("field %d", i), Value: strings.Repeat("v", maxFieldValue)})
	}
	m := Render(n)
	if got := m.size(); got > maxTotal {
		t.Fatalf("rendered size = %d, over %d", got, maxTotal)
	}
	if len([]rune(m.Description)) != maxDescription {
		t.Fatal("description should survive when dropping fields is enough")
	}
	if len(m.Fields) == 0 || len(m.Fields) >= maxFields {
		t.Fatalf("expected trailing fields to be dropped, kept %d", len(m.Fields))
	}
	if m.Fields[0].Name != "field 0" {
		t.Fatalf("leading fields must be kept, first is %q", m.Fields[0].Name)
	}
}

func TestRenderChangeWithBackticks(t *testing.T) {
	n := sampleNotification()
	n.Changes = []audit.Change{{Name: "Name", Before: "a`b", After: "plain"}}
	n.Details = nil
	m := Render(n)
	if want := "From: ``a`b`` → To: `plain`"; m.Fields[0].Value != want {
		t.Fatalf("change value = %q, want %q", m.Fields[0].Value, want)
	}
}

func TestDispatchDelivered(t *testing.T) {
	s := newFakeSender()
	s.guilds["500"] = "1"
	d := NewDispatcher(config.NotifyConfig{}, s, fakeResolver{}, quietLogger())

	res := d.Dispatch(context.Background(), sampleNotification(), Destination{GuildID: "1", Name: "BAN", ChannelID: "500"})
	if res.Status != Delivered || res.Err != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(s.sent["500"]) != 1 {
		t.Fatalf("expected one message, got %d", len(s.sent["500"]))
	}
}

func TestDispatchRejectedReturnsDeliveryFailed(t *testing.T) {
	s := newFakeSender()
	s.guilds["500"] = "1"
	s.rejected["500"] = errors.New("HTTP 403 Forbidden, Missing Permissions")
	d := NewDispatcher(config.NotifyConfig{}, s, fakeResolver{}, quietLogger())

	res := d.Dispatch(context.Background(), sampleNotification(), Destination{GuildID: "1", Name: "BAN", ChannelID: "500"})
	if res.Status != DeliveryFailed {
		t.Fatalf("status = %s", res.Status)
	}
	if !errors.Is(res.Err, audit.ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", res.Err)
	}
}

func TestDispatchUnknownOrForeignChannel(t *testing.T) {
	s := newFakeSender()
	s.guilds["600"] = "2"
	d := NewDispatcher(config.NotifyConfig{}, s, fakeResolver{}, quietLogger())
	ctx := context.Background()

	for _, dest := range []Destination{
		{GuildID: "1", Name: "BAN", ChannelID: "404"},
		{GuildID: "1", Name: "BAN", ChannelID: "600"},
		{GuildID: "1", Name: "BAN"},
	} {
		res := d.Dispatch(ctx, sampleNotification(), dest)
		if res.Status != DeliveryFailed || !errors.Is(res.Err, audit.ErrDeliveryFailed) {
			t.Fatalf("%+v: unexpected result %+v", dest, res)
		}
	}
	if len(s.sent) != 0 {
		t.Fatalf("nothing should have been sent, got %v", s.sent)
	}
}

func TestDeliverResolvesActionAndGlobalChannels(t *testing.T) {
	s := newFakeSender()
	s.guilds["500"] = "1"
	s.guilds["501"] = "1"
	s.guilds["502"] = "1"
	r := fakeResolver{rows: []models.LogChannel{
		{GuildID: "1", Name: "BAN", ChannelID: "500"},
		{GuildID: "1", Name: audit.Global, ChannelID: "501"},
		{GuildID: "1", Name: "KICK", ChannelID: "502"},
		{GuildID: "2", Name: "BAN", ChannelID: "503"},
	}}
	mirror := &recordingMirror{err: errors.New("mirror down")}
	d := NewDispatcher(config.NotifyConfig{}, s, r, quietLogger())
	d.AddMirror(mirror)

	results := d.Deliver(context.Background(), sampleNotification())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %+v", results)
	}
	for _, res := range results {
		if res.Status != Delivered {
			t.Fatalf("unexpected result %+v", res)
		}
	}
	if len(s.sent["502"]) != 0 {
		t.Fatal("kick channel must not receive ban notifications")
	}
	if len(mirror.msgs) != 1 {
		t.Fatalf("mirror should receive one message, got %d", len(mirror.msgs))
	}
}

func TestDeliverResolverFailure(t *testing.T) {
	d := NewDispatcher(config.NotifyConfig{}, newFakeSender(), fakeResolver{err: errors.New("db gone")}, quietLogger())
	results := d.Deliver(context.Background(), sampleNotification())
	if len(results) != 1 || results[0].Status != DeliveryFailed || !errors.Is(results[0].Err, audit.ErrDeliveryFailed) {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestMirrorActionFilter(t *testing.T) {
	mirror := &recordingMirror{}
	d := NewDispatcher(config.NotifyConfig{Actions: []string{"kick"}}, newFakeSender(), fakeResolver{}, quietLogger())
	d.AddMirror(mirror)

	d.Deliver(context.Background(), sampleNotification())
	if len(mirror.msgs) != 0 {
		t.Fatalf("ban should be filtered out, mirror got %d", len(mirror.msgs))
	}
	n := sampleNotification()
	n.Action = audit.Kick
	d.Deliver(context.Background(), n)
	if len(mirror.msgs) != 1 {
		t.Fatalf("kick should be mirrored, mirror got %d", len(mirror.msgs))
	}
}

func TestWebhookMirrorSignsBody(t *testing.T) {
	const secret = "s3cret"
	var gotSig string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(raw)
		if r.Header.Get("X-Dragonlog-Signature") == "sha256="+hex.EncodeToString(mac.Sum(nil)) {
			gotSig = "ok"
		}
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wh := NewWebhook(config.WebhookNotifyConfig{URL: srv.URL, Secret: secret})
	if err := wh.Send(context.Background(), Render(sampleNotification())); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotSig != "ok" {
		t.Fatal("signature did not verify")
	}
	if gotBody["action"] != "ban" || gotBody["guild_id"] != "1" {
		t.Fatalf("unexpected body %v", gotBody)
	}
}

func TestWebhookMirrorReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	wh := NewWebhook(config.WebhookNotifyConfig{URL: srv.URL})
	if err := wh.Send(context.Background(), Render(sampleNotification())); err == nil {
		t.Fatal("expected an error for a 502 response")
	}
}

func TestUnconfiguredMirrorsAreInactive(t *testing.T) {
	d := NewDispatcher(config.NotifyConfig{}, newFakeSender(), fakeResolver{}, quietLogger())
	if len(d.Mirrors()) != 0 {
		t.Fatalf("expected no mirrors, got %v", d.Mirrors())
	}
	d = NewDispatcher(config.NotifyConfig{
		Slack: config.SlackNotifyConfig{WebhookURL: "https://hooks.slack.invalid/x"},
		NATS:  config.NATSNotifyConfig{URL: "nats://127.0.0.1:4222"},
	}, newFakeSender(), fakeResolver{}, quietLogger())
	if d := cmp.Diff([]string{"slack", "nats"}, d.Mirrors()); d != "" {
		t.Fatalf("mirrors mismatch (-want +got):\n%s", d)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
