package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/winter-dragon/dragonlog/internal/store"
	"github.com/winter-dragon/dragonlog/models"
)

type fakeSource struct {
	logs []models.AuditLog
	err  error
	got  store.AuditLogFilter
}

func (f *fakeSource) ListAuditLogs(_ context.Context, flt store.AuditLogFilter) ([]models.AuditLog, int, error) {
	f.got = flt
	return f.logs, len(f.logs), f.err
}

func sampleLogs() []models.AuditLog {
	return []models.AuditLog{
		{ID: "3", GuildID: "10", Action: "ban", Category: "deleted", ActorID: "7", TargetID: "8", Reason: "spam", CreatedAt: "2024-05-01T10:00:00Z"},
		{ID: "2", GuildID: "10", Action: "role_update", Category: "changed", CreatedAt: "2024-05-01T09:00:00Z"},
		{ID: "1", GuildID: "10", Action: "ban", Category: "deleted", CreatedAt: "2024-05-01T08:00:00Z"},
		{ID: "0", GuildID: "10", Action: "channel_create", Category: "created", CreatedAt: "2024-05-01T07:00:00Z"},
	}
}

func TestDashboardLoadScopesToGuild(t *testing.T) {
	src := &fakeSource{logs: sampleLogs()}
	d := NewDashboardModel(src, "10")
	msg := d.loadCmd()()
	if src.got.GuildID != "10" || src.got.Limit != dashboardWindow {
		t.Fatalf("filter = %+v", src.got)
	}
	next, cmd := d.Update(msg)
	if cmd == nil {
		t.Fatal("expected a refresh tick after load")
	}
	d = next.(DashboardModel)
	counts := d.categoryCounts()
	if counts["deleted"] != 2 || counts["changed"] != 1 || counts["created"] != 1 {
		t.Fatalf("counts = %v", counts)
	}
	top := d.topActions(2)
	if len(top) != 2 || top[0].action != "ban" || top[0].n != 2 || top[1].action != "channel_create" {
		t.Fatalf("top = %+v", top)
	}
}

func TestDashboardViewShowsError(t *testing.T) {
	src := &fakeSource{err: errors.New("database is locked")}
	d := NewDashboardModel(src, "")
	d.SetSize(80, 30)
	next, _ := d.Update(d.loadCmd()())
	if v := next.(DashboardModel).View(); !strings.Contains(v, "database is locked") {
		t.Fatalf("view does not show error:\n%s", v)
	}
}

func TestEntriesFilterAndCursor(t *testing.T) {
	src := &fakeSource{logs: sampleLogs()}
	m := NewEntriesModel(src, "")
	next, _ := m.Update(m.loadCmd()())
	m = next.(EntriesModel)

	press := func(key string) {
		t.Helper()
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
		m = next.(EntriesModel)
	}

	press("j")
	press("j")
	press("j")
	press("j")
	press("j")
	if m.cursor != 3 {
		t.Fatalf("cursor = %d, want clamped to 3", m.cursor)
	}

	press("d")
	if got := len(m.visible()); got != 2 {
		t.Fatalf("deleted entries = %d, want 2", got)
	}
	if m.cursor != 0 {
		t.Fatalf("cursor not reset on filter change: %d", m.cursor)
	}
	sel, ok := m.Selected()
	if !ok || sel.ID != "3" {
		t.Fatalf("selected = %+v, %v", sel, ok)
	}

	press("c")
	press("0")
	if got := len(m.visible()); got != 4 {
		t.Fatalf("all entries = %d, want 4", got)
	}
}

func TestEntriesEmptySelection(t *testing.T) {
	m := NewEntriesModel(&fakeSource{}, "")
	next, _ := m.Update(m.loadCmd()())
	m = next.(EntriesModel)
	if _, ok := m.Selected(); ok {
		t.Fatal("expected no selection without entries")
	}
}

func TestAppTabsAndQuit(t *testing.T) {
	a := NewApp(&fakeSource{logs: sampleLogs()}, "10")
	if v := a.View(); v != "Loading..." {
		t.Fatalf("view before size = %q", v)
	}
	a.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	a.Update(tea.KeyMsg{Type: tea.KeyTab})
	if a.activeTab != TabEntries {
		t.Fatalf("active tab = %d", a.activeTab)
	}
	a.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if a.activeTab != TabDashboard {
		t.Fatalf("active tab after shift+tab = %d", a.activeTab)
	}

	// Load results reach their model whichever tab is active.
	a.Update(entriesLoadedMsg{logs: sampleLogs()})
	if len(a.entries.logs) != 4 {
		t.Fatalf("entries not loaded while dashboard active")
	}
	if v := a.View(); !strings.Contains(v, "guild 10") {
		t.Fatalf("header missing guild scope:\n%s", v)
	}

	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("q did not quit")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("guild_update", 20); got != "guild_update" {
		t.Fatalf("truncate short = %q", got)
	}
	if got := truncate("application_command_permission_update", 10); got != "applicati…" {
		t.Fatalf("truncate long = %q", got)
	}
}
