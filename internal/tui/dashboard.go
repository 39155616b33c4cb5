package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/winter-dragon/dragonlog/internal/store"
	"github.com/winter-dragon/dragonlog/models"
)

// dashboardWindow is how many recent entries the counters are computed over.
const dashboardWindow = 200

// DashboardModel shows category counters, the busiest actions and the latest
// entries.
type DashboardModel struct {
	src      Source
	guildID  string
	logs     []models.AuditLog
	total    int
	err      error
	width    int
	height   int
	lastLoad time.Time
	loading  bool
}

type dashLoadedMsg struct {
	logs  []models.AuditLog
	total int
	err   error
}

// NewDashboardModel creates a DashboardModel.
func NewDashboardModel(src Source, guildID string) DashboardModel {
	return DashboardModel{src: src, guildID: guildID, loading: true}
}

func (d DashboardModel) Init() tea.Cmd {
	return d.loadCmd()
}

func (d DashboardModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logs, total, err := d.src.ListAuditLogs(ctx, store.AuditLogFilter{GuildID: d.guildID, Limit: dashboardWindow})
		return dashLoadedMsg{logs: logs, total: total, err: err}
	}
}

func (d DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dashLoadedMsg:
		d.logs = msg.logs
		d.total = msg.total
		d.err = msg.err
		d.loading = false
		d.lastLoad = time.Now()
		// Refresh every 10 seconds.
		return d, tea.Tick(10*time.Second, func(t time.Time) tea.Msg {
			return d.loadCmd()()
		})
	case tea.KeyMsg:
		if msg.String() == "r" {
			d.loading = true
			return d, d.loadCmd()
		}
	}
	return d, nil
}

func (d *DashboardModel) SetSize(w, h int) {
	d.width = w
	d.height = h
}

// categoryCounts tallies the loaded window by category.
func (d DashboardModel) categoryCounts() map[string]int {
	counts := map[string]int{}
	for _, l := range d.logs {
		counts[l.Category]++
	}
	return counts
}

type actionCount struct {
	action string
	n      int
}

// topActions returns the n most frequent actions in the loaded window.
func (d DashboardModel) topActions(n int) []actionCount {
	byAction := map[string]int{}
	for _, l := range d.logs {
		byAction[l.Action]++
	}
	out := make([]actionCount, 0, len(byAction))
	for a, c := range byAction {
		out = append(out, actionCount{a, c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].n != out[j].n {
			return out[i].n > out[j].n
		}
		return out[i].action < out[j].action
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func (d DashboardModel) View() string {
	if d.loading && len(d.logs) == 0 {
		return panelStyle.Width(max(20, d.width-2)).Render("Loading audit entries...")
	}
	if d.err != nil && len(d.logs) == 0 {
		return panelStyle.Width(max(20, d.width-2)).Render(deletedStyle.Render("Error: " + d.err.Error()))
	}

	counts := d.categoryCounts()
	cardW := 18
	if d.width >= 100 {
		cardW = 20
	}
	summary := lipgloss.JoinHorizontal(lipgloss.Top,
		renderCounter("Recorded", d.total, okStyle, cardW),
		renderCounter("Created", counts["created"], createdStyle, cardW),
		renderCounter("Changed", counts["changed"], changedStyle, cardW),
		renderCounter("Deleted", counts["deleted"], deletedStyle, cardW),
	)

	var top []string
	for _, ac := range d.topActions(5) {
		top = append(top, fmt.Sprintf("%-34s %s", truncate(ac.action, 34), dimStyle.Render(fmt.Sprintf("%d", ac.n))))
	}
	if len(top) == 0 {
		top = []string{dimStyle.Render("No entries recorded yet. Start the bot with: dragonlog run")}
	}

	lineLimit := max(5, d.height-18)
	var rows []string
	for i, l := range d.logs {
		if i >= lineLimit {
			break
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Left,
			lipgloss.NewStyle().Width(22).Foreground(slate).Render(shortTime(l.CreatedAt)),
			lipgloss.NewStyle().Width(36).Foreground(ink).Render(truncate(l.Action, 34)),
			lipgloss.NewStyle().Width(10).Render(categoryStyle(l.Category).Render(l.Category)),
			dimStyle.Render(truncate(l.GuildID, 20)),
		))
	}

	updated := "never"
	if !d.lastLoad.IsZero() {
		updated = d.lastLoad.Format("15:04:05")
	}
	refreshInfo := lipgloss.JoinHorizontal(lipgloss.Left,
		keycapStyle.Render("r"),
		" ",
		dimStyle.Render("refresh"),
		"   ",
		dimStyle.Render(fmt.Sprintf("updated %s, last %d entries", updated, len(d.logs))),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Padding(0, 1).Render(summary),
		panelStyle.Width(max(20, d.width-2)).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				panelHeaderStyle.Render("Busiest actions"),
				strings.Join(top, "\n"),
				"",
				panelHeaderStyle.Render("Latest entries"),
				dimStyle.Render("Time                  Action                              Category  Guild"),
				strings.Join(rows, "\n"),
				"",
				refreshInfo,
			),
		),
	)
}

func renderCounter(label string, count int, style lipgloss.Style, width int) string {
	return boxStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Center,
			style.Bold(true).Render(fmt.Sprintf("%d", count)),
			dimStyle.Render(strings.ToUpper(label)),
		),
	) + "  "
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

// shortTime renders an RFC3339 timestamp in local time, or the raw value when
// it does not parse.
func shortTime(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
