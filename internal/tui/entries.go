package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/winter-dragon/dragonlog/internal/store"
	"github.com/winter-dragon/dragonlog/models"
)

// EntriesModel is a navigable list of recorded entries with a category filter.
type EntriesModel struct {
	src     Source
	guildID string
	logs    []models.AuditLog
	err     error
	width   int
	height  int
	cursor  int
	filter  string // "created" | "changed" | "deleted" | "" (all)
	loading bool
}

type entriesLoadedMsg struct {
	logs []models.AuditLog
	err  error
}

// NewEntriesModel creates an EntriesModel.
func NewEntriesModel(src Source, guildID string) EntriesModel {
	return EntriesModel{src: src, guildID: guildID, loading: true}
}

func (m EntriesModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m EntriesModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logs, _, err := m.src.ListAuditLogs(ctx, store.AuditLogFilter{GuildID: m.guildID, Limit: 500})
		return entriesLoadedMsg{logs: logs, err: err}
	}
}

func (m EntriesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case entriesLoadedMsg:
		m.logs = msg.logs
		m.err = msg.err
		m.loading = false
		m = m.clampCursor()
		return m, tea.Tick(30*time.Second, func(t time.Time) tea.Msg {
			return m.loadCmd()()
		})

	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			m.cursor++
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
		case "c":
			m.filter = "created"
			m.cursor = 0
		case "h":
			m.filter = "changed"
			m.cursor = 0
		case "d":
			m.filter = "deleted"
			m.cursor = 0
		case "0":
			m.filter = ""
			m.cursor = 0
		case "r":
			m.loading = true
			return m, m.loadCmd()
		}
	}
	m = m.clampCursor()
	return m, nil
}

func (m *EntriesModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// visible returns the loaded entries matching the active filter.
func (m EntriesModel) visible() []models.AuditLog {
	if m.filter == "" {
		return m.logs
	}
	var out []models.AuditLog
	for _, l := range m.logs {
		if l.Category == m.filter {
			out = append(out, l)
		}
	}
	return out
}

// Selected returns the entry under the cursor.
func (m EntriesModel) Selected() (models.AuditLog, bool) {
	v := m.visible()
	if len(v) == 0 {
		return models.AuditLog{}, false
	}
	return v[m.cursor], true
}

func (m EntriesModel) View() string {
	if m.loading && len(m.logs) == 0 {
		return panelStyle.Width(max(20, m.width-2)).Render("Loading audit entries...")
	}

	lineLimit := max(5, m.height-14)
	visible := m.visible()
	start := 0
	if m.cursor >= lineLimit {
		start = m.cursor - lineLimit + 1
	}

	rows := ""
	for i := start; i < len(visible) && i < start+lineLimit; i++ {
		rows += m.renderRow(i, visible[i])
	}
	if rows == "" {
		rows = dimStyle.Render("No entries.\n")
	}
	if m.err != nil {
		rows += deletedStyle.Render("Error: "+m.err.Error()) + "\n"
	}

	counts := map[string]int{}
	for _, l := range m.logs {
		counts[l.Category]++
	}
	filterBar := lipgloss.JoinHorizontal(lipgloss.Left,
		m.filterChip("All", "", len(m.logs), "0"),
		" ",
		m.filterChip("Created", "created", counts["created"], "c"),
		" ",
		m.filterChip("Changed", "changed", counts["changed"], "h"),
		" ",
		m.filterChip("Deleted", "deleted", counts["deleted"], "d"),
		"  ",
		keycapStyle.Render("r"),
		" ",
		dimStyle.Render("refresh"),
	)

	detail := dimStyle.Render("Nothing selected.")
	if sel, ok := m.Selected(); ok {
		reason := sel.Reason
		if reason == "" {
			reason = "-"
		}
		detail = lipgloss.JoinVertical(lipgloss.Left,
			fmt.Sprintf("%s %s", panelHeaderStyle.Render("Entry"), sel.ID),
			fmt.Sprintf("%s %s  %s %s", dimStyle.Render("actor"), orDash(sel.ActorID), dimStyle.Render("target"), orDash(sel.TargetID)),
			fmt.Sprintf("%s %s", dimStyle.Render("reason"), reason),
		)
	}

	return panelStyle.Width(max(20, m.width-2)).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			panelHeaderStyle.Render("Recorded entries"),
			filterBar,
			"",
			dimStyle.Render("  Time                  Action                              Category  Guild"),
			rows,
			detail,
			"",
			dimStyle.Render("j/k navigate  c created  h changed  d deleted  0 all"),
		),
	)
}

func (m EntriesModel) renderRow(idx int, l models.AuditLog) string {
	cursor := " "
	if idx == m.cursor {
		cursor = "▌"
	}
	row := lipgloss.JoinHorizontal(lipgloss.Left,
		lipgloss.NewStyle().Width(2).Foreground(accent).Render(cursor),
		lipgloss.NewStyle().Width(22).Foreground(slate).Render(shortTime(l.CreatedAt)),
		lipgloss.NewStyle().Width(36).Foreground(ink).Render(truncate(l.Action, 34)),
		lipgloss.NewStyle().Width(10).Render(categoryStyle(l.Category).Render(l.Category)),
		dimStyle.Render(truncate(l.GuildID, 20)),
	)
	if idx == m.cursor {
		return selectedRowStyle.Width(max(20, m.width-6)).Render(row) + "\n"
	}
	return row + "\n"
}

func (m EntriesModel) filterChip(label, value string, count int, key string) string {
	text := fmt.Sprintf("%s %d", label, count)
	if m.filter == value {
		return activeTabStyle.Render(text)
	}
	return tabStyle.Render(text + " [" + key + "]")
}

func (m EntriesModel) clampCursor() EntriesModel {
	total := len(m.visible())
	if total == 0 {
		m.cursor = 0
		return m
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= total {
		m.cursor = total - 1
	}
	return m
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
