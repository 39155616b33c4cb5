package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/winter-dragon/dragonlog/internal/store"
	"github.com/winter-dragon/dragonlog/models"
)

// Source is where the views read recorded entries from. *store.SQL implements it.
type Source interface {
	ListAuditLogs(ctx context.Context, f store.AuditLogFilter) ([]models.AuditLog, int, error)
}

// Tab represents a TUI navigation tab.
type Tab int

const (
	TabDashboard Tab = iota
	TabEntries
)

var tabNames = []string{"Dashboard", "Entries"}
var tabTinyNames = []string{"D", "E"}

// App is the root bubbletea model.
type App struct {
	guildID   string
	width     int
	height    int
	activeTab Tab
	dashboard DashboardModel
	entries   EntriesModel
}

// NewApp creates the TUI application. An empty guildID shows every guild.
func NewApp(src Source, guildID string) *App {
	return &App{
		guildID:   guildID,
		dashboard: NewDashboardModel(src, guildID),
		entries:   NewEntriesModel(src, guildID),
	}
}

// Run starts the bubbletea program.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.dashboard.Init(),
		a.entries.Init(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		contentW := max(20, msg.Width-2)
		contentH := max(8, msg.Height-7)
		a.dashboard.SetSize(contentW, contentH)
		a.entries.SetSize(contentW, contentH)
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return a, tea.Quit
		case "1":
			a.activeTab = TabDashboard
			return a, nil
		case "2":
			a.activeTab = TabEntries
			return a, nil
		case "tab":
			a.activeTab = (a.activeTab + 1) % Tab(len(tabNames))
			return a, nil
		case "shift+tab":
			a.activeTab--
			if a.activeTab < 0 {
				a.activeTab = Tab(len(tabNames) - 1)
			}
			return a, nil
		}
	}

	// Load results go to their own model; keys go to the active one.
	switch msg.(type) {
	case dashLoadedMsg:
		newDash, cmd := a.dashboard.Update(msg)
		a.dashboard = newDash.(DashboardModel)
		return a, cmd
	case entriesLoadedMsg:
		newEntries, cmd := a.entries.Update(msg)
		a.entries = newEntries.(EntriesModel)
		return a, cmd
	}

	switch a.activeTab {
	case TabDashboard:
		newDash, cmd := a.dashboard.Update(msg)
		a.dashboard = newDash.(DashboardModel)
		cmds = append(cmds, cmd)
	case TabEntries:
		newEntries, cmd := a.entries.Update(msg)
		a.entries = newEntries.(EntriesModel)
		cmds = append(cmds, cmd)
	}

	return a, tea.Batch(cmds...)
}

// View implements tea.Model.
func (a *App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	var content string
	switch a.activeTab {
	case TabDashboard:
		content = a.dashboard.View()
	case TabEntries:
		content = a.entries.View()
	}

	contentBox := lipgloss.NewStyle().
		Width(a.width).
		Padding(0, 1).
		MaxHeight(max(1, a.height-4)).
		Render(content)

	status := lipgloss.NewStyle().
		Width(a.width).
		Padding(0, 1).
		Foreground(slateDim).
		Render("tab next  shift+tab prev  1-2 jump  q quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		a.renderHeader(),
		a.renderTabs(),
		contentBox,
		status,
	)
}

func (a *App) renderHeader() string {
	scope := "all guilds"
	if a.guildID != "" {
		scope = "guild " + a.guildID
	}
	row := lipgloss.JoinHorizontal(lipgloss.Left,
		titleStyle.Render("dragonlog"),
		"  ",
		dimStyle.Render("audit log feed, "+scope),
		"  ",
		mutedBadgeStyle.Render(" "+tabNames[a.activeTab]+" "),
	)
	return lipgloss.NewStyle().
		BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(line).
		Width(a.width).
		Padding(0, 1).
		Render(row)
}

func (a *App) renderTabs() string {
	rendered := a.renderTabLabels(tabNames)
	if lipgloss.Width(rendered) > max(10, a.width-2) {
		rendered = a.renderTabLabels(tabTinyNames)
	}
	return lipgloss.NewStyle().
		Width(a.width).
		Padding(0, 1).
		Foreground(slate).
		Render(rendered)
}

func (a *App) renderTabLabels(labels []string) string {
	parts := make([]string, 0, len(labels))
	for i, name := range labels {
		label := fmt.Sprintf("%d:%s", i+1, name)
		if Tab(i) == a.activeTab {
			parts = append(parts, lipgloss.NewStyle().Bold(true).Foreground(accent).Render(label))
		} else {
			parts = append(parts, dimStyle.Render(label))
		}
		if i < len(labels)-1 {
			parts = append(parts, dimStyle.Render("  ·  "))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, parts...)
}
