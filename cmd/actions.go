package cmd

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/winter-dragon/dragonlog/internal/audit"
)

var actionsCategory string

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List every action with a registered handler",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := audit.NewRegistry(slog.Default(), audit.DefaultHandlers())
		if err != nil {
			return err
		}

		var categories []string
		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(dimStyle).
			Headers("ACTION", "TYPE", "CATEGORY", "LOG CHANNEL", "STATUS")
		for _, d := range reg.Descriptors() {
			cat := d.Category().String()
			if actionsCategory != "" && cat != actionsCategory {
				continue
			}
			typ := "gateway"
			if n := audit.TypeOf(d.Action()); n > 0 {
				typ = strconv.Itoa(n)
			}
			status := "ok"
			if d.Stub() {
				status = "not implemented"
			}
			categories = append(categories, cat)
			t.Row(d.Action().String(), typ, cat, d.Action().LogChannelName(), status)
		}
		t.StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return base.Bold(true)
			}
			if col == 2 && row >= 0 && row < len(categories) {
				return categoryStyle(categories[row]).Padding(0, 1)
			}
			return base
		})

		fmt.Println(t)
		fmt.Println(dimStyle.Render(fmt.Sprintf("%d actions", len(categories))))
		return nil
	},
}

func init() {
	actionsCmd.Flags().StringVar(&actionsCategory, "category", "",
		"only show actions of this category (created, changed, deleted)")
}
