package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/winter-dragon/dragonlog/internal/store"
	"github.com/winter-dragon/dragonlog/internal/tui"
)

var uiGuild string

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Browse recorded audit entries in a terminal dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := openDB(context.Background())
		if err != nil {
			return err
		}
		defer db.Close()
		return tui.NewApp(store.New(db), uiGuild).Run()
	},
}

func init() {
	uiCmd.Flags().StringVar(&uiGuild, "guild", "", "only show entries of this guild")
}
