package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := openDB(context.Background())
		if err != nil {
			return err
		}
		defer db.Close()
		target := cfg.Database.Path
		if db.Driver() == "mysql" {
			target = "mysql"
		}
		fmt.Println(successStyle.Render("Database is up to date (" + target + ")"))
		return nil
	},
}
