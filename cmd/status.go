package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/winter-dragon/dragonlog/internal/config"
	"github.com/winter-dragon/dragonlog/internal/controlplane"
)

var statusURL string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of a running dragonlog instance",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var client *controlplane.Client
		if statusURL != "" {
			client = controlplane.New(statusURL)
		} else {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			client = controlplane.ForPort(cfg.Gateway.Port)
		}

		health, err := client.Health(ctx)
		if err != nil {
			return fmt.Errorf("is 'dragonlog run' running? %w", err)
		}
		st, err := client.Status(ctx)
		if err != nil {
			return err
		}

		fmt.Println(headerStyle.Render("dragonlog status"))
		line := fmt.Sprintf("%s (%s)", st.Health, health.Pipeline.Message)
		switch st.Health {
		case "healthy":
			fmt.Println("  Pipeline   : " + successStyle.Render(line))
		case "stale":
			fmt.Println("  Pipeline   : " + failStyle.Render(line))
		default:
			fmt.Println("  Pipeline   : " + warnStyle.Render(line))
		}
		if health.Status != "ok" {
			fmt.Println("  Database   : " + failStyle.Render(health.Error))
		} else {
			fmt.Println("  Database   : " + st.Database)
		}
		fmt.Printf("  Uptime     : %s\n", time.Duration(st.UptimeSeconds)*time.Second)
		fmt.Printf("  Workers    : %d\n", st.Workers)
		fmt.Printf("  Processed  : %d (handled %d, errors %d)\n", st.Processed, st.Handled, st.Errors)
		fmt.Printf("  Deliveries : %d ok, %d failed\n", st.Delivered, st.Failed)
		if st.LastEntryID != "" {
			fmt.Printf("  Last entry : %s %s at %s\n", st.LastEntryID, st.LastAction, st.LastEntryAt)
		}
		if st.LastPruneAt != "" {
			fmt.Printf("  Last prune : %s\n", st.LastPruneAt)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusURL, "url", "",
		"control plane URL (default http://127.0.0.1:<gateway.port>)")
}
