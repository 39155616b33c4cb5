package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/winter-dragon/dragonlog/internal/config"
	"github.com/winter-dragon/dragonlog/internal/database"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "dragonlog",
	Short: "Discord audit log notifications",
	Long: `dragonlog watches Discord audit log entries, turns each one into a
human-readable notification and posts it to per-action log channels.

Get started:
  dragonlog config init    Write a default config file
  dragonlog migrate        Create the database schema
  dragonlog provision      Create log channels in a guild
  dragonlog doctor         Verify the token, database and mirrors
  dragonlog run            Start the bot and the local control plane
  dragonlog ui             Browse recorded entries`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ~/.dragonlog/config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable verbose/debug output")

	rootCmd.Version = Version
	rootCmd.AddCommand(
		runCmd,
		migrateCmd,
		replayCmd,
		provisionCmd,
		deprovisionCmd,
		syncBanCmd,
		channelsCmd,
		actionsCmd,
		configCmd,
		doctorCmd,
		uiCmd,
		statusCmd,
	)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	if verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
		slog.Debug("Verbose logging enabled")
	}
}

// openDB loads the config, opens the configured database and applies
// migrations.
func openDB(ctx context.Context) (*config.Config, database.DB, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	db, err := database.New(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	return cfg, db, nil
}
