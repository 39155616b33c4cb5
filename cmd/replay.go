package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/winter-dragon/dragonlog/internal/audit"
	"github.com/winter-dragon/dragonlog/internal/discord"
	"github.com/winter-dragon/dragonlog/internal/notify"
	"github.com/winter-dragon/dragonlog/internal/pipeline"
	"github.com/winter-dragon/dragonlog/internal/store"
)

var (
	replayGuild  string
	replayLimit  int
	replayDryRun bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Fetch recent audit log entries and run them through the pipeline",
	Long: `Fetches the newest audit log entries of a guild over REST and processes
them oldest first, as if they had just arrived on the gateway.

With --dry-run the notifications are printed instead of delivered and nothing
is written to the database.`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayGuild, "guild", "", "guild ID to replay (required)")
	replayCmd.Flags().IntVar(&replayLimit, "limit", 25, fmt.Sprintf("number of entries to fetch (max %d)", discord.MaxReplay))
	replayCmd.Flags().BoolVar(&replayDryRun, "dry-run", false, "print notifications instead of delivering them")
	_ = replayCmd.MarkFlagRequired("guild")
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	logger := slog.Default()
	reg, err := audit.NewRegistry(logger, audit.DefaultHandlers())
	if err != nil {
		return err
	}
	bot, err := discord.New(cfg.Discord, logger)
	if err != nil {
		return err
	}
	defer bot.Close()

	entries, err := discord.Replay(ctx, bot.Session(), bot.Directory(), replayGuild, replayLimit)
	if err != nil {
		return err
	}
	fmt.Println(headerStyle.Render(fmt.Sprintf("Replaying %d entries of guild %s", len(entries), replayGuild)))

	if replayDryRun {
		for _, e := range entries {
			printDryRun(reg, e)
		}
		return nil
	}

	st := store.New(db)
	dispatcher := notify.NewDispatcher(cfg.Notify, bot, st, logger)
	defer dispatcher.Close()

	p := pipeline.New(reg, st, dispatcher, pipeline.Options{
		Workers:       1,
		EntryTimeout:  cfg.Pipeline.EntryTimeout,
		RecordEntries: cfg.Pipeline.RecordEntries,
		Logger:        logger,
		OnProcessed: func(o pipeline.Outcome) {
			line := fmt.Sprintf("%-20s %-32s delivered=%d failed=%d", o.EntryID, o.Action, o.Delivered, o.Failed)
			switch {
			case o.Error != "":
				fmt.Println(failStyle.Render(line + " " + o.Error))
			case !o.Handled:
				fmt.Println(dimStyle.Render(line + " unhandled"))
			default:
				fmt.Println(successStyle.Render(line))
			}
		},
	})
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.Process(ctx, e); err != nil && !errors.Is(err, audit.ErrNotImplemented) {
			return err
		}
	}
	return nil
}

func printDryRun(reg *audit.Registry, e *audit.Entry) {
	descs := reg.Classify(e)
	if len(descs) == 0 {
		fmt.Println(dimStyle.Render(fmt.Sprintf("%s %s: no handler", e.ID, e.Action)))
		return
	}
	for _, d := range descs {
		n, err := d.Bind(e, nil).Notification()
		if err != nil {
			fmt.Println(failStyle.Render(fmt.Sprintf("%s %s: %s", e.ID, e.Action, err)))
			continue
		}
		m := notify.Render(n)
		fmt.Println(categoryStyle(n.Category.String()).Render(m.Title))
		if m.Description != "" {
			fmt.Println("  " + m.Description)
		}
		for _, f := range m.Fields {
			fmt.Printf("  %s: %s\n", f.Name, f.Value)
		}
		fmt.Println(dimStyle.Render("  -> " + e.Action.LogChannelName() + ", " + audit.Global))
	}
}
