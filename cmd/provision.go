package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/winter-dragon/dragonlog/internal/audit"
	"github.com/winter-dragon/dragonlog/internal/discord"
	"github.com/winter-dragon/dragonlog/internal/store"
)

var (
	provisionGuild     string
	provisionCategory  string
	provisionReconcile bool
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Create the log categories and channels in a guild",
	Long: `Creates one text channel per action plus GLOBAL, grouped in categories of
at most 50 channels that are hidden from @everyone, and records the mapping.

A guild that already has log channels is left untouched unless --reconcile
is set. Reconcile creates only the missing channels (new actions, or mapped
channels deleted by hand) in the existing categories while they have room.
Run deprovision first to start over.`,
	RunE: runProvision,
}

var deprovisionCmd = &cobra.Command{
	Use:   "deprovision",
	Short: "Delete a guild's log channels and forget the mapping",
	RunE:  runDeprovision,
}

func init() {
	provisionCmd.Flags().StringVar(&provisionGuild, "guild", "", "guild ID (required)")
	provisionCmd.Flags().StringVar(&provisionCategory, "category", "",
		"category name prefix (default: discord.log_category)")
	provisionCmd.Flags().BoolVar(&provisionReconcile, "reconcile", false,
		"create only the missing channels of an already provisioned guild")
	_ = provisionCmd.MarkFlagRequired("guild")

	deprovisionCmd.Flags().StringVar(&provisionGuild, "guild", "", "guild ID (required)")
	_ = deprovisionCmd.MarkFlagRequired("guild")
}

func runProvision(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	reg, err := audit.NewRegistry(slog.Default(), audit.DefaultHandlers())
	if err != nil {
		return err
	}
	bot, err := discord.New(cfg.Discord, slog.Default())
	if err != nil {
		return err
	}
	defer bot.Close()

	category := provisionCategory
	if category == "" {
		category = cfg.Discord.LogCategory
	}
	names := discord.ActionChannelNames(reg)
	if provisionReconcile {
		rows, err := discord.Reconcile(ctx, bot.Session(), store.New(db), provisionGuild, category, names)
		for _, r := range rows {
			fmt.Printf("  %s %s\n", successStyle.Render("+"), strings.ToLower(r.Name))
		}
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println(dimStyle.Render("Guild " + provisionGuild + " already has every log channel."))
			return nil
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("Added %d log channels to guild %s", len(rows), provisionGuild)))
		return nil
	}
	for _, plan := range discord.Plan(category, names) {
		fmt.Printf("%s %s\n", headerStyle.Render(plan.Name), dimStyle.Render(fmt.Sprintf("(%d channels)", len(plan.Channels))))
	}

	rows, err := discord.Provision(ctx, bot.Session(), store.New(db), provisionGuild, category, names)
	if errors.Is(err, discord.ErrAlreadyProvisioned) {
		fmt.Println(warnStyle.Render(fmt.Sprintf("Guild %s already has %d log channels; use --reconcile to add missing ones.", provisionGuild, len(rows))))
		return nil
	}
	if err != nil {
		if len(rows) > 0 {
			fmt.Println(warnStyle.Render(fmt.Sprintf("%d channels were created before the failure; run deprovision to clean up.", len(rows))))
		}
		return err
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("Created %d log channels in guild %s", len(rows), provisionGuild)))
	return nil
}

func runDeprovision(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	st := store.New(db)
	rows, err := st.LogChannels(ctx, provisionGuild)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println(dimStyle.Render("No log channels recorded for guild " + provisionGuild))
		return nil
	}

	bot, err := discord.New(cfg.Discord, slog.Default())
	if err != nil {
		return err
	}
	defer bot.Close()

	if err := discord.Deprovision(ctx, bot.Session(), st, rows); err != nil {
		return err
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("Removed %d log channels from guild %s", len(rows), provisionGuild)))
	return nil
}
