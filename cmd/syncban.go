package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/winter-dragon/dragonlog/internal/discord"
	"github.com/winter-dragon/dragonlog/internal/store"
)

var syncBanGuild string

var syncBanCmd = &cobra.Command{
	Use:   "syncban",
	Short: "Inspect and enforce the shared ban list",
}

var syncBanListCmd = &cobra.Command{
	Use:   "list",
	Short: "List guilds in the sync network and the users banned through it",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		_, db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		st := store.New(db)

		guilds, err := st.SyncBanGuilds(ctx)
		if err != nil {
			return err
		}
		users, err := st.SyncBanUsers(ctx)
		if err != nil {
			return err
		}
		fmt.Println(headerStyle.Render(fmt.Sprintf("Guilds (%d)", len(guilds))))
		for _, g := range guilds {
			fmt.Printf("  %-20s  %s\n", g.GuildID, dimStyle.Render("since "+g.EnabledAt))
		}
		fmt.Println(headerStyle.Render(fmt.Sprintf("Banned users (%d)", len(users))))
		for _, u := range users {
			fmt.Printf("  %-20s  from %-20s  %s\n", u.UserID, u.GuildID, dimStyle.Render(u.Reason))
		}
		return nil
	},
}

var syncBanApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Ban every shared-ban user from a guild (every sync guild unless --guild is set)",
	Long: `Applies the shared ban list retroactively. Users whose ban originated in
the target guild are skipped. A failed ban is reported and the rest continue.`,
	RunE: runSyncBanApply,
}

func init() {
	syncBanApplyCmd.Flags().StringVar(&syncBanGuild, "guild", "", "guild ID to enforce the list in")
	syncBanCmd.AddCommand(syncBanListCmd, syncBanApplyCmd)
}

func runSyncBanApply(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	st := store.New(db)

	users, err := st.SyncBanUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Println(dimStyle.Render("No users on the shared ban list."))
		return nil
	}

	targets := []string{syncBanGuild}
	if syncBanGuild == "" {
		guilds, err := st.SyncBanGuilds(ctx)
		if err != nil {
			return err
		}
		targets = targets[:0]
		for _, g := range guilds {
			targets = append(targets, g.GuildID)
		}
	}

	bot, err := discord.New(cfg.Discord, slog.Default())
	if err != nil {
		return err
	}
	defer bot.Close()

	var failed error
	for _, guildID := range targets {
		res, err := discord.ApplySyncBans(ctx, bot.Session(), guildID, users, slog.Default())
		fmt.Printf("%s  banned %d, skipped %d\n", headerStyle.Render(guildID), res.Banned, res.Skipped)
		if err != nil {
			fmt.Println(failStyle.Render(err.Error()))
			failed = errors.New("some bans failed")
		}
	}
	return failed
}
