package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/winter-dragon/dragonlog/internal/audit"
	"github.com/winter-dragon/dragonlog/internal/config"
	"github.com/winter-dragon/dragonlog/internal/database"
	"github.com/winter-dragon/dragonlog/internal/discord"
	"github.com/winter-dragon/dragonlog/internal/notify"
	"github.com/winter-dragon/dragonlog/internal/store"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Verify the token, database, handlers and mirrors",
	Long: `Checks that the database can be reached, the bot token is accepted by
Discord, every action has a handler, the retention schedule parses and each
configured guild has its log channels mapped.`,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	allOK := true
	fail := func(format string, a ...any) {
		fmt.Println(failStyle.Render("FAIL " + fmt.Sprintf(format, a...)))
		allOK = false
	}
	ok := func(format string, a ...any) {
		fmt.Println(successStyle.Render("OK " + fmt.Sprintf(format, a...)))
	}

	fmt.Println(headerStyle.Render("dragonlog doctor"))

	fmt.Print("Database ................. ")
	var st *store.SQL
	db, err := database.New(cfg.Database)
	if err != nil {
		fail("(%s)", err)
	} else {
		defer db.Close()
		if err := db.Ping(ctx); err != nil {
			fail("(%s)", err)
		} else if err := db.Migrate(ctx); err != nil {
			fail("(migrations: %s)", err)
		} else {
			ok("(%s)", db.Driver())
			st = store.New(db)
		}
	}

	fmt.Print("Handlers ................. ")
	reg, err := audit.NewRegistry(slog.Default(), audit.DefaultHandlers())
	if err != nil {
		fail("(%s)", err)
	} else {
		stubs := 0
		for _, d := range reg.Descriptors() {
			if d.Stub() {
				stubs++
			}
		}
		ok("(%d registered, %d not implemented)", len(reg.Descriptors()), stubs)
	}

	fmt.Print("Discord token ............ ")
	var bot *discord.Bot
	if cfg.Discord.Token == "" {
		fail("(not configured, set discord.token or DRAGONLOG_DISCORD_TOKEN)")
	} else if bot, err = discord.New(cfg.Discord, slog.Default()); err != nil {
		fail("(%s)", err)
	} else if me, err := bot.Session().User("@me", discordgo.WithContext(ctx)); err != nil {
		fail("(%s)", err)
	} else {
		ok("(%s)", me.Username)
	}

	fmt.Print("Retention ................ ")
	switch {
	case cfg.Retention.Schedule == "" || cfg.Retention.MaxAge <= 0:
		fmt.Println(dimStyle.Render("disabled"))
	default:
		if _, err := cron.ParseStandard(cfg.Retention.Schedule); err != nil {
			fail("(schedule %q: %s)", cfg.Retention.Schedule, err)
		} else {
			ok("(%q, keep %s)", cfg.Retention.Schedule, cfg.Retention.MaxAge)
		}
	}

	fmt.Print("Mirrors .................. ")
	d := notify.NewDispatcher(cfg.Notify, nil, nil, slog.Default())
	if names := d.Mirrors(); len(names) == 0 {
		fmt.Println(dimStyle.Render("none"))
	} else {
		ok("%v", names)
	}
	_ = d.Close()

	if st != nil && reg != nil && len(cfg.Discord.Guilds) > 0 {
		fmt.Println()
		fmt.Println("Log channels:")
		want := len(discord.ActionChannelNames(reg)) + 1
		for _, g := range cfg.Discord.Guilds {
			fmt.Printf("  %-20s ... ", g)
			rows, err := st.LogChannels(ctx, g)
			switch {
			case err != nil:
				fail("(%s)", err)
			case len(rows) == 0:
				fmt.Println(warnStyle.Render("MISSING (run 'dragonlog provision --guild " + g + "')"))
				allOK = false
			case len(rows) < want:
				fmt.Println(warnStyle.Render(fmt.Sprintf("PARTIAL (%d of %d mapped)", len(rows), want)))
			default:
				ok("(%d mapped)", len(rows))
			}
		}
	}

	fmt.Println()
	if allOK {
		fmt.Println(successStyle.Render("All checks passed, dragonlog is ready."))
	} else {
		fmt.Println(warnStyle.Render("Some checks failed."))
	}
	return nil
}
