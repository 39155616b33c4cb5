package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/winter-dragon/dragonlog/internal/audit"
	"github.com/winter-dragon/dragonlog/internal/store"
	"github.com/winter-dragon/dragonlog/models"
)

var (
	channelsGuild  string
	channelsOutput string
)

var errGuildRequired = errors.New("--guild is required")

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "Inspect and edit log channel mappings",
}

var channelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List mapped log channels (all guilds unless --guild is set)",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := loadChannels(context.Background())
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println(dimStyle.Render("No log channels mapped."))
			return nil
		}
		fmt.Printf("%-20s  %-34s  %-20s  %s\n", "GUILD", "NAME", "CHANNEL", "UPDATED")
		for _, r := range rows {
			fmt.Printf("%-20s  %-34s  %-20s  %s\n", r.GuildID, r.Name, r.ChannelID, dimStyle.Render(r.UpdatedAt))
		}
		return nil
	},
}

var channelsSetCmd = &cobra.Command{
	Use:   "set NAME CHANNEL_ID",
	Short: "Map a log channel name (action or GLOBAL) to a channel",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if channelsGuild == "" {
			return errGuildRequired
		}
		name := strings.ToUpper(args[0])
		if err := checkChannelName(name); err != nil {
			return err
		}
		ctx := context.Background()
		_, db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := store.New(db).SetLogChannel(ctx, channelsGuild, name, args[1]); err != nil {
			return err
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("%s -> %s", name, args[1])))
		return nil
	},
}

var channelsRemoveCmd = &cobra.Command{
	Use:   "remove NAME",
	Short: "Forget a log channel mapping",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if channelsGuild == "" {
			return errGuildRequired
		}
		ctx := context.Background()
		_, db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		name := strings.ToUpper(args[0])
		removed, err := store.New(db).RemoveLogChannel(ctx, channelsGuild, name)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("no %s log channel for guild %s", name, channelsGuild)
		}
		fmt.Println(successStyle.Render("Removed " + name))
		return nil
	},
}

var channelsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the mappings as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := loadChannels(context.Background())
		if err != nil {
			return err
		}
		if rows == nil {
			rows = []models.LogChannel{}
		}
		out, err := yaml.Marshal(rows)
		if err != nil {
			return err
		}
		if channelsOutput == "" || channelsOutput == "-" {
			_, err = os.Stdout.Write(out)
			return err
		}
		return os.WriteFile(channelsOutput, out, 0o644)
	},
}

var channelsImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Load mappings from a YAML file written by export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var rows []models.LogChannel
		if err := yaml.Unmarshal(data, &rows); err != nil {
			return fmt.Errorf("parsing %s: %w", args[0], err)
		}
		for i := range rows {
			rows[i].Name = strings.ToUpper(rows[i].Name)
			if rows[i].GuildID == "" || rows[i].ChannelID == "" {
				return fmt.Errorf("entry %d: guild_id and channel_id are required", i+1)
			}
			if err := checkChannelName(rows[i].Name); err != nil {
				return fmt.Errorf("entry %d: %w", i+1, err)
			}
		}

		ctx := context.Background()
		_, db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		st := store.New(db)
		for _, r := range rows {
			if err := st.SetLogChannel(ctx, r.GuildID, r.Name, r.ChannelID); err != nil {
				return err
			}
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("Imported %d mappings", len(rows))))
		return nil
	},
}

func init() {
	channelsCmd.PersistentFlags().StringVar(&channelsGuild, "guild", "", "guild ID")
	channelsExportCmd.Flags().StringVarP(&channelsOutput, "output", "o", "", "file to write (default stdout)")
	channelsCmd.AddCommand(channelsListCmd, channelsSetCmd, channelsRemoveCmd, channelsExportCmd, channelsImportCmd)
}

func loadChannels(ctx context.Context) ([]models.LogChannel, error) {
	_, db, err := openDB(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	st := store.New(db)
	if channelsGuild != "" {
		return st.LogChannels(ctx, channelsGuild)
	}
	return st.AllLogChannels(ctx)
}

// checkChannelName accepts GLOBAL and the log channel of any registered action.
func checkChannelName(name string) error {
	if name == audit.Global {
		return nil
	}
	reg, err := audit.NewRegistry(slog.Default(), audit.DefaultHandlers())
	if err != nil {
		return err
	}
	for _, d := range reg.Descriptors() {
		if d.Action().LogChannelName() == name {
			return nil
		}
	}
	return fmt.Errorf("unknown log channel %q", name)
}
