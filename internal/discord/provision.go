package discord

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/winter-dragon/dragonlog/internal/audit"
	"github.com/winter-dragon/dragonlog/models"
)

// MaxCategorySize is the platform's limit of channels per category.
const MaxCategorySize = 50

// ErrAlreadyProvisioned is returned when a guild already has log channels.
var ErrAlreadyProvisioned = errors.New("log channels are already set up")

// ChannelStore is the part of the store provisioning writes to.
type ChannelStore interface {
	LogChannels(ctx context.Context, guildID string, names ...string) ([]models.LogChannel, error)
	SetLogChannel(ctx context.Context, guildID, name, channelID string) error
	RemoveLogChannel(ctx context.Context, guildID, name string) (bool, error)
}

// CategoryPlan is one category and the log channel names placed in it.
type CategoryPlan struct {
	Name     string
	Channels []string
}

// Plan lays out one channel per name plus GLOBAL, GLOBAL first, in categories
// of at most MaxCategorySize channels.
func Plan(category string, names []string) []CategoryPlan {
	all := append([]string{audit.Global}, names...)
	var plans []CategoryPlan
	for i := 0; i < len(all); i += MaxCategorySize {
		end := min(i+MaxCategorySize, len(all))
		plans = append(plans, CategoryPlan{
			Name:     fmt.Sprintf("%s %d", category, len(plans)+1),
			Channels: all[i:end],
		})
	}
	return plans
}

// ActionChannelNames returns the upper-cased log channel name of every
// registered action, in registry order.
func ActionChannelNames(reg *audit.Registry) []string {
	seen := map[string]bool{}
	var out []string
	for _, d := range reg.Descriptors() {
		name := d.Action().LogChannelName()
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// Provision creates the log categories and channels for guildID and records
// the mapping. Categories are hidden from @everyone.
func Provision(ctx context.Context, s *discordgo.Session, st ChannelStore, guildID, category string, names []string) ([]models.LogChannel, error) {
	existing, err := st.LogChannels(ctx, guildID, append([]string{audit.Global}, names...)...)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, ErrAlreadyProvisioned
	}

	var created []models.LogChannel
	for _, plan := range Plan(category, names) {
		parent, err := createCategory(ctx, s, guildID, plan.Name)
		if err != nil {
			return created, err
		}
		for _, name := range plan.Channels {
			row, err := createLogChannel(ctx, s, st, guildID, parent, name)
			if err != nil {
				return created, err
			}
			created = append(created, row)
		}
	}
	return created, nil
}

// Reconcile creates only the log channels missing from guildID's mapping;
// a mapped channel that no longer exists counts as missing. New channels fill
// the categories already holding log channels up to MaxCategorySize, then go
// into new categories.
func Reconcile(ctx context.Context, s *discordgo.Session, st ChannelStore, guildID, category string, names []string) ([]models.LogChannel, error) {
	want := append([]string{audit.Global}, names...)
	existing, err := st.LogChannels(ctx, guildID, want...)
	if err != nil {
		return nil, err
	}
	live, err := s.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("listing channels of guild %s: %w", guildID, err)
	}

	byID := make(map[string]*discordgo.Channel, len(live))
	children := map[string]int{}
	for _, ch := range live {
		byID[ch.ID] = ch
		if ch.ParentID != "" {
			children[ch.ParentID]++
		}
	}

	mapped := map[string]bool{}
	var parents []string
	for _, row := range existing {
		ch, ok := byID[row.ChannelID]
		if !ok {
			continue
		}
		mapped[row.Name] = true
		if ch.ParentID != "" && !slices.Contains(parents, ch.ParentID) {
			parents = append(parents, ch.ParentID)
		}
	}
	var missing []string
	for _, name := range want {
		if !mapped[name] {
			missing = append(missing, name)
		}
	}

	var created []models.LogChannel
	place := func(parent string, n int) error {
		for _, name := range missing[:n] {
			row, err := createLogChannel(ctx, s, st, guildID, parent, name)
			if err != nil {
				return err
			}
			created = append(created, row)
		}
		missing = missing[n:]
		return nil
	}
	for _, parent := range parents {
		if free := MaxCategorySize - children[parent]; free > 0 && len(missing) > 0 {
			if err := place(parent, min(free, len(missing))); err != nil {
				return created, err
			}
		}
	}
	for i := len(parents) + 1; len(missing) > 0; i++ {
		parent, err := createCategory(ctx, s, guildID, fmt.Sprintf("%s %d", category, i))
		if err != nil {
			return created, err
		}
		if err := place(parent, min(MaxCategorySize, len(missing))); err != nil {
			return created, err
		}
	}
	return created, nil
}

func createCategory(ctx context.Context, s *discordgo.Session, guildID, name string) (string, error) {
	ch, err := s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name: name,
		Type: discordgo.ChannelTypeGuildCategory,
		PermissionOverwrites: []*discordgo.PermissionOverwrite{{
			ID:   guildID, // the @everyone role shares the guild ID
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		}},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("creating category %q: %w", name, err)
	}
	return ch.ID, nil
}

func createLogChannel(ctx context.Context, s *discordgo.Session, st ChannelStore, guildID, parentID, name string) (models.LogChannel, error) {
	ch, err := s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:     strings.ToLower(name),
		Type:     discordgo.ChannelTypeGuildText,
		ParentID: parentID,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return models.LogChannel{}, fmt.Errorf("creating channel %q: %w", name, err)
	}
	if err := st.SetLogChannel(ctx, guildID, name, ch.ID); err != nil {
		return models.LogChannel{}, err
	}
	return models.LogChannel{GuildID: guildID, Name: name, ChannelID: ch.ID}, nil
}

// Deprovision deletes the given log channels, the categories holding them and
// their rows. Channels already gone on the platform are only unmapped.
func Deprovision(ctx context.Context, s *discordgo.Session, st ChannelStore, rows []models.LogChannel) error {
	parents := map[string]string{}
	var errs []error
	for _, row := range rows {
		ch, err := s.ChannelDelete(row.ChannelID, discordgo.WithContext(ctx))
		if err == nil && ch.ParentID != "" {
			parents[ch.ParentID] = row.GuildID
		}
		if err != nil && !isNotFound(err) {
			errs = append(errs, fmt.Errorf("deleting channel %s: %w", row.ChannelID, err))
			continue
		}
		if _, err := st.RemoveLogChannel(ctx, row.GuildID, row.Name); err != nil {
			errs = append(errs, err)
		}
	}
	for id := range parents {
		if _, err := s.ChannelDelete(id, discordgo.WithContext(ctx)); err != nil && !isNotFound(err) {
			errs = append(errs, fmt.Errorf("deleting category %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func isNotFound(err error) bool {
	var rest *discordgo.RESTError
	return errors.As(err, &rest) && rest.Response != nil && rest.Response.StatusCode == 404
}
