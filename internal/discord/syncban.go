package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/winter-dragon/dragonlog/models"
)

// SyncBanResult counts what ApplySyncBans did in one guild.
type SyncBanResult struct {
	Banned  int
	Skipped int
}

// ApplySyncBans bans every recorded sync-ban user from guildID. Users whose
// ban originated in guildID are skipped. One failed ban does not stop the
// rest; failures are joined into the returned error.
func ApplySyncBans(ctx context.Context, s *discordgo.Session, guildID string, users []models.SyncBanUser, logger *slog.Logger) (SyncBanResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var res SyncBanResult
	var errs []error
	for _, u := range users {
		if u.GuildID == guildID {
			res.Skipped++
			continue
		}
		if err := s.GuildBanCreateWithReason(guildID, u.UserID, syncBanReason(u), 0, discordgo.WithContext(ctx)); err != nil {
			errs = append(errs, fmt.Errorf("banning %s from %s: %w", u.UserID, guildID, err))
			continue
		}
		res.Banned++
		logger.Info("sync ban applied", "guild_id", guildID, "user_id", u.UserID, "origin_guild_id", u.GuildID)
	}
	return res, errors.Join(errs...)
}

func syncBanReason(u models.SyncBanUser) string {
	reason := u.Reason
	if reason == "" {
		reason = "No reason provided"
	}
	return fmt.Sprintf("Syncing bans: %s from guild %s", reason, u.GuildID)
}
