package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/bwmarrin/discordgo"

	"github.com/winter-dragon/dragonlog/internal/audit"
)

// MaxReplay is the largest page the audit log endpoint returns.
const MaxReplay = 100

// Replay fetches the newest limit audit log entries of guildID and converts
// them, oldest first.
func Replay(ctx context.Context, s *discordgo.Session, dir Directory, guildID string, limit int) ([]*audit.Entry, error) {
	if limit <= 0 || limit > MaxReplay {
		limit = MaxReplay
	}
	log, err := s.GuildAuditLog(guildID, "", "", 0, limit, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetching audit log for %s: %w", guildID, err)
	}
	raws, err := rawEntries(guildID, log.AuditLogEntries)
	if err != nil {
		return nil, err
	}
	out := make([]*audit.Entry, 0, len(raws))
	for _, raw := range raws {
		out = append(out, Convert(ctx, dir, raw))
	}
	return out, nil
}

// rawEntries re-encodes REST entries into the gateway shape and reverses
// them into chronological order.
func rawEntries(guildID string, entries []*discordgo.AuditLogEntry) ([]RawEntry, error) {
	out := make([]RawEntry, 0, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("encoding audit log entry %s: %w", e.ID, err)
		}
		raw, err := ParseRawEntry(data)
		if err != nil {
			return nil, err
		}
		raw.GuildID = guildID
		out = append(out, raw)
	}
	slices.Reverse(out)
	return out, nil
}
