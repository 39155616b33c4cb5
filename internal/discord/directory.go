package discord

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/winter-dragon/dragonlog/internal/audit"
)

// SessionDirectory resolves IDs from the session state cache, falling back to
// the REST API. Lookups that fail still return an object with the ID set.
type SessionDirectory struct {
	s   *discordgo.Session
	log *slog.Logger
}

func NewSessionDirectory(s *discordgo.Session, logger *slog.Logger) *SessionDirectory {
	return &SessionDirectory{s: s, log: logger}
}

// User prefers the cached guild member. Users that left the guild are
// fetched over REST.
func (d *SessionDirectory) User(ctx context.Context, guildID, id string) *audit.User {
	if m, err := d.s.State.Member(guildID, id); err == nil && m.User != nil {
		return toUser(m.User)
	}
	u, err := d.s.User(id, discordgo.WithContext(ctx))
	if err != nil {
		d.log.Debug("user lookup failed", "user_id", id, "error", err)
		return &audit.User{ID: id}
	}
	return toUser(u)
}

func (d *SessionDirectory) Channel(ctx context.Context, id string) *audit.Channel {
	ch, err := d.s.State.Channel(id)
	if err != nil {
		ch, err = d.s.Channel(id, discordgo.WithContext(ctx))
	}
	if err != nil {
		d.log.Debug("channel lookup failed", "channel_id", id, "error", err)
		return &audit.Channel{ID: id, Kind: audit.ChannelUnknown}
	}
	out := toChannel(ch)
	if ch.ParentID != "" {
		if parent, err := d.s.State.Channel(ch.ParentID); err == nil {
			out.Parent = toChannel(parent)
		}
	}
	return out
}

func (d *SessionDirectory) Role(ctx context.Context, guildID, id string) *audit.Role {
	if r, err := d.s.State.Role(guildID, id); err == nil {
		return &audit.Role{ID: r.ID, Name: r.Name}
	}
	roles, err := d.s.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		d.log.Debug("role lookup failed", "guild_id", guildID, "role_id", id, "error", err)
		return &audit.Role{ID: id}
	}
	for _, r := range roles {
		if r.ID == id {
			return &audit.Role{ID: r.ID, Name: r.Name}
		}
	}
	return &audit.Role{ID: id}
}

func toUser(u *discordgo.User) *audit.User {
	if u == nil {
		return nil
	}
	name := u.GlobalName
	if name == "" {
		name = u.Username
	}
	return &audit.User{ID: u.ID, Name: name, Bot: u.Bot}
}

func toChannel(ch *discordgo.Channel) *audit.Channel {
	return &audit.Channel{
		ID:       ch.ID,
		Name:     ch.Name,
		Kind:     audit.ChannelKindFromType(int(ch.Type)),
		ParentID: ch.ParentID,
	}
}
