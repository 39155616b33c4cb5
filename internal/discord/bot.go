// Package discord adapts a discordgo session to the audit pipeline: it turns
// gateway events into audit entries and sends rendered notifications back.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/winter-dragon/dragonlog/internal/audit"
	"github.com/winter-dragon/dragonlog/internal/config"
	"github.com/winter-dragon/dragonlog/internal/notify"
)

// Intents requested by the bot. Audit log entries arrive with the guild bans
// (moderation) intent; message content is needed for edit diffs.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildBans |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsMessageContent

// ErrNoToken is returned by New when the bot token is empty.
var ErrNoToken = errors.New("discord token is not configured")

// Bot owns the gateway session and emits audit entries.
type Bot struct {
	s       *discordgo.Session
	dir     Directory
	guilds  map[string]bool
	entries chan *audit.Entry
	log     *slog.Logger

	mu     sync.Mutex
	done   chan struct{}
	closed bool
}

// New creates a bot for cfg. The session is not opened until Open.
func New(cfg config.DiscordConfig, logger *slog.Logger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, ErrNoToken
	}
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	s.Identify.Intents = Intents
	s.State.MaxMessageCount = 100
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "discord")

	b := &Bot{
		s:       s,
		guilds:  make(map[string]bool, len(cfg.Guilds)),
		entries: make(chan *audit.Entry, 256),
		log:     logger,
		done:    make(chan struct{}),
	}
	b.dir = NewSessionDirectory(s, logger)
	for _, g := range cfg.Guilds {
		b.guilds[g] = true
	}

	s.AddHandler(b.onEvent)
	s.AddHandler(b.onMemberAdd)
	s.AddHandler(b.onMemberRemove)
	s.AddHandler(b.onMessageUpdate)
	s.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		b.log.Info("connected to gateway", "user", r.User.Username, "guilds", len(r.Guilds))
	})
	return b, nil
}

// Session exposes the underlying session for provisioning and replay.
func (b *Bot) Session() *discordgo.Session { return b.s }

// Directory returns the ID resolver backed by this session.
func (b *Bot) Directory() Directory { return b.dir }

// Entries is the stream of converted audit entries. It is never closed; stop
// consuming when the pipeline context ends.
func (b *Bot) Entries() <-chan *audit.Entry { return b.entries }

func (b *Bot) Open() error {
	if err := b.s.Open(); err != nil {
		return fmt.Errorf("opening discord gateway: %w", err)
	}
	return nil
}

func (b *Bot) Close() error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.done)
	}
	b.mu.Unlock()
	return b.s.Close()
}

// Watches reports whether entries from guildID are processed.
func (b *Bot) Watches(guildID string) bool {
	return len(b.guilds) == 0 || b.guilds[guildID]
}

func (b *Bot) emit(e *audit.Entry) {
	if !b.Watches(e.GuildID) {
		return
	}
	select {
	case b.entries <- e:
	case <-b.done:
	}
}

func (b *Bot) onEvent(_ *discordgo.Session, ev *discordgo.Event) {
	if ev.Type != EventAuditLogEntryCreate {
		return
	}
	raw, err := ParseRawEntry(ev.RawData)
	if err != nil {
		b.log.Warn("dropping audit log event", "error", err)
		return
	}
	if !b.Watches(raw.GuildID) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	b.emit(Convert(ctx, b.dir, raw))
}

func (b *Bot) onMemberAdd(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.Member == nil || m.User == nil {
		return
	}
	at := m.JoinedAt
	if at.IsZero() {
		at = time.Now()
	}
	b.emit(presenceEntry(audit.MemberJoin, m.GuildID, m.User, at))
}

func (b *Bot) onMemberRemove(_ *discordgo.Session, m *discordgo.GuildMemberRemove) {
	if m.Member == nil || m.User == nil {
		return
	}
	b.emit(presenceEntry(audit.MemberLeave, m.GuildID, m.User, time.Now()))
}

func presenceEntry(a audit.Action, guildID string, u *discordgo.User, at time.Time) *audit.Entry {
	user := toUser(u)
	return &audit.Entry{
		ID:        uuid.NewString(),
		GuildID:   guildID,
		Action:    a,
		Actor:     user,
		Target:    user,
		CreatedAt: at.UTC(),
	}
}

func (b *Bot) onMessageUpdate(_ *discordgo.Session, m *discordgo.MessageUpdate) {
	if e := editEntry(m, b.channelOf); e != nil {
		b.emit(e)
	}
}

func (b *Bot) channelOf(id string) audit.Channel {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return *b.dir.Channel(ctx, id)
}

// editEntry builds a message_edit entry. Edits of uncached messages, bot
// messages and edits that leave the content unchanged (embeds unfurling) are
// ignored.
func editEntry(m *discordgo.MessageUpdate, channel func(id string) audit.Channel) *audit.Entry {
	if m.Message == nil || m.BeforeUpdate == nil || m.GuildID == "" {
		return nil
	}
	if m.Author == nil || m.Author.Bot || m.Content == m.BeforeUpdate.Content {
		return nil
	}
	author := toUser(m.Author)
	at := time.Now().UTC()
	if m.EditedTimestamp != nil {
		at = m.EditedTimestamp.UTC()
	}
	return &audit.Entry{
		ID:      uuid.NewString(),
		GuildID: m.GuildID,
		Action:  audit.MessageEdit,
		Actor:   author,
		Target: &audit.Message{
			ID:      m.ID,
			Author:  *author,
			Channel: channel(m.ChannelID),
			Content: m.Content,
		},
		CreatedAt: at,
		Before:    audit.MessageEditState{Content: m.BeforeUpdate.Content},
		After:     audit.MessageEditState{Content: m.Content},
	}
}

// ChannelGuild implements notify.Sender.
func (b *Bot) ChannelGuild(ctx context.Context, channelID string) (string, error) {
	ch, err := b.s.State.Channel(channelID)
	if err != nil {
		ch, err = b.s.Channel(channelID, discordgo.WithContext(ctx))
	}
	if err != nil {
		return "", fmt.Errorf("looking up channel %s: %w", channelID, err)
	}
	return ch.GuildID, nil
}

// Send implements notify.Sender.
func (b *Bot) Send(ctx context.Context, channelID string, m notify.Message) error {
	if _, err := b.s.ChannelMessageSendEmbed(channelID, Embed(m), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("sending embed to %s: %w", channelID, err)
	}
	return nil
}

// Embed converts a rendered message to a Discord embed.
func Embed(m notify.Message) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:       m.Title,
		Description: m.Description,
		Color:       m.Color,
	}
	if !m.Timestamp.IsZero() {
		e.Timestamp = m.Timestamp.UTC().Format(time.RFC3339)
	}
	if m.Footer != "" {
		e.Footer = &discordgo.MessageEmbedFooter{Text: m.Footer}
	}
	for _, f := range m.Fields {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return e
}
