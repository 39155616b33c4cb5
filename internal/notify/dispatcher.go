package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/winter-dragon/dragonlog/internal/audit"
	"github.com/winter-dragon/dragonlog/internal/config"
	"github.com/winter-dragon/dragonlog/models"
)

// Sender is the platform's send primitive plus the channel lookup used to
// check a destination before sending.
type Sender interface {
	// ChannelGuild returns the guild that owns channelID.
	ChannelGuild(ctx context.Context, channelID string) (string, error)
	Send(ctx context.Context, channelID string, m Message) error
}

// Resolver finds the log channels configured for a guild.
type Resolver interface {
	LogChannels(ctx context.Context, guildID string, names ...string) ([]models.LogChannel, error)
}

// Channel is implemented by each mirror provider.
type Channel interface {
	Name() string
	IsConfigured() bool
	Send(ctx context.Context, m Message) error
}

// Destination is one Discord log channel.
type Destination struct {
	GuildID   string `json:"guild_id"`
	Name      string `json:"name"`
	ChannelID string `json:"channel_id"`
}

type Status string

const (
	Delivered      Status = "delivered"
	DeliveryFailed Status = "delivery_failed"
)

// Result is the outcome of one Dispatch call. Err wraps audit.ErrDeliveryFailed
// when Status is DeliveryFailed.
type Result struct {
	Destination Destination
	Status      Status
	Err         error
}

// Dispatcher delivers notifications to Discord log channels and fans a copy
// out to every configured mirror.
type Dispatcher struct {
	sender   Sender
	resolver Resolver
	mirrors  []Channel
	actions  map[string]bool // empty = mirror everything
	log      *slog.Logger
}

// NewDispatcher creates a Dispatcher from the given config.
// Only mirrors with IsConfigured() == true are active.
func NewDispatcher(cfg config.NotifyConfig, sender Sender, resolver Resolver, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		sender:   sender,
		resolver: resolver,
		log:      logger.With("component", "notify"),
	}
	if len(cfg.Actions) > 0 {
		d.actions = make(map[string]bool, len(cfg.Actions))
		for _, a := range cfg.Actions {
			d.actions[a] = true
		}
	}

	mirrors := []Channel{
		NewSlack(cfg.Slack),
		NewTelegram(cfg.Telegram),
		NewEmail(cfg.Email),
		NewWebhook(cfg.Webhook),
		NewNATS(cfg.NATS),
	}
	for _, ch := range mirrors {
		if ch.IsConfigured() {
			d.mirrors = append(d.mirrors, ch)
		}
	}
	return d
}

// AddMirror registers an additional mirror. It is not safe to call while
// notifications are being delivered.
func (d *Dispatcher) AddMirror(ch Channel) {
	if ch.IsConfigured() {
		d.mirrors = append(d.mirrors, ch)
	}
}

// Mirrors returns the names of the active mirrors.
func (d *Dispatcher) Mirrors() []string {
	names := make([]string, len(d.mirrors))
	for i, ch := range d.mirrors {
		names[i] = ch.Name()
	}
	return names
}

// Dispatch renders n and sends it to dest. It never retries; a rejected or
// unreachable destination yields a DeliveryFailed result.
func (d *Dispatcher) Dispatch(ctx context.Context, n audit.Notification, dest Destination) Result {
	res := Result{Destination: dest, Status: DeliveryFailed}
	if dest.ChannelID == "" {
		res.Err = fmt.Errorf("%w: %s has no channel", audit.ErrDeliveryFailed, dest.Name)
		return res
	}
	guildID, err := d.sender.ChannelGuild(ctx, dest.ChannelID)
	if err != nil {
		res.Err = fmt.Errorf("%w: looking up channel %s: %w", audit.ErrDeliveryFailed, dest.ChannelID, err)
		return res
	}
	if dest.GuildID != "" && guildID != dest.GuildID {
		res.Err = fmt.Errorf("%w: channel %s belongs to guild %s", audit.ErrDeliveryFailed, dest.ChannelID, guildID)
		return res
	}
	if err := d.sender.Send(ctx, dest.ChannelID, Render(n)); err != nil {
		res.Err = fmt.Errorf("%w: sending to %s: %w", audit.ErrDeliveryFailed, dest.ChannelID, err)
		return res
	}
	res.Status = Delivered
	return res
}

// Destinations resolves the log channels for n: the per-action channel and the
// guild-wide GLOBAL channel, when configured.
func (d *Dispatcher) Destinations(ctx context.Context, n audit.Notification) ([]Destination, error) {
	rows, err := d.resolver.LogChannels(ctx, n.GuildID, n.Action.LogChannelName(), audit.Global)
	if err != nil {
		return nil, fmt.Errorf("resolving log channels: %w", err)
	}
	out := make([]Destination, 0, len(rows))
	for _, r := range rows {
		out = append(out, Destination{GuildID: r.GuildID, Name: r.Name, ChannelID: r.ChannelID})
	}
	return out, nil
}

// Deliver dispatches n to every resolved destination, then mirrors it.
// Mirror errors are logged but never returned.
func (d *Dispatcher) Deliver(ctx context.Context, n audit.Notification) []Result {
	dests, err := d.Destinations(ctx, n)
	if err != nil {
		d.mirror(ctx, n)
		return []Result{{
			Destination: Destination{GuildID: n.GuildID},
			Status:      DeliveryFailed,
			Err:         fmt.Errorf("%w: %w", audit.ErrDeliveryFailed, err),
		}}
	}
	if len(dests) == 0 {
		d.log.Debug("no log channel configured", "guild_id", n.GuildID, "action", n.Action)
	}
	results := make([]Result, 0, len(dests))
	for _, dest := range dests {
		results = append(results, d.Dispatch(ctx, n, dest))
	}
	d.mirror(ctx, n)
	return results
}

func (d *Dispatcher) mirror(ctx context.Context, n audit.Notification) {
	if len(d.mirrors) == 0 || !d.shouldMirror(n) {
		return
	}
	m := Render(n)
	for _, ch := range d.mirrors {
		if err := ch.Send(ctx, m); err != nil {
			d.log.Warn("notify: mirror send failed", "mirror", ch.Name(), "action", n.Action, "error", err)
		}
	}
}

func (d *Dispatcher) shouldMirror(n audit.Notification) bool {
	return len(d.actions) == 0 || d.actions[n.Action.String()]
}

// Close releases mirror connections.
func (d *Dispatcher) Close() error {
	var errs []error
	for _, ch := range d.mirrors {
		if c, ok := ch.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
