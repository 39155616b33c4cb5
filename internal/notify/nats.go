package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	natspkg "github.com/nats-io/nats.go"

	"github.com/winter-dragon/dragonlog/internal/config"
)

// NATSChannel publishes each message as JSON on <subject>.<action>.
// The connection is opened on first use.
type NATSChannel struct {
	cfg config.NATSNotifyConfig

	mu sync.Mutex
	nc *natspkg.Conn
}

// NewNATS creates a NATSChannel from cfg.
func NewNATS(cfg config.NATSNotifyConfig) *NATSChannel {
	if cfg.Subject == "" {
		cfg.Subject = "dragonlog.audit"
	}
	return &NATSChannel{cfg: cfg}
}

func (n *NATSChannel) Name() string       { return "nats" }
func (n *NATSChannel) IsConfigured() bool { return n.cfg.URL != "" }

// Subject returns the subject a message for action is published on.
func (n *NATSChannel) Subject(action string) string {
	return n.cfg.Subject + "." + action
}

func (n *NATSChannel) conn() (*natspkg.Conn, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.nc != nil && !n.nc.IsClosed() {
		return n.nc, nil
	}
	nc, err := natspkg.Connect(n.cfg.URL,
		natspkg.Name("dragonlog"),
		natspkg.Timeout(5*time.Second),
		natspkg.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("nats: connect: %w", err)
	}
	n.nc = nc
	return nc, nil
}

func (n *NATSChannel) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	nc, err := n.conn()
	if err != nil {
		return err
	}
	return nc.Publish(n.Subject(m.Action), b)
}

func (n *NATSChannel) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.nc != nil {
		n.nc.Close()
		n.nc = nil
	}
	return nil
}
