package gateway

import "github.com/winter-dragon/dragonlog/internal/audit"

// SSEEvent is serialised as JSON and pushed over the GET /events SSE stream.
type SSEEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Status is a live snapshot of the pipeline as seen by the gateway.
type Status struct {
	Health        string `json:"health"`
	Workers       int    `json:"workers"`
	Processed     int64  `json:"processed"`
	Handled       int64  `json:"handled"`
	Delivered     int64  `json:"delivered"`
	Failed        int64  `json:"failed"`
	Errors        int64  `json:"errors"`
	LastEntryID   string `json:"last_entry_id,omitempty"`
	LastAction    string `json:"last_action,omitempty"`
	LastEntryAt   string `json:"last_entry_at,omitempty"`
	LastPruneAt   string `json:"last_prune_at,omitempty"`
	Database      string `json:"database"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// HeartbeatStatus is the derived health of the pipeline.
type HeartbeatStatus struct {
	Status      string `json:"status"` // healthy, idle or stale
	LastEntryAt string `json:"last_entry_at,omitempty"`
	IdleForSecs int64  `json:"idle_for_secs,omitempty"`
	Message     string `json:"message"`
}

// ActionInfo describes one registered handler for GET /api/actions.
type ActionInfo struct {
	Action      audit.Action   `json:"action"`
	Type        int            `json:"type,omitempty"`
	Category    audit.Category `json:"category"`
	LogChannel  string         `json:"log_channel"`
	Implemented bool           `json:"implemented"`
}

type logChannelRequest struct {
	ChannelID string `json:"channel_id" validate:"required,numeric"`
}
