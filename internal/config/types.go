package config

import "time"

// Config is the root configuration structure for dragonlog.
// Serialised to ~/.dragonlog/config.json.
type Config struct {
	Discord   DiscordConfig   `mapstructure:"discord"   json:"discord"`
	Database  DatabaseConfig  `mapstructure:"database"  json:"database"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"  json:"pipeline"`
	Notify    NotifyConfig    `mapstructure:"notify"    json:"notify"`
	Gateway   GatewayConfig   `mapstructure:"gateway"   json:"gateway"`
	Retention RetentionConfig `mapstructure:"retention" json:"retention"`
}

// DiscordConfig holds the bot credentials.
type DiscordConfig struct {
	// Token is the bot token, without the "Bot " prefix.
	Token string `mapstructure:"token" json:"token"`
	// Guilds restricts processing to these guild IDs. Empty means every guild
	// the bot is in.
	Guilds []string `mapstructure:"guilds" json:"guilds" validate:"dive,numeric"`
	// LogCategory is the name of the channel category created by provision.
	LogCategory string `mapstructure:"log_category" json:"log_category" validate:"required,max=100"`
}

// DatabaseConfig controls the storage backend.
type DatabaseConfig struct {
	// Driver is "sqlite" (default) or "mysql".
	Driver string `mapstructure:"driver" json:"driver" validate:"oneof=sqlite mysql"`
	// Path is the SQLite file path (expanded at runtime).
	Path string `mapstructure:"path"   json:"path"   validate:"required_if=Driver sqlite"`
	// DSN is the MySQL data source name (used when Driver == "mysql").
	DSN string `mapstructure:"dsn"    json:"dsn"    validate:"required_if=Driver mysql"`
}

// PipelineConfig controls how audit entries are processed.
type PipelineConfig struct {
	// Workers bounds how many entries are processed at the same time.
	Workers int `mapstructure:"workers" json:"workers" validate:"min=1,max=64"`
	// EntryTimeout caps a single entry's handler, notification and delivery.
	EntryTimeout time.Duration `mapstructure:"entry_timeout" json:"entry_timeout" validate:"min=0"`
	// RecordEntries stores every classified entry in audit_logs.
	RecordEntries bool `mapstructure:"record_entries" json:"record_entries"`
}

// NotifyConfig controls mirrors that receive a copy of every Discord notification.
type NotifyConfig struct {
	Slack    SlackNotifyConfig    `mapstructure:"slack"    json:"slack"`
	Telegram TelegramNotifyConfig `mapstructure:"telegram" json:"telegram"`
	Email    EmailNotifyConfig    `mapstructure:"email"    json:"email"`
	Webhook  WebhookNotifyConfig  `mapstructure:"webhook"  json:"webhook"`
	NATS     NATSNotifyConfig     `mapstructure:"nats"     json:"nats"`
	// Actions limits mirroring to these action names. Empty means all.
	Actions []string `mapstructure:"actions" json:"actions"`
}

type SlackNotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url" json:"webhook_url" validate:"omitempty,url"`
}

type TelegramNotifyConfig struct {
	BotToken string `mapstructure:"bot_token" json:"bot_token"`
	ChatID   string `mapstructure:"chat_id"   json:"chat_id"`
}

type EmailNotifyConfig struct {
	SMTPHost string `mapstructure:"smtp_host" json:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port" json:"smtp_port" validate:"min=0,max=65535"`
	Username string `mapstructure:"username"  json:"username"`
	Password string `mapstructure:"password"  json:"password"`
	From     string `mapstructure:"from"      json:"from"      validate:"omitempty,email"`
	To       string `mapstructure:"to"        json:"to"        validate:"omitempty,email"`
	UseTLS   bool   `mapstructure:"use_tls"   json:"use_tls"`
}

type WebhookNotifyConfig struct {
	URL string `mapstructure:"url" json:"url" validate:"omitempty,url"`
	// Secret signs the body with HMAC-SHA256 (X-Dragonlog-Signature).
	Secret string `mapstructure:"secret" json:"secret"`
}

type NATSNotifyConfig struct {
	URL string `mapstructure:"url" json:"url"`
	// Subject prefix; the action name is appended, e.g. dragonlog.audit.ban.
	Subject string `mapstructure:"subject" json:"subject"`
}

// GatewayConfig controls the local control plane.
type GatewayConfig struct {
	// Port is the localhost HTTP port the gateway listens on (default: 6090).
	Port int `mapstructure:"port" json:"port" validate:"min=0,max=65535"`
	// StaleAfter marks the pipeline stale when no entry was processed for this long.
	StaleAfter time.Duration `mapstructure:"stale_after" json:"stale_after"`
}

// RetentionConfig controls pruning of the audit_logs table.
type RetentionConfig struct {
	// Schedule is a cron expression; empty disables pruning.
	Schedule string `mapstructure:"schedule" json:"schedule"`
	// MaxAge is how long audit_logs rows are kept.
	MaxAge time.Duration `mapstructure:"max_age" json:"max_age" validate:"min=0"`
}
