package models

// LogChannel maps a guild's log category (an upper-cased action name or
// GLOBAL) to the text channel notifications are delivered to.
type LogChannel struct {
	GuildID   string `json:"guild_id"   db:"guild_id"   yaml:"guild_id"`
	Name      string `json:"name"       db:"name"       yaml:"name"`
	ChannelID string `json:"channel_id" db:"channel_id" yaml:"channel_id"`
	UpdatedAt string `json:"updated_at" db:"updated_at" yaml:"updated_at"`
}

func (*LogChannel) Table() string        { return "log_channels" }
func (*LogChannel) KeyColumns() []string { return []string{"guild_id", "name"} }
func (l *LogChannel) KeyValues() []any   { return []any{l.GuildID, l.Name} }
