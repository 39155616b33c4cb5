package models

// SyncBanGuild marks a guild whose bans are shared with every other
// sync-ban guild.
type SyncBanGuild struct {
	GuildID   string `json:"guild_id"   db:"guild_id"`
	EnabledAt string `json:"enabled_at" db:"enabled_at"`
}

func (*SyncBanGuild) Table() string        { return "sync_ban_guilds" }
func (*SyncBanGuild) KeyColumns() []string { return []string{"guild_id"} }
func (g *SyncBanGuild) KeyValues() []any   { return []any{g.GuildID} }

// SyncBanUser is a user banned in one of the sync-ban guilds.
type SyncBanUser struct {
	UserID   string `json:"user_id"   db:"user_id"`
	GuildID  string `json:"guild_id"  db:"guild_id"` // guild the ban originated in
	Reason   string `json:"reason"    db:"reason"`
	BannedAt string `json:"banned_at" db:"banned_at"`
}

func (*SyncBanUser) Table() string        { return "sync_ban_users" }
func (*SyncBanUser) KeyColumns() []string { return []string{"user_id"} }
func (u *SyncBanUser) KeyValues() []any   { return []any{u.UserID} }
