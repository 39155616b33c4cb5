package models

// AuditLog is the persisted form of a processed audit-log entry.
type AuditLog struct {
	ID        string `json:"id"         db:"id"` // Discord snowflake of the entry
	GuildID   string `json:"guild_id"   db:"guild_id"`
	Action    string `json:"action"     db:"action"`
	Category  string `json:"category"   db:"category"`
	ActorID   string `json:"actor_id"   db:"actor_id"`
	TargetID  string `json:"target_id"  db:"target_id"`
	Reason    string `json:"reason"     db:"reason"`
	CreatedAt string `json:"created_at" db:"created_at"` // RFC3339
}

func (*AuditLog) Table() string        { return "audit_logs" }
func (*AuditLog) KeyColumns() []string { return []string{"id"} }
func (a *AuditLog) KeyValues() []any   { return []any{a.ID} }
