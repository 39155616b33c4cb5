// Package store is the persistence gateway used by audit handlers and the
// control plane. It keeps SQL out of the pipeline.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/winter-dragon/dragonlog/internal/database"
	"github.com/winter-dragon/dragonlog/models"
)

// Record is a table row addressable by its primary key.
type Record = database.Record

// Store is the narrow save/load surface handlers depend on.
type Store interface {
	// FindByID loads the row keyed by rec's key values into rec.
	// It reports false, nil when no such row exists.
	FindByID(ctx context.Context, rec Record) (bool, error)
	// Upsert creates rec or updates its non-key columns.
	Upsert(ctx context.Context, rec Record) error
	// Delete removes the row keyed by rec. Deleting a missing row is not an error.
	Delete(ctx context.Context, rec Record) error
}

// SQL implements Store and the domain queries on top of database.DB.
type SQL struct {
	db database.DB
}

// New wraps db.
func New(db database.DB) *SQL {
	return &SQL{db: db}
}

func (s *SQL) FindByID(ctx context.Context, rec Record) (bool, error) {
	return s.db.Find(ctx, rec)
}

func (s *SQL) Upsert(ctx context.Context, rec Record) error {
	return s.db.Upsert(ctx, rec)
}

func (s *SQL) Delete(ctx context.Context, rec Record) error {
	_, err := s.db.Delete(ctx, rec)
	return err
}

// Now is the timestamp format used for every stored time column.
func Now() string { return time.Now().UTC().Format(time.RFC3339) }

// --- log channels ---

// LogChannels returns the mappings of guildID whose name is one of names.
func (s *SQL) LogChannels(ctx context.Context, guildID string, names ...string) ([]models.LogChannel, error) {
	var out []models.LogChannel
	if len(names) == 0 {
		err := s.db.Select(ctx, &out,
			`SELECT guild_id, name, channel_id, updated_at FROM log_channels WHERE guild_id = ? ORDER BY name`,
			guildID)
		return out, err
	}
	args := make([]any, 0, len(names)+1)
	args = append(args, guildID)
	for _, n := range names {
		args = append(args, n)
	}
	// nosemgrep: go.lang.security.audit.database.string-formatted-query.string-formatted-query
	query := fmt.Sprintf(
		`SELECT guild_id, name, channel_id, updated_at FROM log_channels WHERE guild_id = ? AND name IN (%s) ORDER BY name`,
		placeholders(len(names)))
	err := s.db.Select(ctx, &out, query, args...)
	return out, err
}

// AllLogChannels lists every mapping across guilds.
func (s *SQL) AllLogChannels(ctx context.Context) ([]models.LogChannel, error) {
	var out []models.LogChannel
	err := s.db.Select(ctx, &out,
		`SELECT guild_id, name, channel_id, updated_at FROM log_channels ORDER BY guild_id, name`)
	return out, err
}

// SetLogChannel creates or moves a mapping.
func (s *SQL) SetLogChannel(ctx context.Context, guildID, name, channelID string) error {
	return s.Upsert(ctx, &models.LogChannel{
		GuildID:   guildID,
		Name:      strings.ToUpper(name),
		ChannelID: channelID,
		UpdatedAt: Now(),
	})
}

// RemoveLogChannel deletes a mapping and reports whether one existed.
func (s *SQL) RemoveLogChannel(ctx context.Context, guildID, name string) (bool, error) {
	found, err := s.db.Delete(ctx, &models.LogChannel{GuildID: guildID, Name: strings.ToUpper(name)})
	if err != nil {
		return false, err
	}
	return found, nil
}

// --- audit logs ---

// AuditLogFilter narrows ListAuditLogs. Empty fields match everything.
type AuditLogFilter struct {
	GuildID string
	Action  string
	Limit   int
	Offset  int
}

func (f AuditLogFilter) where() (string, []any) {
	clauses := []string{"1 = 1"}
	var args []any
	if f.GuildID != "" {
		clauses = append(clauses, "guild_id = ?")
		args = append(args, f.GuildID)
	}
	if f.Action != "" {
		clauses = append(clauses, "action = ?")
		args = append(args, f.Action)
	}
	return strings.Join(clauses, " AND "), args
}

type countRow struct {
	N int `db:"n"`
}

// ListAuditLogs returns a page of audit logs, newest first, and the total
// number of matching rows.
func (s *SQL) ListAuditLogs(ctx context.Context, f AuditLogFilter) ([]models.AuditLog, int, error) {
	where, args := f.where()
	var total countRow
	// nosemgrep: go.lang.security.audit.database.string-formatted-query.string-formatted-query
	if err := s.db.Get(ctx, &total, "SELECT COUNT(*) AS n FROM audit_logs WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("counting audit logs: %w", err)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	var out []models.AuditLog
	// nosemgrep: go.lang.security.audit.database.string-formatted-query.string-formatted-query
	query := `SELECT id, guild_id, action, category, actor_id, target_id, reason, created_at
		FROM audit_logs WHERE ` + where + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	if err := s.db.Select(ctx, &out, query, append(args, limit, f.Offset)...); err != nil {
		return nil, 0, fmt.Errorf("listing audit logs: %w", err)
	}
	return out, total.N, nil
}

// PruneAuditLogs deletes audit logs created before cutoff.
func (s *SQL) PruneAuditLogs(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.db.DeleteWhere(ctx, "audit_logs", "created_at < ?", cutoff.UTC().Format(time.RFC3339))
}

// --- sync bans ---

// SetSyncBan enables or disables ban sharing for a guild.
func (s *SQL) SetSyncBan(ctx context.Context, guildID string, enabled bool) error {
	rec := &models.SyncBanGuild{GuildID: guildID, EnabledAt: Now()}
	if enabled {
		return s.Upsert(ctx, rec)
	}
	return s.Delete(ctx, rec)
}

// SyncBanGuilds lists the guilds taking part in ban sharing.
func (s *SQL) SyncBanGuilds(ctx context.Context) ([]models.SyncBanGuild, error) {
	var out []models.SyncBanGuild
	err := s.db.Select(ctx, &out,
		`SELECT guild_id, enabled_at FROM sync_ban_guilds ORDER BY guild_id`)
	return out, err
}

// SyncBanUsers lists users banned through the sync-ban network.
func (s *SQL) SyncBanUsers(ctx context.Context) ([]models.SyncBanUser, error) {
	var out []models.SyncBanUser
	err := s.db.Select(ctx, &out,
		`SELECT user_id, guild_id, reason, banned_at FROM sync_ban_users ORDER BY banned_at DESC`)
	return out, err
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
