package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/winter-dragon/dragonlog/internal/config"
)

type channelRow struct {
	GuildID   string `db:"guild_id"`
	Name      string `db:"name"`
	ChannelID string `db:"channel_id"`
	UpdatedAt string `db:"updated_at"`
	Scratch   string `db:"-"`
}

func (channelRow) Table() string        { return "log_channels" }
func (channelRow) KeyColumns() []string { return []string{"guild_id", "name"} }
func (r *channelRow) KeyValues() []any  { return []any{r.GuildID, r.Name} }

func TestUpsertStatements(t *testing.T) {
	cols, _ := columns(&channelRow{})
	keys := channelRow{}.KeyColumns()
	tests := []struct {
		name string
		got  string
		want string
	}{
		{
			"sqlite",
			sqliteUpsert("log_channels", cols, keys),
			"INSERT INTO log_channels (guild_id, name, channel_id, updated_at) VALUES (?, ?, ?, ?) " +
				"ON CONFLICT(guild_id, name) DO UPDATE SET channel_id = excluded.channel_id, updated_at = excluded.updated_at",
		},
		{
			"mysql",
			mysqlUpsert("log_channels", cols, keys),
			"INSERT INTO log_channels (guild_id, name, channel_id, updated_at) VALUES (?, ?, ?, ?) " +
				"ON DUPLICATE KEY UPDATE channel_id = VALUES(channel_id), updated_at = VALUES(updated_at)",
		},
		{
			"sqlite key only",
			sqliteUpsert("guilds", []string{"guild_id"}, []string{"guild_id"}),
			"INSERT INTO guilds (guild_id) VALUES (?) ON CONFLICT(guild_id) DO NOTHING",
		},
		{
			"mysql key only",
			mysqlUpsert("guilds", []string{"guild_id"}, []string{"guild_id"}),
			"INSERT INTO guilds (guild_id) VALUES (?) ON DUPLICATE KEY UPDATE guild_id = guild_id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Fatalf("statement:\n got %s\nwant %s", tt.got, tt.want)
			}
		})
	}
}

func TestColumnsSkipsUntagged(t *testing.T) {
	cols, vals := columns(&channelRow{GuildID: "1", Name: "BAN", ChannelID: "9", UpdatedAt: "t", Scratch: "x"})
	if diff := cmp.Diff([]string{"guild_id", "name", "channel_id", "updated_at"}, cols); diff != "" {
		t.Fatalf("columns (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{"1", "BAN", "9", "t"}, vals); diff != "" {
		t.Fatalf("values (-want +got):\n%s", diff)
	}
}

func TestMySQLStatements(t *testing.T) {
	got := mysqlStatements("CREATE TABLE a (id INTEGER PRIMARY KEY AUTOINCREMENT);\n\n CREATE INDEX i ON a (id);\n")
	want := []string{
		"CREATE TABLE a (id INT NOT NULL AUTO_INCREMENT PRIMARY KEY)",
		"CREATE INDEX i ON a (id)",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mysqlStatements (-want +got):\n%s", diff)
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	if _, err := New(config.DatabaseConfig{Driver: "postgres"}); err == nil {
		t.Fatal("expected an error for an unsupported driver")
	}
	if _, err := New(config.DatabaseConfig{Driver: "mysql"}); err == nil {
		t.Fatal("expected an error for mysql without a DSN")
	}
}

func TestSQLiteRecordRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := NewSQLite(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "rt.db")})
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	// A second run finds every file already recorded.
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	row := &channelRow{GuildID: "1", Name: "BAN", ChannelID: "500", UpdatedAt: "t0"}
	if err := db.Upsert(ctx, row); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := db.Upsert(ctx, &channelRow{GuildID: "1", Name: "BAN", ChannelID: "501", UpdatedAt: "t1"}); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	got := &channelRow{GuildID: "1", Name: "BAN"}
	found, err := db.Find(ctx, got)
	if err != nil || !found {
		t.Fatalf("Find = %v, %v", found, err)
	}
	if got.ChannelID != "501" || got.UpdatedAt != "t1" {
		t.Fatalf("Upsert did not overwrite value columns: %+v", got)
	}

	var all []channelRow
	if err := db.Select(ctx, &all, "SELECT guild_id, name, channel_id, updated_at FROM log_channels"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("Select returned %d rows, want 1", len(all))
	}

	deleted, err := db.Delete(ctx, got)
	if err != nil || !deleted {
		t.Fatalf("Delete = %v, %v", deleted, err)
	}
	deleted, err = db.Delete(ctx, got)
	if err != nil || deleted {
		t.Fatalf("second Delete = %v, %v; want false, nil", deleted, err)
	}
	if found, _ := db.Find(ctx, &channelRow{GuildID: "1", Name: "BAN"}); found {
		t.Fatal("row still present after Delete")
	}

	for _, ts := range []string{"2024-01-01T00:00:00Z", "2025-01-01T00:00:00Z"} {
		if err := db.Upsert(ctx, &channelRow{GuildID: "2", Name: ts, ChannelID: "1", UpdatedAt: ts}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	n, err := db.DeleteWhere(ctx, "log_channels", "updated_at < ?", "2024-06-01T00:00:00Z")
	if err != nil || n != 1 {
		t.Fatalf("DeleteWhere = %d, %v; want 1", n, err)
	}
}
