package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/winter-dragon/dragonlog/internal/config"
)

// SQLiteDB implements DB using SQLite via mattn/go-sqlite3.
type SQLiteDB struct {
	conn
	path string
}

// NewSQLite opens (or creates) the SQLite database at cfg.Path.
func NewSQLite(cfg config.DatabaseConfig) (*SQLiteDB, error) {
	path := cfg.Path
	if path == "" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, config.DefaultDBFile)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	s := &SQLiteDB{conn: conn{db: db, upsert: sqliteUpsert}, path: path}
	if err := s.Ping(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}
	return s, nil
}

func (s *SQLiteDB) Driver() string { return "sqlite" }

// Path is the database file.
func (s *SQLiteDB) Path() string { return s.path }

func (s *SQLiteDB) Migrate(ctx context.Context) error {
	return migrate(ctx, s.db, s.Driver(), `CREATE TABLE IF NOT EXISTS schema_migrations (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		filename    TEXT    NOT NULL UNIQUE,
		applied_at  TEXT    NOT NULL
	)`, func(ctx context.Context, body string) error {
		_, err := s.db.ExecContext(ctx, body)
		return err
	})
}

// sqliteUpsert renders INSERT ... ON CONFLICT(keys) DO UPDATE.
func sqliteUpsert(table string, cols, keys []string) string {
	sets := make([]string, 0, len(cols))
	for _, c := range valueColumns(cols, keys) {
		sets = append(sets, c+" = excluded."+c)
	}
	action := "DO UPDATE SET " + strings.Join(sets, ", ")
	if len(sets) == 0 {
		action = "DO NOTHING"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(%s) %s",
		table, strings.Join(cols, ", "), placeholders(len(cols)), strings.Join(keys, ", "), action)
}
