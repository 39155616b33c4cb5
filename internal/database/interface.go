package database

import (
	"context"
	"fmt"

	"github.com/winter-dragon/dragonlog/internal/config"
)

// Record is a table row addressable by its primary key. Columns come from the
// struct's `db:` tags, in field order.
type Record interface {
	Table() string
	KeyColumns() []string
	KeyValues() []any
}

// DB is the storage interface behind the persistence gateway.
// Implementations exist for SQLite (default) and MySQL.
type DB interface {
	// Select executes a query and scans rows into dest (slice pointer).
	Select(ctx context.Context, dest any, query string, args ...any) error

	// Get executes a query expected to return a single row and scans into dest.
	Get(ctx context.Context, dest any, query string, args ...any) error

	// Find loads the row keyed by rec's key values into rec. It reports false
	// when there is no such row.
	Find(ctx context.Context, rec Record) (bool, error)

	// Upsert inserts rec or overwrites its non-key columns in one statement.
	// Records made only of key columns are inserted or left untouched.
	Upsert(ctx context.Context, rec Record) error

	// Delete removes the row keyed by rec and reports whether one existed.
	Delete(ctx context.Context, rec Record) (bool, error)

	// DeleteWhere removes every row of table matching where.
	DeleteWhere(ctx context.Context, table, where string, args ...any) (int64, error)

	// Migrate applies pending schema migrations in order.
	Migrate(ctx context.Context) error

	// Ping verifies the database connection is alive.
	Ping(ctx context.Context) error

	// Close releases the database connection.
	Close() error

	// Driver returns the backend name: "sqlite" or "mysql".
	Driver() string
}

// New returns a DB implementation matching cfg.Driver.
// SQLite is the default when driver is empty.
func New(cfg config.DatabaseConfig) (DB, error) {
	switch cfg.Driver {
	case "mysql":
		return NewMySQL(cfg)
	case "sqlite", "sqlite3", "":
		return NewSQLite(cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q (supported: sqlite, mysql)", cfg.Driver)
	}
}
