package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/winter-dragon/dragonlog/internal/config"
)

// MySQLDB implements DB using MySQL via go-sql-driver/mysql.
type MySQLDB struct {
	conn
}

// NewMySQL opens a MySQL connection using cfg.DSN.
func NewMySQL(cfg config.DatabaseConfig) (*MySQLDB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("mysql DSN is required when driver is mysql")
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening mysql connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	m := &MySQLDB{conn: conn{db: db, upsert: mysqlUpsert}}
	if err := m.Ping(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging mysql: %w", err)
	}
	return m, nil
}

func (m *MySQLDB) Driver() string { return "mysql" }

// Migrate applies the shared migrations. The driver runs one statement per
// Exec, so files are split on ';'.
func (m *MySQLDB) Migrate(ctx context.Context) error {
	return migrate(ctx, m.db, m.Driver(), `CREATE TABLE IF NOT EXISTS schema_migrations (
		id         INT          NOT NULL AUTO_INCREMENT PRIMARY KEY,
		filename   VARCHAR(255) NOT NULL UNIQUE,
		applied_at VARCHAR(64)  NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`, func(ctx context.Context, body string) error {
		for _, stmt := range mysqlStatements(body) {
			if _, err := m.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("%w\nSQL: %s", err, stmt)
			}
		}
		return nil
	})
}

// mysqlUpsert renders INSERT ... ON DUPLICATE KEY UPDATE. A key-only record
// gets a self-assignment so the insert stays idempotent.
func mysqlUpsert(table string, cols, keys []string) string {
	var pairs []string
	for _, c := range valueColumns(cols, keys) {
		pairs = append(pairs, fmt.Sprintf("%s = VALUES(%s)", c, c))
	}
	if len(pairs) == 0 {
		pairs = append(pairs, keys[0]+" = "+keys[0])
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON DUPLICATE KEY UPDATE %s",
		table, strings.Join(cols, ", "), placeholders(len(cols)), strings.Join(pairs, ", "))
}

// mysqlStatements splits a migration file into statements and rewrites the
// SQLite-only fragments.
func mysqlStatements(body string) []string {
	body = strings.ReplaceAll(body, "AUTOINCREMENT", "AUTO_INCREMENT")
	body = strings.ReplaceAll(body, "INTEGER PRIMARY KEY AUTO_INCREMENT", "INT NOT NULL AUTO_INCREMENT PRIMARY KEY")
	var out []string
	for _, stmt := range strings.Split(body, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
