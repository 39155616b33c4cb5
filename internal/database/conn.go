package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// upsertFunc renders the dialect's insert-or-update statement.
type upsertFunc func(table string, cols, keys []string) string

// conn holds the record operations both backends share. Only the upsert
// statement differs between dialects.
type conn struct {
	db     *sql.DB
	upsert upsertFunc
}

func (c *conn) Ping(ctx context.Context) error { return c.db.PingContext(ctx) }

func (c *conn) Close() error { return c.db.Close() }

// Select executes query and scans all rows into dest (must be a pointer to a slice of structs).
func (c *conn) Select(ctx context.Context, dest any, query string, args ...any) error {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	return scanRows(rows, dest)
}

// Get executes query and scans a single row into dest.
func (c *conn) Get(ctx context.Context, dest any, query string, args ...any) error {
	return scanRow(c.db.QueryRowContext(ctx, query, args...), dest)
}

func (c *conn) Find(ctx context.Context, rec Record) (bool, error) {
	cols, _ := columns(rec)
	// nosemgrep: go.lang.security.audit.database.string-formatted-query.string-formatted-query
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		strings.Join(cols, ", "), rec.Table(), keyClause(rec))
	err := c.Get(ctx, rec, query, rec.KeyValues()...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find %s: %w", rec.Table(), err)
	}
	return true, nil
}

func (c *conn) Upsert(ctx context.Context, rec Record) error {
	cols, vals := columns(rec)
	if _, err := c.db.ExecContext(ctx, c.upsert(rec.Table(), cols, rec.KeyColumns()), vals...); err != nil {
		return fmt.Errorf("upsert %s: %w", rec.Table(), err)
	}
	return nil
}

func (c *conn) Delete(ctx context.Context, rec Record) (bool, error) {
	n, err := c.DeleteWhere(ctx, rec.Table(), keyClause(rec), rec.KeyValues()...)
	return n > 0, err
}

func (c *conn) DeleteWhere(ctx context.Context, table, where string, args ...any) (int64, error) {
	// nosemgrep: go.lang.security.audit.database.string-formatted-query.string-formatted-query
	res, err := c.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", table, where), args...)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", table, err)
	}
	return res.RowsAffected()
}

// --- statement builders ---

func keyClause(rec Record) string {
	keys := rec.KeyColumns()
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " = ?"
	}
	return strings.Join(parts, " AND ")
}

// valueColumns returns the columns that are not part of the key.
func valueColumns(cols, keys []string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if !slices.Contains(keys, c) {
			out = append(out, c)
		}
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// --- reflection helpers ---

// columns returns the `db:` tagged column names of record in field order
// together with the field values.
func columns(record any) (cols []string, vals []any) {
	v := reflect.Indirect(reflect.ValueOf(record))
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		cols = append(cols, tag)
		vals = append(vals, v.Field(i).Interface())
	}
	return cols, vals
}

// scanRows scans sql.Rows into a slice of structs using `db:` tags.
func scanRows(rows *sql.Rows, dest any) error {
	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr || dv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("select: dest must be a pointer to a slice")
	}
	sliceVal := dv.Elem()
	elemType := sliceVal.Type().Elem()
	isPtr := elemType.Kind() == reflect.Ptr
	if isPtr {
		elemType = elemType.Elem()
	}

	for rows.Next() {
		elem := reflect.New(elemType).Elem()
		if err := rows.Scan(fieldPointers(elem, cols)...); err != nil {
			return err
		}
		if isPtr {
			elem = elem.Addr()
		}
		sliceVal.Set(reflect.Append(sliceVal, elem))
	}
	return rows.Err()
}

// scanRow scans a single row into dest. sql.Row does not expose column
// names, so the query must select the tagged columns in field order.
func scanRow(row *sql.Row, dest any) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr {
		return fmt.Errorf("get: dest must be a pointer")
	}
	elem := dv.Elem()
	var ptrs []any
	for i := 0; i < elem.NumField(); i++ {
		if tag := elem.Type().Field(i).Tag.Get("db"); tag != "" && tag != "-" {
			ptrs = append(ptrs, elem.Field(i).Addr().Interface())
		}
	}
	return row.Scan(ptrs...)
}

// fieldPointers maps column names to struct field pointers via `db:` tags.
// Unknown columns are scanned into a throwaway value.
func fieldPointers(elem reflect.Value, cols []string) []any {
	byTag := map[string]any{}
	t := elem.Type()
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("db"); tag != "" && tag != "-" {
			byTag[tag] = elem.Field(i).Addr().Interface()
		}
	}
	ptrs := make([]any, len(cols))
	for i, c := range cols {
		if p, ok := byTag[c]; ok {
			ptrs[i] = p
		} else {
			var discard any
			ptrs[i] = &discard
		}
	}
	return ptrs
}
