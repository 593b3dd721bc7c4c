package db

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

//go:embed schema_sqlite.sql
var sqliteSchema string

// OpenSQLite opens (creating if needed) a SQLite database and applies the
// terminology schema. In-memory databases are limited to a single connection
// so every query sees the same data.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		path = "fhirfly.db"
	}
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&"
	} else {
		dsn += "?"
	}
	dsn += "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if strings.Contains(path, ":memory:") {
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return db, nil
}

// Timestamps are stored as fixed-width UTC text so that ORDER BY on the
// column matches chronological order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

func FormatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// LikePattern builds a case-insensitive substring pattern, escaping the LIKE
// wildcards in term. Use with ESCAPE '\'.
func LikePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

// JSONText converts a JSON document to a TEXT column value; empty documents
// and the JSON null literal are stored as NULL.
func JSONText(raw []byte) interface{} {
	if isNullJSON(raw) {
		return nil
	}
	return string(raw)
}

// JSONBytes is JSONText for jsonb columns.
func JSONBytes(raw []byte) []byte {
	if isNullJSON(raw) {
		return nil
	}
	return raw
}

// RawJSON converts a nullable TEXT column back into a JSON document.
func RawJSON(s sql.NullString) json.RawMessage {
	if !s.Valid {
		return nil
	}
	return json.RawMessage(s.String)
}

func isNullJSON(raw []byte) bool {
	return len(raw) == 0 || string(raw) == "null"
}
