package database

import (
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect hides the SQL differences between SQLite and PostgreSQL. Queries
// are written with ? placeholders and rebound per dialect.
type Dialect interface {
	// DriverName is the database/sql driver to open.
	DriverName() string

	// Placeholder returns the parameter marker for a 1-indexed position.
	Placeholder(position int) string

	// InitStatements run once per connection pool before migrations.
	InitStatements() []string

	// IsDuplicateKeyError reports a unique constraint violation.
	IsDuplicateKeyError(err error) bool
}

// DialectType identifies the database dialect.
type DialectType string

const (
	DialectSQLite   DialectType = "sqlite"
	DialectPostgres DialectType = "postgres"
)

// NewDialect returns the dialect for dialectType, SQLite when unknown.
func NewDialect(dialectType DialectType) Dialect {
	if dialectType == DialectPostgres {
		return PostgresDialect{}
	}
	return SQLiteDialect{}
}

// SQLiteDialect targets modernc.org/sqlite.
type SQLiteDialect struct{}

func (SQLiteDialect) DriverName() string { return "sqlite" }

func (SQLiteDialect) Placeholder(int) string { return "?" }

func (SQLiteDialect) InitStatements() []string {
	return []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
}

func (SQLiteDialect) IsDuplicateKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// PostgresDialect targets github.com/lib/pq.
type PostgresDialect struct{}

func (PostgresDialect) DriverName() string { return "postgres" }

func (PostgresDialect) Placeholder(position int) string {
	return fmt.Sprintf("$%d", position)
}

// InitStatements is empty: foreign keys are always enforced by PostgreSQL.
func (PostgresDialect) InitStatements() []string { return nil }

// IsDuplicateKeyError matches unique_violation (23505).
func (PostgresDialect) IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "23505")
}

// rebind rewrites ? placeholders for the dialect. Question marks inside
// single-quoted literals are left alone.
func rebind(d Dialect, query string) string {
	if _, ok := d.(SQLiteDialect); ok {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	position := 1
	quoted := false
	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case ch == '\'':
			quoted = !quoted
			b.WriteByte(ch)
		case ch == '?' && !quoted:
			b.WriteString(d.Placeholder(position))
			position++
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}
