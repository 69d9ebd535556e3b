// Package database persists game definitions and finished game results in
// SQLite or PostgreSQL.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("database: not found")

// Database wraps the connection pool and its dialect.
type Database struct {
	db      *sql.DB
	dialect Dialect
}

// Open opens or creates the SQLite database at the given path.
func Open(path string) (*Database, error) {
	return OpenWithConfig(DefaultConfig(path))
}

// OpenWithConfig opens the database described by cfg and runs migrations.
func OpenWithConfig(cfg Config) (*Database, error) {
	dialect := NewDialect(DialectType(cfg.Driver))

	var dsn string
	switch dialect.(type) {
	case PostgresDialect:
		dsn = cfg.Postgres.DSN()
	default:
		dir := filepath.Dir(cfg.SQLitePath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = cfg.SQLitePath
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, ok := dialect.(PostgresDialect); ok {
		if cfg.Postgres.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		}
		if cfg.Postgres.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		}
		if cfg.Postgres.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
		}
	} else {
		// PRAGMAs are per connection; keep one so they stick.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", dialect.DriverName(), err)
	}

	for _, stmt := range dialect.InitStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init %q: %w", stmt, err)
		}
	}

	d := &Database{db: db, dialect: dialect}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return d, nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Dialect returns the SQL dialect in use.
func (d *Database) Dialect() Dialect {
	return d.dialect
}

// migrate creates the schema if it doesn't exist. The DDL sticks to types
// both engines accept.
func (d *Database) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS games (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			mode TEXT NOT NULL DEFAULT 'classic',
			grid_rows INTEGER NOT NULL,
			grid_cols INTEGER NOT NULL,
			grid TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS game_results (
			id TEXT PRIMARY KEY,
			session_code INTEGER NOT NULL,
			game_id TEXT NOT NULL,
			mode TEXT NOT NULL,
			winner_id TEXT NOT NULL,
			winner_name TEXT NOT NULL,
			turns INTEGER NOT NULL DEFAULT 0,
			doors INTEGER NOT NULL DEFAULT 0,
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS game_result_players (
			result_id TEXT NOT NULL REFERENCES game_results(id) ON DELETE CASCADE,
			player_id TEXT NOT NULL,
			name TEXT NOT NULL,
			avatar TEXT NOT NULL,
			has_left BOOLEAN NOT NULL DEFAULT FALSE,
			combats INTEGER NOT NULL DEFAULT 0,
			wins INTEGER NOT NULL DEFAULT 0,
			losses INTEGER NOT NULL DEFAULT 0,
			evasions INTEGER NOT NULL DEFAULT 0,
			life_lost INTEGER NOT NULL DEFAULT 0,
			life_dealt INTEGER NOT NULL DEFAULT 0,
			items_picked INTEGER NOT NULL DEFAULT 0,
			tiles_visited INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (result_id, player_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_game_results_game_id ON game_results(game_id)`,
		`CREATE INDEX IF NOT EXISTS idx_game_results_ended_at ON game_results(ended_at)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

func (d *Database) exec(ctx context.Context, q queryer, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, rebind(d.dialect, query), args...)
}

func (d *Database) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return d.db.QueryRowContext(ctx, rebind(d.dialect, query), args...)
}

func (d *Database) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, rebind(d.dialect, query), args...)
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
