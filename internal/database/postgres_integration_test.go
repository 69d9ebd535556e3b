package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"
)

// getPostgresTestConfig returns PostgreSQL config if available, nil otherwise.
// Set these environment variables to run PostgreSQL tests:
//
//	GQ_TEST_POSTGRES=1
//	GQ_TEST_POSTGRES_HOST (default: localhost)
//	GQ_TEST_POSTGRES_PORT (default: 5435)
//	GQ_TEST_POSTGRES_USER (default: gridquest)
//	GQ_TEST_POSTGRES_PASSWORD (default: gridquest)
//	GQ_TEST_POSTGRES_DATABASE (default: gridquest_test)
func getPostgresTestConfig() *Config {
	if os.Getenv("GQ_TEST_POSTGRES") == "" {
		return nil
	}

	env := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}

	port := 5435
	if portStr := os.Getenv("GQ_TEST_POSTGRES_PORT"); portStr != "" {
		fmt.Sscanf(portStr, "%d", &port)
	}

	return &Config{
		Driver: string(DialectPostgres),
		Postgres: PostgresConfig{
			Host:            env("GQ_TEST_POSTGRES_HOST", "localhost"),
			Port:            port,
			User:            env("GQ_TEST_POSTGRES_USER", "gridquest"),
			Password:        env("GQ_TEST_POSTGRES_PASSWORD", "gridquest"),
			Database:        env("GQ_TEST_POSTGRES_DATABASE", "gridquest_test"),
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Minute,
		},
	}
}

var testTables = []string{"game_result_players", "game_results", "games"}

// setupPostgresTestDB opens PostgreSQL or skips, and clears test data.
func setupPostgresTestDB(t *testing.T) *Database {
	cfg := getPostgresTestConfig()
	if cfg == nil {
		t.Skip("Skipping PostgreSQL test: GQ_TEST_POSTGRES not set")
	}
	db, err := OpenWithConfig(*cfg)
	if err != nil {
		t.Fatalf("Failed to open PostgreSQL database: %v", err)
	}

	clean := func() {
		for _, table := range testTables {
			if _, err := db.db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
				t.Logf("Note: Could not clean table %s: %v", table, err)
			}
		}
	}
	clean()
	t.Cleanup(func() {
		clean()
		db.Close()
	})
	return db
}

func TestPostgres_GamesRoundTrip(t *testing.T) {
	db := setupPostgresTestDB(t)
	ctx := context.Background()

	if _, ok := db.Dialect().(PostgresDialect); !ok {
		t.Fatalf("dialect = %T", db.Dialect())
	}
	if err := db.SaveGame(ctx, testGame(t, "arena")); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}
	got, err := db.GetGame(ctx, "arena")
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if got.Grid.Rows() != 3 {
		t.Errorf("rows = %d", got.Grid.Rows())
	}
	if _, err := db.GetGame(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}
}

func TestPostgres_ConcurrentResults(t *testing.T) {
	db := setupPostgresTestDB(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := db.RecordResult(ctx, testResult("arena", fmt.Sprintf("w%d", i%3), time.Now())); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("RecordResult: %v", err)
	}

	results, err := db.RecentResults(ctx, "arena", 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 20 {
		t.Errorf("results = %d, want 20", len(results))
	}
}
