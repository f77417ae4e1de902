package database

import (
	"context"
	"path/filepath"
	"testing"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Path:        filepath.Join(t.TempDir(), "journal.db"),
		WALMode:     true,
		BusyTimeout: 5,
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	cfg := testConfig(t)
	cfg.Path = filepath.Join(t.TempDir(), "nested", "dir", "journal.db")

	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if db.Path() != cfg.Path {
		t.Fatalf("expected path %q, got %q", cfg.Path, db.Path())
	}
}

func TestHealthCheck(t *testing.T) {
	db, err := Open(testConfig(t))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	if err := db.HealthCheck(context.Background()); err != nil {
		t.Fatalf("health check failed: %v", err)
	}
}

func TestCloseIsIdempotentOnNil(t *testing.T) {
	var db DB
	if err := db.Close(); err != nil {
		t.Fatalf("closing zero-value db: %v", err)
	}
}

func TestExecAndQuery(t *testing.T) {
	db, err := Open(testConfig(t))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)"); err != nil {
		t.Fatalf("creating table: %v", err)
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO t (v) VALUES (?)", "hello"); err != nil {
		t.Fatalf("inserting row: %v", err)
	}

	var v string
	if err := db.QueryRowContext(ctx, "SELECT v FROM t WHERE id = 1").Scan(&v); err != nil {
		t.Fatalf("querying row: %v", err)
	}
	if v != "hello" {
		t.Fatalf("expected %q, got %q", "hello", v)
	}
}
