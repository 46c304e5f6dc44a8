package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// openTestDB opens a fresh database in a temp directory.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "hearth.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	return db
}

// openMigratedDB opens a fresh database with the real schema applied.
func openMigratedDB(t *testing.T) *DB {
	t.Helper()

	useRealMigrations(t)
	db := openTestDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestOpen(t *testing.T) {
	t.Run("creates database file", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "hearth.db")

		db, err := Open(Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // test cleanup

		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != dbPath {
			t.Errorf("Path() = %v, want %v", db.Path(), dbPath)
		}
	})

	t.Run("creates missing directories", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "var", "lib", "hearth.db")

		db, err := Open(Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // test cleanup

		if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
			t.Error("database directory was not created")
		}
	})
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestClose(t *testing.T) {
	db := openTestDB(t)

	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	db.DB = nil
	if err := db.Close(); err != nil {
		t.Errorf("Close() on nil DB error = %v", err)
	}
}

func TestExecOnMigratedSchema(t *testing.T) {
	db := openMigratedDB(t)
	defer db.Close() //nolint:errcheck // test cleanup

	ctx := context.Background()
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := db.ExecContext(ctx, `
		INSERT INTO config_entries (id, domain, title, data, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		"e1", "powermeter", "Garage Meter", `{"host":"10.0.0.9"}`, "not_loaded", now, now,
	)
	if err != nil {
		t.Fatalf("inserting config entry: %v", err)
	}

	var domain string
	err = db.QueryRowContext(ctx,
		"SELECT domain FROM config_entries WHERE id = ?", "e1",
	).Scan(&domain)
	if err != nil {
		t.Fatalf("reading config entry back: %v", err)
	}
	if domain != "powermeter" {
		t.Errorf("domain = %q, want powermeter", domain)
	}
}

func TestBeginTxCommit(t *testing.T) {
	db := openMigratedDB(t)
	defer db.Close() //nolint:errcheck // test cleanup

	ctx := context.Background()
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx() error = %v", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO areas (id, name, slug, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		"area-1", "Living Room", "living-room", 0, now, now,
	)
	if err != nil {
		t.Fatalf("INSERT error = %v", err)
	}
	if err = tx.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	var count int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM areas WHERE slug = ?", "living-room").Scan(&count)
	if err != nil {
		t.Fatalf("SELECT error = %v", err)
	}
	if count != 1 {
		t.Errorf("committed rows = %d, want 1", count)
	}
}

func TestBeginTxRollback(t *testing.T) {
	db := openMigratedDB(t)
	defer db.Close() //nolint:errcheck // test cleanup

	ctx := context.Background()
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx() error = %v", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO areas (id, name, slug, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		"area-2", "Attic", "attic", 0, now, now,
	)
	if err != nil {
		t.Fatalf("INSERT error = %v", err)
	}
	if err = tx.Rollback(); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}

	var count int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM areas WHERE slug = ?", "attic").Scan(&count)
	if err != nil {
		t.Fatalf("SELECT error = %v", err)
	}
	if count != 0 {
		t.Errorf("rolled-back rows = %d, want 0", count)
	}
}

func TestStats(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // test cleanup

	stats := db.Stats()
	if stats.MaxOpenConnections != 1 {
		t.Errorf("MaxOpenConnections = %v, want 1 (single SQLite writer)", stats.MaxOpenConnections)
	}
}
