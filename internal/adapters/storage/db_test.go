package storage

import (
	"database/sql"
	"path/filepath"
	"sort"
	"testing"

	_ "modernc.org/sqlite"
)

// openTestDB creates an in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// getTableNames returns sorted table names from sqlite_master, excluding internal tables.
func getTableNames(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		t.Fatalf("failed to query sqlite_master: %v", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan table name: %v", err)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func TestInitDB_CreatesTables(t *testing.T) {
	db := openTestDB(t)
	if err := InitDB(db); err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	got := getTableNames(t, db)
	want := []string{"outbox", "session"}
	if len(got) != len(want) {
		t.Fatalf("tables = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tables = %v, want %v", got, want)
		}
	}
}

func TestInitDB_Idempotent(t *testing.T) {
	db := openTestDB(t)
	for i := 0; i < 2; i++ {
		if err := InitDB(db); err != nil {
			t.Fatalf("InitDB run %d: %v", i+1, err)
		}
	}
}

func TestInitDB_UpgradesOutbox(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Exec(`CREATE TABLE outbox (
		id TEXT PRIMARY KEY, action_type TEXT NOT NULL, payload TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending', attempts INTEGER NOT NULL DEFAULT 0,
		max_attempts INTEGER NOT NULL DEFAULT 5, last_attempted_at TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL, external_id TEXT NOT NULL DEFAULT '', error_message TEXT NOT NULL DEFAULT '')`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO outbox (id, action_type, payload, created_at) VALUES ('old', 'approval_email', '{}', '2025-03-01')`); err != nil {
		t.Fatal(err)
	}
	if err := InitDB(db); err != nil {
		t.Fatalf("InitDB: %v", err)
	}

	var next string
	if err := db.QueryRow(`SELECT next_attempt_at FROM outbox WHERE id = 'old'`).Scan(&next); err != nil {
		t.Fatalf("next_attempt_at not added: %v", err)
	}
	if next != "" {
		t.Errorf("next_attempt_at = %q, want empty", next)
	}
}

func TestOpen_FileUsesWAL(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "taskroom.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}
