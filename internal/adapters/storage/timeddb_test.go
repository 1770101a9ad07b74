package storage

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"taskroom/internal/observability"
)

func openTimedTestDB(t *testing.T) *TimedDB {
	t.Helper()
	db := openTestDB(t)
	if _, err := db.Exec("CREATE TABLE test (id TEXT PRIMARY KEY, val TEXT)"); err != nil {
		t.Fatal(err)
	}
	return NewTimedDB(db, observability.NewMetrics(), 0)
}

// TestTimedDB_RecordsEachStatement verifies every wrapped call lands in the histogram.
func TestTimedDB_RecordsEachStatement(t *testing.T) {
	tdb := openTimedTestDB(t)
	ctx := context.Background()

	if _, err := tdb.ExecContext(ctx, "INSERT INTO test (id, val) VALUES (?, ?)", "1", "hello"); err != nil {
		t.Fatalf("ExecContext: %v", err)
	}
	rows, err := tdb.QueryContext(ctx, "SELECT id, val FROM test")
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	rows.Close()
	var val string
	if err := tdb.QueryRowContext(ctx, "SELECT val FROM test WHERE id = ?", "1").Scan(&val); err != nil {
		t.Fatalf("QueryRowContext: %v", err)
	}
	if val != "hello" {
		t.Errorf("val = %q", val)
	}

	if n := testutil.CollectAndCount(tdb.metrics.DBQueryDuration); n != 3 {
		t.Errorf("histogram series = %d, want 3 (exec, query, query_row)", n)
	}
}

// TestTimedDB_SlowQuery verifies statements over the threshold are counted.
func TestTimedDB_SlowQuery(t *testing.T) {
	db := openTestDB(t)
	tdb := NewTimedDB(db, observability.NewMetrics(), time.Nanosecond)

	if _, err := tdb.ExecContext(context.Background(), "SELECT 1"); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(tdb.metrics.SlowQueriesTotal); got != 1 {
		t.Errorf("slow queries = %v, want 1", got)
	}
}

// TestTimedDB_NilMetrics verifies the wrapper works without metrics.
func TestTimedDB_NilMetrics(t *testing.T) {
	db := openTestDB(t)
	tdb := NewTimedDB(db, nil, 0)
	if _, err := tdb.ExecContext(context.Background(), "SELECT 1"); err != nil {
		t.Fatal(err)
	}
	if tdb.RawDB() != db {
		t.Error("RawDB returned a different handle")
	}
}
