package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"taskroom/internal/adapters/storage"
	domain "taskroom/internal/domain/outbox"
)

// dateLayout is fixed width so stored timestamps compare correctly as text.
const dateLayout = "2006-01-02T15:04:05.000000000Z07:00"

const selectColumns = `SELECT id, action_type, payload, status, attempts, max_attempts, last_attempted_at, next_attempt_at, created_at, external_id, error_message FROM outbox`

// SQLiteStore implements the outbox Store interface using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new outbox store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save persists an outbox entry.
// PRE: entry has been validated
// POST: Entry is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, e domain.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outbox (id, action_type, payload, status, attempts, max_attempts, last_attempted_at, next_attempt_at, created_at, external_id, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   status=excluded.status, attempts=excluded.attempts, max_attempts=excluded.max_attempts,
		   last_attempted_at=excluded.last_attempted_at, next_attempt_at=excluded.next_attempt_at,
		   external_id=excluded.external_id, error_message=excluded.error_message`,
		e.ID, e.ActionType, e.Payload, e.Status, e.Attempts, e.MaxAttempts,
		formatTime(e.LastAttemptedAt), formatTime(e.NextAttemptAt), e.CreatedAt.UTC().Format(dateLayout),
		e.ExternalID, e.ErrorMessage)
	if err != nil {
		return fmt.Errorf("save outbox entry %s: %w", e.ID, err)
	}
	return nil
}

// ListDue returns pending or retrying entries due at now, earliest first.
// Rows written before next_attempt_at existed carry '' and sort first.
func (s *SQLiteStore) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` WHERE status IN (?, ?) AND next_attempt_at <= ? ORDER BY next_attempt_at ASC, created_at ASC LIMIT ?`,
		domain.StatusPending, domain.StatusRetrying, now.UTC().Format(dateLayout), limit)
	if err != nil {
		return nil, fmt.Errorf("list due outbox entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// CountByStatus returns the number of entries in each status.
func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM outbox GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count outbox entries: %w", err)
	}
	defer rows.Close()
	counts := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// scanner is satisfied by *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (domain.Entry, error) {
	var e domain.Entry
	var createdAt, lastAttemptedAt, nextAttemptAt string
	err := row.Scan(&e.ID, &e.ActionType, &e.Payload, &e.Status, &e.Attempts, &e.MaxAttempts,
		&lastAttemptedAt, &nextAttemptAt, &createdAt, &e.ExternalID, &e.ErrorMessage)
	if err != nil {
		return domain.Entry{}, err
	}
	e.CreatedAt, _ = time.Parse(dateLayout, createdAt)
	e.LastAttemptedAt = parseTime(lastAttemptedAt)
	e.NextAttemptAt = parseTime(nextAttemptAt)
	return e, nil
}

// formatTime stores the zero time as ''.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(dateLayout, s)
	return t
}

func scanEntries(rows *sql.Rows) ([]domain.Entry, error) {
	var entries []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
