package outbox

import (
	"context"
	"time"

	domain "taskroom/internal/domain/outbox"
)

// Store defines the interface for outbox entry persistence.
type Store interface {
	// Save persists an outbox entry (insert or update).
	// PRE: entry has been validated
	Save(ctx context.Context, e domain.Entry) error

	// ListDue returns pending or retrying entries whose next attempt is at or before now.
	// PRE: limit > 0
	// POST: Returns up to limit entries, earliest due first; entries still in backoff are never returned
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Entry, error)

	// CountByStatus returns the number of entries in each status.
	CountByStatus(ctx context.Context) (map[string]int, error)
}
