package session

import (
	"context"
	"time"

	domain "taskroom/internal/domain/session"
)

// Store defines the interface for server-side session persistence.
type Store interface {
	// Save inserts or replaces a session.
	// PRE: s has been validated
	// POST: A later Get(s.ID) returns s
	Save(ctx context.Context, s domain.Session) error

	// Get retrieves a live session by id.
	// PRE: id is non-empty
	// POST: Returns domain.ErrNotFound for unknown ids and domain.ErrExpired for ended sessions
	Get(ctx context.Context, id string) (domain.Session, error)

	// Delete removes a session. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes every session that ended before now.
	// POST: Returns the number of sessions removed
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
