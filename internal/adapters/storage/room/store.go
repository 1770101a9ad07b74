package room

import (
	"context"
	"errors"

	domain "taskroom/internal/domain/room"
)

// ErrNotFound is returned when no room matches.
var ErrNotFound = errors.New("room not found")

// Store defines the interface for rooms persistence.
type Store interface {
	// GenerateCode asks the backend for a fresh join code.
	// POST: Returns a non-empty code
	GenerateCode(ctx context.Context) (string, error)

	// Create inserts a room and returns the stored row.
	// PRE: r has been validated
	Create(ctx context.Context, r domain.Room) (domain.Room, error)

	// FindIDByCode resolves a join code to a room id.
	// POST: Returns ErrNotFound when no room carries code
	FindIDByCode(ctx context.Context, code string) (string, error)

	// ListByOwner returns the rooms an admin created, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Room, error)

	// CountByOwner returns the number of rooms an admin created.
	CountByOwner(ctx context.Context, ownerID string) (int, error)
}
