package profile

import (
	"context"
	"errors"

	domain "taskroom/internal/domain/profile"
)

// ErrNotFound is returned when no users_info row matches.
var ErrNotFound = errors.New("profile not found")

// Store defines the interface for users_info persistence.
type Store interface {
	// GetByID retrieves the profile for an auth user.
	// PRE: id is non-empty
	// POST: Returns the profile or ErrNotFound
	GetByID(ctx context.Context, id string) (domain.Profile, error)

	// Insert writes a new profile row.
	// PRE: p has been validated
	Insert(ctx context.Context, p domain.Profile) error

	// SetRoom links a profile to a room.
	// POST: Returns ErrNotFound when no row matched id
	SetRoom(ctx context.Context, id, roomID string) error

	// ListAssignable returns approved users of a room.
	ListAssignable(ctx context.Context, roomID string) ([]domain.Profile, error)

	// ListPending returns users of a room awaiting approval.
	ListPending(ctx context.Context, roomID string) ([]domain.Profile, error)

	// CountPending returns the number of users of a room awaiting approval.
	CountPending(ctx context.Context, roomID string) (int, error)

	// Approve marks a user of roomID approved.
	// POST: Returns the updated profile, or ErrNotFound when id is not in roomID
	Approve(ctx context.Context, id, roomID string) (domain.Profile, error)
}
