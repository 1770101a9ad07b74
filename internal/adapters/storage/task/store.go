package task

import (
	"context"
	"errors"
	"time"

	domain "taskroom/internal/domain/task"
)

// ErrNotFound is returned when no task matches.
var ErrNotFound = errors.New("task not found")

// Store defines the interface for tasks persistence.
type Store interface {
	// Create inserts a task and returns the stored row.
	// PRE: t has been validated
	Create(ctx context.Context, t domain.Task) (domain.Task, error)

	// GetByID retrieves a task.
	// POST: Returns ErrNotFound when no row matches
	GetByID(ctx context.Context, id string) (domain.Task, error)

	// ListByRoom returns a room's tasks newest first, with AssigneeName filled.
	ListByRoom(ctx context.Context, roomID string) ([]domain.Task, error)

	// ListByAssignee returns a user's tasks newest first.
	ListByAssignee(ctx context.Context, userID string) ([]domain.Task, error)

	// UpdateStatus moves a task from one status to another.
	// POST: Returns domain.ErrStatusChanged when the task is no longer in status from
	UpdateStatus(ctx context.Context, id, from, to string, at time.Time) error
}
