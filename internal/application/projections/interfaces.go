package projections

import (
	"context"

	domainProfile "taskroom/internal/domain/profile"
	domainRoom "taskroom/internal/domain/room"
	domainTask "taskroom/internal/domain/task"
)

// RoomStore interface for room queries.
type RoomStore interface {
	ListByOwner(ctx context.Context, ownerID string) ([]domainRoom.Room, error)
	CountByOwner(ctx context.Context, ownerID string) (int, error)
}

// ProfileStore interface for users_info queries.
type ProfileStore interface {
	ListAssignable(ctx context.Context, roomID string) ([]domainProfile.Profile, error)
	ListPending(ctx context.Context, roomID string) ([]domainProfile.Profile, error)
	CountPending(ctx context.Context, roomID string) (int, error)
}

// TaskStore interface for task queries.
type TaskStore interface {
	ListByRoom(ctx context.Context, roomID string) ([]domainTask.Task, error)
	ListByAssignee(ctx context.Context, userID string) ([]domainTask.Task, error)
}
