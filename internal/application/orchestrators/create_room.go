package orchestrators

import (
	"context"
	"log/slog"
	"strings"

	"taskroom/internal/domain/profile"
	"taskroom/internal/domain/room"
)

// RoomStoreForCreate defines the store interface needed by CreateRoom.
type RoomStoreForCreate interface {
	GenerateCode(ctx context.Context) (string, error)
	Create(ctx context.Context, r room.Room) (room.Room, error)
}

// ProfileRoomLinker links a profile to a room.
type ProfileRoomLinker interface {
	SetRoom(ctx context.Context, id, roomID string) error
}

// CreateRoomInput carries input for the orchestrator.
type CreateRoomInput struct {
	Name  string
	Admin profile.Profile
}

// CreateRoomDeps holds dependencies for CreateRoom.
type CreateRoomDeps struct {
	Rooms    RoomStoreForCreate
	Profiles ProfileRoomLinker
}

// ExecuteCreateRoom creates a room with a fresh join code and points the
// admin's profile at it.
// PRE: input.Admin is an admin profile
// POST: The room exists. The admin's room_id is updated when possible; a
// failed link is logged and not reported.
func ExecuteCreateRoom(ctx context.Context, input CreateRoomInput, deps CreateRoomDeps) (room.Room, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return room.Room{}, room.ErrEmptyName
	}

	code, err := deps.Rooms.GenerateCode(ctx)
	if err != nil {
		slog.Warn("room_event", "event", "code_generation_failed", "admin_id", input.Admin.ID, "error", err.Error())
		return room.Room{}, userError(err, "Failed to create room")
	}

	r := room.Room{Name: name, CurrentCode: code, CreatedBy: input.Admin.ID}
	if err := r.Validate(); err != nil {
		return room.Room{}, err
	}
	created, err := deps.Rooms.Create(ctx, r)
	if err != nil {
		slog.Warn("room_event", "event", "create_failed", "admin_id", input.Admin.ID, "error", err.Error())
		return room.Room{}, userError(err, "Failed to create room")
	}

	if err := deps.Profiles.SetRoom(ctx, input.Admin.ID, created.ID); err != nil {
		slog.Error("room_event", "event", "admin_room_link_failed", "admin_id", input.Admin.ID, "room_id", created.ID, "error", err.Error())
	}

	slog.Info("room_event", "event", "room_created", "room_id", created.ID, "admin_id", input.Admin.ID)
	return created, nil
}
