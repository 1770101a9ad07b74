package projections

import (
	"context"
	"log/slog"

	"taskroom/internal/domain/room"
)

// GetRoomListQuery carries input for the room list projection.
type GetRoomListQuery struct {
	AdminID string
}

// GetRoomListDeps holds dependencies for the room list projection.
type GetRoomListDeps struct {
	RoomStore RoomStore
}

// QueryGetRoomList returns the rooms an admin created, newest first.
// A failed read is logged and shown as an empty list.
func QueryGetRoomList(ctx context.Context, query GetRoomListQuery, deps GetRoomListDeps) []room.Room {
	rooms, err := deps.RoomStore.ListByOwner(ctx, query.AdminID)
	if err != nil {
		slog.Warn("projection_failed", "projection", "room_list", "admin_id", query.AdminID, "error", err.Error())
		return nil
	}
	return rooms
}
