package projections

import (
	"context"
	"log/slog"

	"taskroom/internal/domain/profile"
)

// GetPendingUsersQuery carries input for the pending users projection.
type GetPendingUsersQuery struct {
	Admin profile.Profile
}

// GetPendingUsersDeps holds dependencies for the pending users projection.
type GetPendingUsersDeps struct {
	ProfileStore ProfileStore
}

// PendingUsersResult carries the output of the pending users projection.
type PendingUsersResult struct {
	HasRoom bool
	Users   []profile.Profile
}

// QueryGetPendingUsers lists users of the admin's room awaiting approval.
func QueryGetPendingUsers(ctx context.Context, query GetPendingUsersQuery, deps GetPendingUsersDeps) PendingUsersResult {
	if !query.Admin.HasRoom() {
		return PendingUsersResult{}
	}
	users, err := deps.ProfileStore.ListPending(ctx, query.Admin.RoomID)
	if err != nil {
		slog.Warn("projection_failed", "projection", "pending_users", "room_id", query.Admin.RoomID, "error", err.Error())
	}
	return PendingUsersResult{HasRoom: true, Users: users}
}
