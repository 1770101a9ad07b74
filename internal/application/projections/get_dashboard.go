package projections

import (
	"context"
	"log/slog"

	"taskroom/internal/domain/profile"
)

// GetAdminDashboardQuery carries input for the admin dashboard projection.
type GetAdminDashboardQuery struct {
	Admin profile.Profile
}

// GetAdminDashboardDeps holds dependencies for the admin dashboard projection.
type GetAdminDashboardDeps struct {
	RoomStore    RoomStore
	ProfileStore ProfileStore // optional: nil skips the pending count
}

// AdminDashboardResult carries the output of the admin dashboard projection.
type AdminDashboardResult struct {
	Username     string
	HasRoom      bool
	RoomCount    int
	PendingCount int
}

// QueryGetAdminDashboard builds the admin landing page.
// PRE: query.Admin is an admin profile
// POST: Counts that could not be read are reported as zero
func QueryGetAdminDashboard(ctx context.Context, query GetAdminDashboardQuery, deps GetAdminDashboardDeps) AdminDashboardResult {
	res := AdminDashboardResult{
		Username: query.Admin.Username,
		HasRoom:  query.Admin.HasRoom(),
	}

	if n, err := deps.RoomStore.CountByOwner(ctx, query.Admin.ID); err != nil {
		slog.Warn("projection_failed", "projection", "admin_dashboard", "part", "room_count", "error", err.Error())
	} else {
		res.RoomCount = n
	}

	if res.HasRoom && deps.ProfileStore != nil {
		if n, err := deps.ProfileStore.CountPending(ctx, query.Admin.RoomID); err != nil {
			slog.Warn("projection_failed", "projection", "admin_dashboard", "part", "pending_count", "error", err.Error())
		} else {
			res.PendingCount = n
		}
	}
	return res
}
