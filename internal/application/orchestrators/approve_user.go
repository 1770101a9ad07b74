package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	profileStore "taskroom/internal/adapters/storage/profile"
	"taskroom/internal/domain/outbox"
	"taskroom/internal/domain/profile"
)

// ProfileApprover approves users of a room.
type ProfileApprover interface {
	Approve(ctx context.Context, id, roomID string) (profile.Profile, error)
}

// ApproveUserInput carries input for the orchestrator.
type ApproveUserInput struct {
	UserID string
	Admin  profile.Profile
}

// ApproveUserDeps holds dependencies for ApproveUser.
type ApproveUserDeps struct {
	Profiles   ProfileApprover
	Outbox     OutboxWriter
	GenerateID func() string
	Now        func() time.Time
}

// ExecuteApproveUser approves a pending user of the admin's room and queues
// the approval email.
// PRE: input.Admin is an admin profile
// POST: The user is approved. A failure to queue the email is logged only.
// INVARIANT: only users whose room_id equals the admin's room are touched
func ExecuteApproveUser(ctx context.Context, input ApproveUserInput, deps ApproveUserDeps) (profile.Profile, error) {
	if input.UserID == "" || !input.Admin.HasRoom() {
		return profile.Profile{}, ErrProfileNotFound
	}

	p, err := deps.Profiles.Approve(ctx, input.UserID, input.Admin.RoomID)
	if errors.Is(err, profileStore.ErrNotFound) {
		return profile.Profile{}, ErrProfileNotFound
	}
	if err != nil {
		return profile.Profile{}, userError(err, "Failed to approve user")
	}
	slog.Info("auth_event", "event", "user_approved", "user_id", p.ID, "room_id", input.Admin.RoomID, "by", input.Admin.ID)

	if p.Email == "" || deps.Outbox == nil {
		return p, nil
	}
	entry, err := outbox.NewEntry(newID(deps.GenerateID), outbox.ActionTypeApprovalEmail, outbox.ApprovalEmail{
		To:       p.Email,
		Username: p.Username,
	}, clock(deps.Now))
	if err == nil {
		err = deps.Outbox.Save(ctx, entry)
	}
	if err != nil {
		slog.Error("outbox_enqueue_failed", "action_type", outbox.ActionTypeApprovalEmail, "user_id", p.ID, "error", err.Error())
	}
	return p, nil
}
