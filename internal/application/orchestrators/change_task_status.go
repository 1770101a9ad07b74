package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	taskStore "taskroom/internal/adapters/storage/task"
	"taskroom/internal/domain/profile"
	"taskroom/internal/domain/task"
)

// TaskStoreForStatus defines the store interface needed by ChangeTaskStatus.
type TaskStoreForStatus interface {
	GetByID(ctx context.Context, id string) (task.Task, error)
	UpdateStatus(ctx context.Context, id, from, to string, at time.Time) error
}

// ChangeTaskStatusInput carries one status button press.
type ChangeTaskStatusInput struct {
	TaskID string
	Target string
	Actor  task.Actor
	By     profile.Profile
}

// ChangeTaskStatusDeps holds dependencies for ChangeTaskStatus.
type ChangeTaskStatusDeps struct {
	Tasks TaskStoreForStatus
	Now   func() time.Time
}

// ExecuteChangeTaskStatus moves a task along the workflow.
// PRE: input.By is the signed-in profile acting as input.Actor
// POST: The task is in input.Target, or nothing changed and an error is returned
// INVARIANT: the update only applies while the task is still in the status
// it was read in; otherwise task.ErrStatusChanged is returned
func ExecuteChangeTaskStatus(ctx context.Context, input ChangeTaskStatusInput, deps ChangeTaskStatusDeps) (task.Task, error) {
	if !task.IsValidStatus(input.Target) {
		return task.Task{}, task.ErrInvalidStatus
	}

	t, err := deps.Tasks.GetByID(ctx, input.TaskID)
	if errors.Is(err, taskStore.ErrNotFound) {
		return task.Task{}, ErrTaskNotFound
	}
	if err != nil {
		return task.Task{}, userError(err, "Failed to update task")
	}

	if !inScope(t, input.Actor, input.By) {
		slog.Warn("task_event", "event", "status_change_denied", "task_id", t.ID, "by", input.By.ID, "reason", "scope")
		return task.Task{}, ErrNotYourTask
	}

	from := t.Status
	if err := t.Transition(input.Target, input.Actor, clock(deps.Now)); err != nil {
		return task.Task{}, err
	}

	if err := deps.Tasks.UpdateStatus(ctx, t.ID, from, t.Status, t.UpdatedAt); err != nil {
		if errors.Is(err, task.ErrStatusChanged) {
			slog.Info("task_event", "event", "status_conflict", "task_id", t.ID, "from", from, "to", t.Status)
			return task.Task{}, task.ErrStatusChanged
		}
		return task.Task{}, userError(err, "Failed to update task")
	}

	slog.Info("task_event", "event", "status_changed", "task_id", t.ID, "from", from, "to", t.Status, "actor", string(input.Actor), "by", input.By.ID)
	return t, nil
}

// inScope reports whether by may act on t as actor: users on their own
// tasks, admins on tasks of their room.
func inScope(t task.Task, actor task.Actor, by profile.Profile) bool {
	switch actor {
	case task.ActorUser:
		return t.AssignedTo == by.ID
	case task.ActorAdmin:
		return by.IsAdmin() && by.HasRoom() && t.RoomID == by.RoomID
	}
	return false
}

// StatusToast is the success message for a status change.
func StatusToast(target string, actor task.Actor) string {
	if actor == task.ActorAdmin {
		switch target {
		case task.StatusApproved:
			return "Task approved!"
		case task.StatusRejected:
			return "Task rejected!"
		}
		return "Task updated!"
	}
	switch target {
	case task.StatusInProgress:
		return "Task marked as in progress!"
	case task.StatusSubmitted:
		return "Task submitted for review!"
	}
	return "Task updated!"
}
