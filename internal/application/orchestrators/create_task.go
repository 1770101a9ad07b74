package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"taskroom/internal/domain/profile"
	"taskroom/internal/domain/task"
)

// ErrNoRoom is returned when an admin without a room tries to create a task.
// Handlers redirect without a toast.
var ErrNoRoom = errors.New("admin has no room")

// TaskCreator inserts tasks.
type TaskCreator interface {
	Create(ctx context.Context, t task.Task) (task.Task, error)
}

// CreateTaskInput carries the new task form.
type CreateTaskInput struct {
	Title       string
	Description string
	DueDate     string // YYYY-MM-DD or empty
	AssignedTo  string
	Admin       profile.Profile
}

// CreateTaskDeps holds dependencies for CreateTask.
type CreateTaskDeps struct {
	Tasks TaskCreator
}

// ExecuteCreateTask assigns a new task to a user of the admin's room.
// PRE: input.Admin is an admin profile
// POST: The task exists in status assigned
// INVARIANT: validation order is title, assignee, room
func ExecuteCreateTask(ctx context.Context, input CreateTaskInput, deps CreateTaskDeps) (task.Task, error) {
	t := task.Task{
		RoomID:      input.Admin.RoomID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		DueDate:     strings.TrimSpace(input.DueDate),
		AssignedTo:  strings.TrimSpace(input.AssignedTo),
		CreatedBy:   input.Admin.ID,
		Status:      task.StatusAssigned,
	}
	if t.Title == "" {
		return task.Task{}, task.ErrEmptyTitle
	}
	if t.AssignedTo == "" {
		return task.Task{}, task.ErrNoAssignee
	}
	if !input.Admin.HasRoom() {
		return task.Task{}, ErrNoRoom
	}
	if err := t.Validate(); err != nil {
		return task.Task{}, err
	}

	created, err := deps.Tasks.Create(ctx, t)
	if err != nil {
		slog.Warn("task_event", "event", "create_failed", "room_id", t.RoomID, "error", err.Error())
		return task.Task{}, userError(err, "Failed to create task")
	}

	slog.Info("task_event", "event", "task_created", "task_id", created.ID, "room_id", created.RoomID, "assigned_to", created.AssignedTo)
	return created, nil
}
