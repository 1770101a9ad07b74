package projections

import (
	"context"
	"log/slog"

	"taskroom/internal/domain/profile"
	"taskroom/internal/domain/task"
)

// TaskCard is one task as a board renders it.
type TaskCard struct {
	task.Task
	StatusClass string
	StatusLabel string
	Assignee    string
	Actions     []task.Action
}

func newCard(t task.Task, actor task.Actor) TaskCard {
	assignee := t.AssigneeName
	if assignee == "" {
		assignee = "Unassigned"
	}
	return TaskCard{
		Task:        t,
		StatusClass: task.StatusClass(t.Status),
		StatusLabel: task.StatusLabel(t.Status),
		Assignee:    assignee,
		Actions:     task.ActionsFor(t.Status, actor),
	}
}

// GetAdminTaskBoardQuery carries input for the admin task board projection.
type GetAdminTaskBoardQuery struct {
	Admin profile.Profile
}

// GetAdminTaskBoardDeps holds dependencies for the admin task board projection.
type GetAdminTaskBoardDeps struct {
	ProfileStore ProfileStore
	TaskStore    TaskStore
}

// AdminTaskBoardResult carries the output of the admin task board projection.
type AdminTaskBoardResult struct {
	HasRoom   bool
	Assignees []profile.Profile
	Tasks     []TaskCard
}

// QueryGetAdminTaskBoard loads the assignee picker and the room's tasks.
// PRE: query.Admin is an admin profile
// POST: Without a room both lists are empty and HasRoom is false; failed reads are logged and empty
func QueryGetAdminTaskBoard(ctx context.Context, query GetAdminTaskBoardQuery, deps GetAdminTaskBoardDeps) AdminTaskBoardResult {
	if !query.Admin.HasRoom() {
		return AdminTaskBoardResult{}
	}
	res := AdminTaskBoardResult{HasRoom: true}
	roomID := query.Admin.RoomID

	users, err := deps.ProfileStore.ListAssignable(ctx, roomID)
	if err != nil {
		slog.Warn("projection_failed", "projection", "admin_task_board", "part", "assignees", "room_id", roomID, "error", err.Error())
	}
	res.Assignees = users

	tasks, err := deps.TaskStore.ListByRoom(ctx, roomID)
	if err != nil {
		slog.Warn("projection_failed", "projection", "admin_task_board", "part", "tasks", "room_id", roomID, "error", err.Error())
	}
	for _, t := range tasks {
		res.Tasks = append(res.Tasks, newCard(t, task.ActorAdmin))
	}
	return res
}

// GetUserTaskBoardQuery carries input for the user task board projection.
type GetUserTaskBoardQuery struct {
	UserID string
}

// GetUserTaskBoardDeps holds dependencies for the user task board projection.
type GetUserTaskBoardDeps struct {
	TaskStore TaskStore
}

// QueryGetUserTaskBoard loads the tasks assigned to a user, newest first.
// A failed read is logged and shown as an empty board.
func QueryGetUserTaskBoard(ctx context.Context, query GetUserTaskBoardQuery, deps GetUserTaskBoardDeps) []TaskCard {
	tasks, err := deps.TaskStore.ListByAssignee(ctx, query.UserID)
	if err != nil {
		slog.Warn("projection_failed", "projection", "user_task_board", "user_id", query.UserID, "error", err.Error())
		return nil
	}
	cards := make([]TaskCard, 0, len(tasks))
	for _, t := range tasks {
		cards = append(cards, newCard(t, task.ActorUser))
	}
	return cards
}
