package task_test

import (
	"testing"
	"time"

	"taskroom/internal/domain/task"
)

// TestTask_Validate tests validation of Task.
func TestTask_Validate(t *testing.T) {
	valid := func() task.Task {
		return task.Task{
			RoomID:     "room-1",
			Title:      "Sweep the floor",
			AssignedTo: "user-1",
			CreatedBy:  "admin-1",
			Status:     task.StatusAssigned,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*task.Task)
		wantErr error
	}{
		{name: "valid task", mutate: func(*task.Task) {}},
		{name: "valid with due date", mutate: func(tk *task.Task) { tk.DueDate = "2025-03-01" }},
		{name: "valid with timestamp due date", mutate: func(tk *task.Task) { tk.DueDate = "2025-03-01T00:00:00+00:00" }},
		{name: "blank title", mutate: func(tk *task.Task) { tk.Title = "   " }, wantErr: task.ErrEmptyTitle},
		{name: "no assignee", mutate: func(tk *task.Task) { tk.AssignedTo = "" }, wantErr: task.ErrNoAssignee},
		{name: "unknown status", mutate: func(tk *task.Task) { tk.Status = "done" }, wantErr: task.ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := valid()
			tt.mutate(&tk)
			err := tk.Validate()
			if err != tt.wantErr {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTask_ValidateRejectsBadDueDate(t *testing.T) {
	tk := task.Task{RoomID: "r", Title: "t", AssignedTo: "u", Status: task.StatusAssigned, DueDate: "next week"}
	if err := tk.Validate(); err != task.ErrBadDueDate {
		t.Errorf("Validate() = %v, want ErrBadDueDate", err)
	}
}

// TestCanTransition walks the full actor x from x to grid against the allowed edges.
func TestCanTransition(t *testing.T) {
	allowed := map[task.Actor]map[[2]string]bool{
		task.ActorUser: {
			{task.StatusAssigned, task.StatusInProgress}:  true,
			{task.StatusInProgress, task.StatusSubmitted}: true,
			{task.StatusRejected, task.StatusInProgress}:  true,
		},
		task.ActorAdmin: {
			{task.StatusSubmitted, task.StatusApproved}: true,
			{task.StatusSubmitted, task.StatusRejected}: true,
		},
	}

	for actor, edges := range allowed {
		for _, from := range task.ValidStatuses {
			for _, to := range task.ValidStatuses {
				want := edges[[2]string{from, to}]
				if got := task.CanTransition(from, to, actor); got != want {
					t.Errorf("CanTransition(%s, %s, %s) = %v, want %v", from, to, actor, got, want)
				}
			}
		}
	}
}

func TestTask_Transition(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	tk := task.Task{Status: task.StatusAssigned}
	if err := tk.Transition(task.StatusInProgress, task.ActorUser, now); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if tk.Status != task.StatusInProgress || !tk.UpdatedAt.Equal(now) {
		t.Errorf("got status %q updated %v", tk.Status, tk.UpdatedAt)
	}

	if err := tk.Transition(task.StatusApproved, task.ActorAdmin, now); err != task.ErrTransitionDenied {
		t.Errorf("admin approving in_progress: got %v, want ErrTransitionDenied", err)
	}
	if tk.Status != task.StatusInProgress {
		t.Errorf("status changed on denied transition: %q", tk.Status)
	}
}

func TestActionsFor(t *testing.T) {
	tests := []struct {
		status string
		actor  task.Actor
		labels []string
	}{
		{task.StatusAssigned, task.ActorUser, []string{"Start Working"}},
		{task.StatusInProgress, task.ActorUser, []string{"Submit for Review"}},
		{task.StatusSubmitted, task.ActorUser, nil},
		{task.StatusApproved, task.ActorUser, nil},
		{task.StatusRejected, task.ActorUser, []string{"Rework Task"}},
		{task.StatusAssigned, task.ActorAdmin, nil},
		{task.StatusSubmitted, task.ActorAdmin, []string{"Approve", "Reject"}},
		{task.StatusApproved, task.ActorAdmin, nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.actor)+"/"+tt.status, func(t *testing.T) {
			actions := task.ActionsFor(tt.status, tt.actor)
			if len(actions) != len(tt.labels) {
				t.Fatalf("got %d actions, want %d", len(actions), len(tt.labels))
			}
			for i, a := range actions {
				if a.Label != tt.labels[i] {
					t.Errorf("action %d label = %q, want %q", i, a.Label, tt.labels[i])
				}
				if !task.CanTransition(tt.status, a.Target, tt.actor) {
					t.Errorf("action %q targets disallowed status %q", a.Label, a.Target)
				}
			}
		})
	}
}

// TestActionsFor_UserBoardMix checks a board with assigned, submitted and approved
// tasks offers exactly one button, on the assigned task.
func TestActionsFor_UserBoardMix(t *testing.T) {
	var buttons []string
	for _, s := range []string{task.StatusAssigned, task.StatusSubmitted, task.StatusApproved} {
		for _, a := range task.ActionsFor(s, task.ActorUser) {
			buttons = append(buttons, s+":"+a.Label)
		}
	}
	if len(buttons) != 1 || buttons[0] != "assigned:Start Working" {
		t.Errorf("buttons = %v", buttons)
	}
}

func TestStatusClassAndLabel(t *testing.T) {
	tests := []struct {
		status, class, label string
	}{
		{task.StatusAssigned, "status-assigned", "assigned"},
		{task.StatusInProgress, "status-submitted", "in progress"},
		{task.StatusSubmitted, "status-submitted", "submitted"},
		{task.StatusApproved, "status-approved", "approved"},
		{task.StatusRejected, "status-rejected", "rejected"},
	}
	for _, tt := range tests {
		if got := task.StatusClass(tt.status); got != tt.class {
			t.Errorf("StatusClass(%q) = %q, want %q", tt.status, got, tt.class)
		}
		if got := task.StatusLabel(tt.status); got != tt.label {
			t.Errorf("StatusLabel(%q) = %q, want %q", tt.status, got, tt.label)
		}
	}
}
