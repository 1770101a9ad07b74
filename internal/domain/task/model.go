package task

import (
	"errors"
	"strings"
	"time"
)

// Max length constants for user-editable fields.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 5000
)

// Status constants
const (
	StatusAssigned   = "assigned"
	StatusInProgress = "in_progress"
	StatusSubmitted  = "submitted"
	StatusApproved   = "approved"
	StatusRejected   = "rejected"
)

// Actor identifies who is driving a status change.
type Actor string

const (
	ActorUser  Actor = "user"
	ActorAdmin Actor = "admin"
)

// ValidStatuses contains all valid status values.
var ValidStatuses = []string{StatusAssigned, StatusInProgress, StatusSubmitted, StatusApproved, StatusRejected}

// Domain errors
var (
	ErrEmptyTitle        = errors.New("Task title is required")
	ErrNoAssignee        = errors.New("Please select a user to assign")
	ErrInvalidStatus     = errors.New("invalid task status")
	ErrTransitionDenied  = errors.New("this status change is not allowed")
	ErrStatusChanged     = errors.New("This task was changed by someone else. Refresh and try again.")
	ErrTitleTooLong      = errors.New("task title cannot exceed 200 characters")
	ErrDescriptionTooBig = errors.New("task description cannot exceed 5000 characters")
	ErrNoRoom            = errors.New("task room must be set")
	ErrBadDueDate        = errors.New("Due date must be a valid date (YYYY-MM-DD)")
)

// transitions lists every permitted edge, keyed by actor then source status.
var transitions = map[Actor]map[string][]string{
	ActorUser: {
		StatusAssigned:   {StatusInProgress},
		StatusInProgress: {StatusSubmitted},
		StatusRejected:   {StatusInProgress},
	},
	ActorAdmin: {
		StatusSubmitted: {StatusApproved, StatusRejected},
	},
}

// Task is a unit of work assigned to one user inside a room.
type Task struct {
	ID           string    `json:"id,omitempty"`
	RoomID       string    `json:"room_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	DueDate      string    `json:"due_date,omitempty"`
	AssignedTo   string    `json:"assigned_to"`
	CreatedBy    string    `json:"created_by"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at,omitzero"`
	UpdatedAt    time.Time `json:"updated_at,omitzero"`
	AssigneeName string    `json:"-"`
}

// Validate checks the task before it is inserted.
// PRE: Task struct is populated
// POST: Returns nil if valid, error otherwise
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if len(t.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if len(t.Description) > MaxDescriptionLength {
		return ErrDescriptionTooBig
	}
	if t.AssignedTo == "" {
		return ErrNoAssignee
	}
	if t.RoomID == "" {
		return ErrNoRoom
	}
	if !IsValidStatus(t.Status) {
		return ErrInvalidStatus
	}
	if t.DueDate != "" {
		if _, err := time.Parse(time.DateOnly, dateOnly(t.DueDate)); err != nil {
			return ErrBadDueDate
		}
	}
	return nil
}

// Transition moves the task to the target status on behalf of actor.
// PRE: target is a valid status
// POST: Status and UpdatedAt are set, or an error is returned and the task is unchanged
func (t *Task) Transition(target string, actor Actor, now time.Time) error {
	if !CanTransition(t.Status, target, actor) {
		return ErrTransitionDenied
	}
	t.Status = target
	t.UpdatedAt = now
	return nil
}

// CanTransition reports whether actor may move a task from one status to another.
// INVARIANT: pure function of its arguments
func CanTransition(from, to string, actor Actor) bool {
	for _, next := range transitions[actor][from] {
		if next == to {
			return true
		}
	}
	return false
}

// Action is a status change offered on a task card.
type Action struct {
	Label  string
	Target string
	Style  string // "", "secondary" or "danger"
}

// ActionsFor returns the actions the given actor can take on a task in status.
// An empty slice means the card shows no buttons.
func ActionsFor(status string, actor Actor) []Action {
	switch actor {
	case ActorUser:
		switch status {
		case StatusAssigned:
			return []Action{{Label: "Start Working", Target: StatusInProgress}}
		case StatusInProgress:
			return []Action{{Label: "Submit for Review", Target: StatusSubmitted}}
		case StatusRejected:
			return []Action{{Label: "Rework Task", Target: StatusInProgress, Style: "secondary"}}
		}
	case ActorAdmin:
		if status == StatusSubmitted {
			return []Action{
				{Label: "Approve", Target: StatusApproved},
				{Label: "Reject", Target: StatusRejected, Style: "danger"},
			}
		}
	}
	return nil
}

// StatusClass maps a status to its pill CSS class.
func StatusClass(status string) string {
	switch status {
	case StatusAssigned:
		return "status-assigned"
	case StatusInProgress, StatusSubmitted:
		return "status-submitted"
	case StatusApproved:
		return "status-approved"
	case StatusRejected:
		return "status-rejected"
	}
	return ""
}

// StatusLabel renders a status for display ("in_progress" -> "in progress").
func StatusLabel(status string) string {
	return strings.Replace(status, "_", " ", 1)
}

// IsValidStatus reports whether status is one of the workflow states.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// dateOnly trims a timestamp down to its date part so both "2025-03-01"
// and "2025-03-01T00:00:00+00:00" parse.
func dateOnly(s string) string {
	if len(s) > len(time.DateOnly) {
		return s[:len(time.DateOnly)]
	}
	return s
}
