package task

import (
	"context"
	"errors"
	"time"

	"taskroom/internal/adapters/backend"
	domain "taskroom/internal/domain/task"
)

const (
	table = "tasks"
	// withAssignee embeds the assignee's username through the assigned_to foreign key.
	withAssignee = "*,assigned_user:users_info!tasks_assigned_to_fkey(username)"
)

// row is the wire shape of a tasks row, including the optional embed.
type row struct {
	domain.Task
	AssignedUser *struct {
		Username string `json:"username"`
	} `json:"assigned_user,omitempty"`
}

func (r row) toDomain() domain.Task {
	t := r.Task
	if r.AssignedUser != nil {
		t.AssigneeName = r.AssignedUser.Username
	}
	return t
}

// BackendStore implements Store against the hosted tasks table.
type BackendStore struct {
	c *backend.Client
}

// NewBackendStore creates a task store using c's credentials.
func NewBackendStore(c *backend.Client) *BackendStore {
	return &BackendStore{c: c}
}

// Create inserts a task. Empty description and due date are sent as null.
func (s *BackendStore) Create(ctx context.Context, t domain.Task) (domain.Task, error) {
	body := map[string]any{
		"room_id":     t.RoomID,
		"title":       t.Title,
		"description": nil,
		"due_date":    nil,
		"assigned_to": t.AssignedTo,
		"created_by":  t.CreatedBy,
		"status":      t.Status,
	}
	if t.Description != "" {
		body["description"] = t.Description
	}
	if t.DueDate != "" {
		body["due_date"] = t.DueDate
	}
	var created row
	if err := s.c.From(table).Insert(ctx, body, &created); err != nil {
		return domain.Task{}, err
	}
	return created.toDomain(), nil
}

// GetByID retrieves a task.
func (s *BackendStore) GetByID(ctx context.Context, id string) (domain.Task, error) {
	var r row
	err := s.c.From(table).Select("*").Eq("id", id).Single(ctx, &r)
	if errors.Is(err, backend.ErrNotFound) {
		return domain.Task{}, ErrNotFound
	}
	if err != nil {
		return domain.Task{}, err
	}
	return r.toDomain(), nil
}

// ListByRoom returns a room's tasks newest first, with AssigneeName filled.
func (s *BackendStore) ListByRoom(ctx context.Context, roomID string) ([]domain.Task, error) {
	return s.list(ctx, s.c.From(table).Select(withAssignee).Eq("room_id", roomID))
}

// ListByAssignee returns a user's tasks newest first.
func (s *BackendStore) ListByAssignee(ctx context.Context, userID string) ([]domain.Task, error) {
	return s.list(ctx, s.c.From(table).Select("*").Eq("assigned_to", userID))
}

func (s *BackendStore) list(ctx context.Context, q *backend.Query) ([]domain.Task, error) {
	var rows []row
	if err := q.Order("created_at", false).List(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]domain.Task, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// UpdateStatus patches the status only while the row still holds from.
func (s *BackendStore) UpdateStatus(ctx context.Context, id, from, to string, at time.Time) error {
	patch := map[string]any{"status": to, "updated_at": at.UTC().Format(time.RFC3339)}
	n, err := s.c.From(table).Eq("id", id).Eq("status", from).Update(ctx, patch, nil)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrStatusChanged
	}
	return nil
}
