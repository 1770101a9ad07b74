package profile

import (
	"context"
	"errors"
	"fmt"

	"taskroom/internal/adapters/backend"
	domain "taskroom/internal/domain/profile"
)

const table = "users_info"

// BackendStore implements Store against the hosted users_info table.
// Build one per request from the request's scoped client.
type BackendStore struct {
	c *backend.Client
}

// NewBackendStore creates a profile store using c's credentials.
func NewBackendStore(c *backend.Client) *BackendStore {
	return &BackendStore{c: c}
}

// GetByID retrieves the profile for an auth user.
func (s *BackendStore) GetByID(ctx context.Context, id string) (domain.Profile, error) {
	var p domain.Profile
	err := s.c.From(table).Select("*").Eq("id", id).Single(ctx, &p)
	if errors.Is(err, backend.ErrNotFound) {
		return domain.Profile{}, ErrNotFound
	}
	if err != nil {
		return domain.Profile{}, err
	}
	return p, nil
}

// Insert writes a new profile row. Admin rows carry room_id null.
func (s *BackendStore) Insert(ctx context.Context, p domain.Profile) error {
	row := map[string]any{
		"id":         p.ID,
		"username":   p.Username,
		"email":      p.Email,
		"approved":   p.Approved,
		"role_flags": p.RoleFlags,
		"room_id":    nil,
	}
	if p.RoomID != "" {
		row["room_id"] = p.RoomID
	}
	return s.c.From(table).Insert(ctx, row, nil)
}

// SetRoom links a profile to a room.
func (s *BackendStore) SetRoom(ctx context.Context, id, roomID string) error {
	n, err := s.c.From(table).Eq("id", id).Update(ctx, map[string]any{"room_id": roomID}, nil)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("set room for %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListAssignable returns approved users of a room.
func (s *BackendStore) ListAssignable(ctx context.Context, roomID string) ([]domain.Profile, error) {
	var out []domain.Profile
	err := s.c.From(table).
		Select("id,username,approved").
		Eq("room_id", roomID).
		EqBool("approved", true).
		Contains("role_flags", domain.RoleUser).
		List(ctx, &out)
	return out, err
}

// ListPending returns users of a room awaiting approval.
func (s *BackendStore) ListPending(ctx context.Context, roomID string) ([]domain.Profile, error) {
	var out []domain.Profile
	err := s.pending(roomID).Select("*").Order("username", true).List(ctx, &out)
	return out, err
}

// CountPending returns the number of users of a room awaiting approval.
func (s *BackendStore) CountPending(ctx context.Context, roomID string) (int, error) {
	return s.pending(roomID).Count(ctx)
}

func (s *BackendStore) pending(roomID string) *backend.Query {
	return s.c.From(table).
		Eq("room_id", roomID).
		EqBool("approved", false).
		Contains("role_flags", domain.RoleUser)
}

// Approve marks a user of roomID approved.
func (s *BackendStore) Approve(ctx context.Context, id, roomID string) (domain.Profile, error) {
	var rows []domain.Profile
	n, err := s.c.From(table).Eq("id", id).Eq("room_id", roomID).Update(ctx, map[string]any{"approved": true}, &rows)
	if err != nil {
		return domain.Profile{}, err
	}
	if n == 0 || len(rows) == 0 {
		return domain.Profile{}, ErrNotFound
	}
	return rows[0], nil
}
