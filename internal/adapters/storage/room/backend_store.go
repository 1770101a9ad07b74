package room

import (
	"context"
	"errors"
	"strings"

	"taskroom/internal/adapters/backend"
	domain "taskroom/internal/domain/room"
)

const (
	table   = "rooms"
	codeRPC = "generate_room_code"
)

// BackendStore implements Store against the hosted rooms table.
type BackendStore struct {
	c *backend.Client
}

// NewBackendStore creates a room store using c's credentials.
func NewBackendStore(c *backend.Client) *BackendStore {
	return &BackendStore{c: c}
}

// GenerateCode calls the generate_room_code function.
func (s *BackendStore) GenerateCode(ctx context.Context) (string, error) {
	var code string
	if err := s.c.RPC(ctx, codeRPC, nil, &code); err != nil {
		return "", err
	}
	if strings.TrimSpace(code) == "" {
		return "", domain.ErrEmptyCode
	}
	return code, nil
}

// Create inserts a room and returns the stored row.
func (s *BackendStore) Create(ctx context.Context, r domain.Room) (domain.Room, error) {
	var created domain.Room
	row := map[string]any{"name": r.Name, "current_code": r.CurrentCode, "created_by": r.CreatedBy}
	if err := s.c.From(table).Insert(ctx, row, &created); err != nil {
		return domain.Room{}, err
	}
	return created, nil
}

// FindIDByCode resolves a join code to a room id.
func (s *BackendStore) FindIDByCode(ctx context.Context, code string) (string, error) {
	var row struct {
		ID string `json:"id"`
	}
	err := s.c.From(table).Select("id").Eq("current_code", code).Single(ctx, &row)
	if errors.Is(err, backend.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return row.ID, nil
}

// ListByOwner returns the rooms an admin created, newest first.
func (s *BackendStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.Room, error) {
	var out []domain.Room
	err := s.c.From(table).Select("*").Eq("created_by", ownerID).Order("created_at", false).List(ctx, &out)
	return out, err
}

// CountByOwner returns the number of rooms an admin created.
func (s *BackendStore) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	return s.c.From(table).Eq("created_by", ownerID).Count(ctx)
}
