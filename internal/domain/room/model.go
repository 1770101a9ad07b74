package room

import (
	"errors"
	"strings"
	"time"
)

// MaxNameLength bounds the room name.
const MaxNameLength = 100

// Domain errors
var (
	ErrEmptyName   = errors.New("Room name is required")
	ErrNameTooLong = errors.New("room name cannot exceed 100 characters")
	ErrEmptyCode   = errors.New("room code cannot be empty")
)

// Room is a named grouping owned by one admin and joined by users via its code.
type Room struct {
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name"`
	CurrentCode string    `json:"current_code"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
}

// Validate checks the room before it is inserted.
// PRE: Room struct is populated
// POST: Returns nil if valid, error otherwise
func (r *Room) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if len(r.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if strings.TrimSpace(r.CurrentCode) == "" {
		return ErrEmptyCode
	}
	if r.CreatedBy == "" {
		return errors.New("room owner must be set")
	}
	return nil
}
