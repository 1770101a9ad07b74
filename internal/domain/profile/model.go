package profile

import (
	"errors"
	"strings"
)

// Max length constants for user-editable fields.
const (
	MaxUsernameLength = 50
	MaxEmailLength    = 254
)

// Role flag constants
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Domain errors
var (
	ErrEmptyUsername   = errors.New("username cannot be empty")
	ErrUsernameTooLong = errors.New("username cannot exceed 50 characters")
	ErrEmailTooLong    = errors.New("email cannot exceed 254 characters")
	ErrInvalidEmail    = errors.New("email must contain '@'")
	ErrInvalidRole   = errors.New("role must be one of: admin, user")
	ErrMissingRoom   = errors.New("user profiles must reference a room")
)

// Profile is the users_info row that accompanies an auth account.
// The hosted backend owns the row; this type mirrors its columns.
type Profile struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	Approved  bool     `json:"approved"`
	RoleFlags []string `json:"role_flags"`
	RoomID    string   `json:"room_id,omitempty"`
}

// NewAdmin builds the profile for an admin signup.
// Admins are approved on creation and never carry a room reference at signup.
// PRE: id is the auth user's id
// POST: Approved is true, RoleFlags is [admin], RoomID is empty
func NewAdmin(id, username, email string) Profile {
	return Profile{
		ID:        id,
		Username:  username,
		Email:     email,
		Approved:  true,
		RoleFlags: []string{RoleAdmin},
	}
}

// NewUser builds the profile for a user joining a room by code.
// PRE: roomID is the id of the room matching the join code
// POST: Approved is false, RoleFlags is [user], RoomID is set
func NewUser(id, username, email, roomID string) Profile {
	return Profile{
		ID:        id,
		Username:  username,
		Email:     email,
		Approved:  false,
		RoleFlags: []string{RoleUser},
		RoomID:    roomID,
	}
}

// Validate checks the profile before it is inserted.
// PRE: Profile struct is populated
// POST: Returns nil if valid, error otherwise
func (p *Profile) Validate() error {
	if err := ValidateIdentity(p.Username, p.Email); err != nil {
		return err
	}
	if len(p.RoleFlags) == 0 {
		return ErrInvalidRole
	}
	for _, r := range p.RoleFlags {
		if !IsValidRole(r) {
			return ErrInvalidRole
		}
	}
	if p.HasRole(RoleUser) && p.RoomID == "" {
		return ErrMissingRoom
	}
	return nil
}

// ValidateIdentity checks the username and email a profile will carry.
// Signup runs it before any account exists.
func ValidateIdentity(username, email string) error {
	if strings.TrimSpace(username) == "" {
		return ErrEmptyUsername
	}
	if len(username) > MaxUsernameLength {
		return ErrUsernameTooLong
	}
	if len(email) > MaxEmailLength {
		return ErrEmailTooLong
	}
	if !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	return nil
}

// HasRole reports whether the profile carries the given role tag.
// INVARIANT: Profile fields are not mutated
func (p *Profile) HasRole(role string) bool {
	for _, r := range p.RoleFlags {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the profile carries the admin role tag.
func (p *Profile) IsAdmin() bool {
	return p.HasRole(RoleAdmin)
}

// HasRoom reports whether the profile is linked to a room.
func (p *Profile) HasRoom() bool {
	return p.RoomID != ""
}

// DashboardPath returns the landing page for the profile's role.
func (p *Profile) DashboardPath() string {
	if p.IsAdmin() {
		return "/admin/dashboard"
	}
	return "/user/dashboard"
}

// IsValidRole reports whether role is a known role tag.
func IsValidRole(role string) bool {
	return role == RoleAdmin || role == RoleUser
}
