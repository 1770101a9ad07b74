package profile_test

import (
	"strings"
	"testing"

	"taskroom/internal/domain/profile"
)

// TestProfile_Validate tests validation of Profile.
func TestProfile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		profile profile.Profile
		wantErr error
	}{
		{
			name:    "valid admin",
			profile: profile.NewAdmin("a1", "alice", "alice@example.com"),
		},
		{
			name:    "valid user",
			profile: profile.NewUser("u1", "bob", "bob@example.com", "room-1"),
		},
		{
			name:    "empty username",
			profile: profile.NewAdmin("a1", " ", "alice@example.com"),
			wantErr: profile.ErrEmptyUsername,
		},
		{
			name:    "email without at sign",
			profile: profile.NewAdmin("a1", "alice", "alice.example.com"),
			wantErr: profile.ErrInvalidEmail,
		},
		{
			name:    "user without room",
			profile: profile.NewUser("u1", "bob", "bob@example.com", ""),
			wantErr: profile.ErrMissingRoom,
		},
		{
			name:    "unknown role",
			profile: profile.Profile{ID: "x", Username: "x", Email: "x@y", RoleFlags: []string{"owner"}},
			wantErr: profile.ErrInvalidRole,
		},
		{
			name:    "no roles",
			profile: profile.Profile{ID: "x", Username: "x", Email: "x@y"},
			wantErr: profile.ErrInvalidRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if err != tt.wantErr {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestProfile_ValidateLengths(t *testing.T) {
	p := profile.NewAdmin("a1", strings.Repeat("n", profile.MaxUsernameLength+1), "a@b.c")
	if err := p.Validate(); err != profile.ErrUsernameTooLong {
		t.Errorf("long username: got %v", err)
	}
	p = profile.NewAdmin("a1", "alice", strings.Repeat("e", profile.MaxEmailLength)+"@b.c")
	if err := p.Validate(); err != profile.ErrEmailTooLong {
		t.Errorf("long email: got %v", err)
	}
}

func TestValidateIdentity(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
		want     error
	}{
		{"valid", "alice", "alice@example.com", nil},
		{"blank username", "  ", "alice@example.com", profile.ErrEmptyUsername},
		{"long username", strings.Repeat("n", profile.MaxUsernameLength+1), "a@b.c", profile.ErrUsernameTooLong},
		{"username at limit", strings.Repeat("n", profile.MaxUsernameLength), "a@b.c", nil},
		{"no at sign", "alice", "alice.example.com", profile.ErrInvalidEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := profile.ValidateIdentity(tt.username, tt.email); err != tt.want {
				t.Errorf("ValidateIdentity() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewAdminAndNewUser(t *testing.T) {
	a := profile.NewAdmin("a1", "alice", "alice@example.com")
	if !a.Approved || !a.IsAdmin() || a.HasRoom() {
		t.Errorf("admin profile = %+v", a)
	}
	if a.DashboardPath() != "/admin/dashboard" {
		t.Errorf("admin dashboard = %q", a.DashboardPath())
	}

	u := profile.NewUser("u1", "bob", "bob@example.com", "room-1")
	if u.Approved || u.IsAdmin() || !u.HasRole(profile.RoleUser) || u.RoomID != "room-1" {
		t.Errorf("user profile = %+v", u)
	}
	if u.DashboardPath() != "/user/dashboard" {
		t.Errorf("user dashboard = %q", u.DashboardPath())
	}
}

func TestIsValidRole(t *testing.T) {
	for role, want := range map[string]bool{"admin": true, "user": true, "": false, "Admin": false} {
		if got := profile.IsValidRole(role); got != want {
			t.Errorf("IsValidRole(%q) = %v, want %v", role, got, want)
		}
	}
}
