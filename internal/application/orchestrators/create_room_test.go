package orchestrators

import (
	"context"
	"errors"
	"testing"

	"taskroom/internal/adapters/backend"
	"taskroom/internal/domain/profile"
	"taskroom/internal/domain/room"
)

// TestExecuteCreateRoom_Valid creates a room and links the admin to it.
func TestExecuteCreateRoom_Valid(t *testing.T) {
	admin := profile.NewAdmin("admin-1", "ann", "ann@example.com")
	profiles := newMockProfiles(admin)
	rooms := &mockRooms{code: "RM0042"}

	r, err := ExecuteCreateRoom(context.Background(), CreateRoomInput{Name: "  Design  ", Admin: admin},
		CreateRoomDeps{Rooms: rooms, Profiles: profiles})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Name != "Design" || r.CurrentCode != "RM0042" || r.CreatedBy != "admin-1" {
		t.Errorf("unexpected room: %+v", r)
	}
	if got := profiles.profiles["admin-1"].RoomID; got != "room-new" {
		t.Errorf("expected admin linked to room-new, got %q", got)
	}
}

// TestExecuteCreateRoom_EmptyName rejects blank names before calling the backend.
func TestExecuteCreateRoom_EmptyName(t *testing.T) {
	rooms := &mockRooms{codeErr: errors.New("must not be called")}
	_, err := ExecuteCreateRoom(context.Background(), CreateRoomInput{Name: "   "},
		CreateRoomDeps{Rooms: rooms, Profiles: newMockProfiles()})
	if !errors.Is(err, room.ErrEmptyName) {
		t.Errorf("expected ErrEmptyName, got %v", err)
	}
	if got := Toast(err, "fallback"); got != "Room name is required" {
		t.Errorf("unexpected toast %q", got)
	}
}

// TestExecuteCreateRoom_BackendFailures checks backend text is surfaced with a fallback.
func TestExecuteCreateRoom_BackendFailures(t *testing.T) {
	admin := profile.NewAdmin("admin-1", "ann", "ann@example.com")

	tests := []struct {
		name  string
		rooms *mockRooms
		want  string
	}{
		{"rpc error with message", &mockRooms{codeErr: &backend.APIError{Status: 404, Message: "function not found"}}, "function not found"},
		{"rpc transport error", &mockRooms{codeErr: errors.New("dial tcp: refused")}, "Failed to create room"},
		{"insert error", &mockRooms{code: "RM0001", createErr: &backend.APIError{Status: 403, Message: "new row violates row-level security policy"}}, "new row violates row-level security policy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExecuteCreateRoom(context.Background(), CreateRoomInput{Name: "Design", Admin: admin},
				CreateRoomDeps{Rooms: tt.rooms, Profiles: newMockProfiles(admin)})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := Toast(err, "Failed to create room"); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

// TestExecuteCreateRoom_LinkFailureIgnored checks a failed profile link still reports success.
func TestExecuteCreateRoom_LinkFailureIgnored(t *testing.T) {
	admin := profile.NewAdmin("admin-1", "ann", "ann@example.com")
	profiles := newMockProfiles(admin)
	profiles.linkErr = errors.New("permission denied")
	rooms := &mockRooms{code: "RM0001"}

	r, err := ExecuteCreateRoom(context.Background(), CreateRoomInput{Name: "Design", Admin: admin},
		CreateRoomDeps{Rooms: rooms, Profiles: profiles})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID != "room-new" || len(rooms.created) != 1 {
		t.Errorf("expected the room to be created, got %+v", r)
	}
	if profiles.profiles["admin-1"].RoomID != "" {
		t.Error("expected admin to remain unlinked")
	}
}
