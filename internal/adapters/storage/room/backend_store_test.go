package room

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"taskroom/internal/adapters/backend"
	"taskroom/internal/adapters/backend/backendtest"
	domain "taskroom/internal/domain/room"
)

func setupStore(t *testing.T) (*BackendStore, *backendtest.Server) {
	t.Helper()
	srv := backendtest.New(t)
	return NewBackendStore(srv.Client(t)), srv
}

func TestBackendStore_CreateAndFind(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	code, err := store.GenerateCode(ctx)
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	created, err := store.Create(ctx, domain.Room{Name: "Kitchen", CurrentCode: code, CreatedBy: "a1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" || created.CurrentCode != code || created.CreatedAt.IsZero() {
		t.Errorf("created = %+v", created)
	}

	id, err := store.FindIDByCode(ctx, code)
	if err != nil {
		t.Fatalf("FindIDByCode: %v", err)
	}
	if id != created.ID {
		t.Errorf("id = %q, want %q", id, created.ID)
	}
	if _, err := store.FindIDByCode(ctx, "BOGUS"); !errors.Is(err, ErrNotFound) {
		t.Errorf("bogus code: got %v, want ErrNotFound", err)
	}
}

func TestBackendStore_ListByOwnerNewestFirst(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()
	for _, name := range []string{"First", "Second"} {
		code, _ := store.GenerateCode(ctx)
		if _, err := store.Create(ctx, domain.Room{Name: name, CurrentCode: code, CreatedBy: "a1"}); err != nil {
			t.Fatal(err)
		}
	}
	code, _ := store.GenerateCode(ctx)
	if _, err := store.Create(ctx, domain.Room{Name: "Other", CurrentCode: code, CreatedBy: "a2"}); err != nil {
		t.Fatal(err)
	}

	rooms, err := store.ListByOwner(ctx, "a1")
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(rooms) != 2 || rooms[0].Name != "Second" || rooms[1].Name != "First" {
		t.Errorf("rooms = %+v", rooms)
	}
	if n, err := store.CountByOwner(ctx, "a1"); err != nil || n != 2 {
		t.Errorf("CountByOwner = %d, %v", n, err)
	}
}

func TestBackendStore_GenerateCodeFailure(t *testing.T) {
	store, srv := setupStore(t)
	srv.Fail(http.MethodPost, "/rest/v1/rpc/generate_room_code", http.StatusInternalServerError, "permission denied for function")

	_, err := store.GenerateCode(context.Background())
	if got := backend.Message(err, "Failed to create room"); got != "permission denied for function" {
		t.Errorf("Message = %q", got)
	}
}
