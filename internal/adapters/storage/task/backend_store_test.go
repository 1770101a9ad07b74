package task

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"taskroom/internal/adapters/backend/backendtest"
	domain "taskroom/internal/domain/task"
)

func setupStore(t *testing.T) (*BackendStore, *backendtest.Server) {
	t.Helper()
	srv := backendtest.New(t)
	srv.Seed(backendtest.TableProfiles, backendtest.Row{"id": "u1", "username": "bob", "email": "b@x", "approved": true, "role_flags": []string{"user"}, "room_id": "r1"})
	return NewBackendStore(srv.Client(t)), srv
}

func newTask(title string) domain.Task {
	return domain.Task{RoomID: "r1", Title: title, AssignedTo: "u1", CreatedBy: "a1", Status: domain.StatusAssigned}
}

func TestBackendStore_CreateNullsOptionalFields(t *testing.T) {
	store, srv := setupStore(t)
	created, err := store.Create(context.Background(), newTask("Sweep"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" || created.Status != domain.StatusAssigned {
		t.Errorf("created = %+v", created)
	}
	row, _ := srv.Row(backendtest.TableTasks, created.ID)
	if row["description"] != nil || row["due_date"] != nil {
		t.Errorf("optional fields not null: %v", row)
	}
}

func TestBackendStore_ListByRoomEmbedsAssignee(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()
	withDue := newTask("Mop")
	withDue.DueDate = "2025-03-10"
	withDue.Description = "**all** floors"
	for _, tk := range []domain.Task{newTask("Sweep"), withDue} {
		if _, err := store.Create(ctx, tk); err != nil {
			t.Fatal(err)
		}
	}

	tasks, err := store.ListByRoom(ctx, "r1")
	if err != nil {
		t.Fatalf("ListByRoom: %v", err)
	}
	if len(tasks) != 2 || tasks[0].Title != "Mop" {
		t.Fatalf("tasks = %+v, want Mop first", tasks)
	}
	if tasks[0].AssigneeName != "bob" || tasks[0].DueDate != "2025-03-10" || tasks[0].Description != "**all** floors" {
		t.Errorf("task = %+v", tasks[0])
	}

	mine, err := store.ListByAssignee(ctx, "u1")
	if err != nil || len(mine) != 2 {
		t.Errorf("ListByAssignee = %d, %v", len(mine), err)
	}
}

func TestBackendStore_UpdateStatusIsConditional(t *testing.T) {
	store, srv := setupStore(t)
	ctx := context.Background()
	created, err := store.Create(ctx, newTask("Sweep"))
	if err != nil {
		t.Fatal(err)
	}
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := store.UpdateStatus(ctx, created.ID, domain.StatusAssigned, domain.StatusInProgress, at); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	err = store.UpdateStatus(ctx, created.ID, domain.StatusAssigned, domain.StatusInProgress, at)
	if !errors.Is(err, domain.ErrStatusChanged) {
		t.Errorf("stale update: got %v, want ErrStatusChanged", err)
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusInProgress || !got.UpdatedAt.Equal(at) {
		t.Errorf("got %+v", got)
	}

	var patch backendtest.RecordedRequest
	for _, r := range srv.Requests() {
		if r.Method == "PATCH" {
			patch = r
		}
	}
	if !strings.Contains(patch.Query, "status=eq.assigned") {
		t.Errorf("PATCH not conditional on status: %q", patch.Query)
	}

	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: got %v, want ErrNotFound", err)
	}
}
