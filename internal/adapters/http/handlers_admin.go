package web

import (
	"errors"
	"net/http"

	"taskroom/internal/adapters/http/middleware"
	profileStore "taskroom/internal/adapters/storage/profile"
	roomStore "taskroom/internal/adapters/storage/room"
	taskStore "taskroom/internal/adapters/storage/task"
	"taskroom/internal/application/orchestrators"
	"taskroom/internal/application/projections"
	"taskroom/internal/domain/task"
)

// adminStores are the backend stores acting as the signed-in admin.
type adminStores struct {
	profiles *profileStore.BackendStore
	rooms    *roomStore.BackendStore
	tasks    *taskStore.BackendStore
}

func storesFor(r *http.Request) adminStores {
	c := middleware.ClientFromContext(r.Context())
	return adminStores{
		profiles: profileStore.NewBackendStore(c),
		rooms:    roomStore.NewBackendStore(c),
		tasks:    taskStore.NewBackendStore(c),
	}
}

func (s *Server) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	admin, _ := middleware.ProfileFromContext(r.Context())
	st := storesFor(r)
	res := projections.QueryGetAdminDashboard(r.Context(), projections.GetAdminDashboardQuery{Admin: admin}, projections.GetAdminDashboardDeps{
		RoomStore:    st.rooms,
		ProfileStore: st.profiles,
	})
	s.render(w, r, "admin_dashboard.html", "Admin Dashboard", res)
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	admin, _ := middleware.ProfileFromContext(r.Context())
	rooms := projections.QueryGetRoomList(r.Context(), projections.GetRoomListQuery{AdminID: admin.ID}, projections.GetRoomListDeps{
		RoomStore: storesFor(r).rooms,
	})
	s.render(w, r, "admin_rooms.html", "Rooms", rooms)
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	admin, _ := middleware.ProfileFromContext(r.Context())
	st := storesFor(r)
	_, err := orchestrators.ExecuteCreateRoom(r.Context(), orchestrators.CreateRoomInput{
		Name:  r.PostFormValue("name"),
		Admin: admin,
	}, orchestrators.CreateRoomDeps{Rooms: st.rooms, Profiles: st.profiles})
	if err != nil {
		s.redirect(w, r, "/admin/rooms", FlashError, orchestrators.Toast(err, "Failed to create room"))
		return
	}
	s.redirect(w, r, "/admin/rooms", FlashSuccess, "Room created successfully!")
}

func (s *Server) handleAdminTasks(w http.ResponseWriter, r *http.Request) {
	admin, _ := middleware.ProfileFromContext(r.Context())
	st := storesFor(r)
	res := projections.QueryGetAdminTaskBoard(r.Context(), projections.GetAdminTaskBoardQuery{Admin: admin}, projections.GetAdminTaskBoardDeps{
		ProfileStore: st.profiles,
		TaskStore:    st.tasks,
	})
	s.render(w, r, "admin_tasks.html", "Tasks", res)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	admin, _ := middleware.ProfileFromContext(r.Context())
	_, err := orchestrators.ExecuteCreateTask(r.Context(), orchestrators.CreateTaskInput{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		DueDate:     r.PostFormValue("due_date"),
		AssignedTo:  r.PostFormValue("assigned_to"),
		Admin:       admin,
	}, orchestrators.CreateTaskDeps{Tasks: storesFor(r).tasks})
	switch {
	case errors.Is(err, orchestrators.ErrNoRoom):
		http.Redirect(w, r, "/admin/tasks", http.StatusSeeOther)
	case err != nil:
		s.redirect(w, r, "/admin/tasks", FlashError, orchestrators.Toast(err, "Failed to create task"))
	default:
		s.redirect(w, r, "/admin/tasks", FlashSuccess, "Task created and assigned!")
	}
}

func (s *Server) handleAdminTaskStatus(w http.ResponseWriter, r *http.Request) {
	s.changeStatus(w, r, task.ActorAdmin, "/admin/tasks")
}

func (s *Server) handlePendingUsers(w http.ResponseWriter, r *http.Request) {
	admin, _ := middleware.ProfileFromContext(r.Context())
	res := projections.QueryGetPendingUsers(r.Context(), projections.GetPendingUsersQuery{Admin: admin}, projections.GetPendingUsersDeps{
		ProfileStore: storesFor(r).profiles,
	})
	s.render(w, r, "admin_users.html", "Pending Users", res)
}

func (s *Server) handleApproveUser(w http.ResponseWriter, r *http.Request) {
	admin, _ := middleware.ProfileFromContext(r.Context())
	p, err := orchestrators.ExecuteApproveUser(r.Context(), orchestrators.ApproveUserInput{
		UserID: r.PostFormValue("user_id"),
		Admin:  admin,
	}, orchestrators.ApproveUserDeps{
		Profiles:   storesFor(r).profiles,
		Outbox:     s.deps.Outbox,
		GenerateID: s.deps.GenerateID,
		Now:        s.deps.Now,
	})
	if err != nil {
		s.redirect(w, r, "/admin/users", FlashError, orchestrators.Toast(err, "Failed to approve user"))
		return
	}
	s.redirect(w, r, "/admin/users", FlashSuccess, p.Username+" approved!")
}

// changeStatus applies one status button press and returns to back.
func (s *Server) changeStatus(w http.ResponseWriter, r *http.Request, actor task.Actor, back string) {
	by, _ := middleware.ProfileFromContext(r.Context())
	target := r.PostFormValue("status")
	_, err := orchestrators.ExecuteChangeTaskStatus(r.Context(), orchestrators.ChangeTaskStatusInput{
		TaskID: r.PathValue("id"),
		Target: target,
		Actor:  actor,
		By:     by,
	}, orchestrators.ChangeTaskStatusDeps{
		Tasks: taskStore.NewBackendStore(middleware.ClientFromContext(r.Context())),
		Now:   s.deps.Now,
	})
	if err != nil {
		s.redirect(w, r, back, FlashError, orchestrators.Toast(err, "Failed to update task"))
		return
	}
	s.redirect(w, r, back, FlashSuccess, orchestrators.StatusToast(target, actor))
}
