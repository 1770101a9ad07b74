package web

import (
	"net/http"

	"taskroom/internal/adapters/http/middleware"
	taskStore "taskroom/internal/adapters/storage/task"
	"taskroom/internal/application/projections"
	"taskroom/internal/domain/task"
)

func (s *Server) handleUserDashboard(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.ProfileFromContext(r.Context())
	cards := projections.QueryGetUserTaskBoard(r.Context(), projections.GetUserTaskBoardQuery{UserID: p.ID}, projections.GetUserTaskBoardDeps{
		TaskStore: taskStore.NewBackendStore(middleware.ClientFromContext(r.Context())),
	})
	s.render(w, r, "user_dashboard.html", "My Tasks", cards)
}

func (s *Server) handleUserTaskStatus(w http.ResponseWriter, r *http.Request) {
	s.changeStatus(w, r, task.ActorUser, "/user/dashboard")
}
