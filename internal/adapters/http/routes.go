package web

import (
	"net/http"

	"taskroom/internal/adapters/http/middleware"
	"taskroom/internal/domain/profile"
)

// registerRoutes maps every page and form action.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	admin := s.guard.RequireProfile(middleware.Rule{Role: profile.RoleAdmin})
	user := s.guard.RequireProfile(middleware.Rule{Approved: true})
	anyProfile := s.guard.RequireProfile(middleware.Rule{})

	mux.Handle("GET /{$}", anyProfile(http.HandlerFunc(s.handleHome)))
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /signup", s.handleSignupPage)
	mux.HandleFunc("POST /signup", s.handleSignup)
	mux.HandleFunc("POST /logout", s.handleLogout)

	mux.Handle("GET /admin/dashboard", admin(http.HandlerFunc(s.handleAdminDashboard)))
	mux.Handle("GET /admin/rooms", admin(http.HandlerFunc(s.handleRooms)))
	mux.Handle("POST /admin/rooms", admin(http.HandlerFunc(s.handleCreateRoom)))
	mux.Handle("GET /admin/tasks", admin(http.HandlerFunc(s.handleAdminTasks)))
	mux.Handle("POST /admin/tasks", admin(http.HandlerFunc(s.handleCreateTask)))
	mux.Handle("POST /admin/tasks/{id}/status", admin(http.HandlerFunc(s.handleAdminTaskStatus)))
	mux.Handle("GET /admin/users", admin(http.HandlerFunc(s.handlePendingUsers)))
	mux.Handle("POST /admin/users/approve", admin(http.HandlerFunc(s.handleApproveUser)))

	mux.Handle("GET /user/dashboard", user(http.HandlerFunc(s.handleUserDashboard)))
	mux.Handle("POST /user/tasks/{id}/status", user(http.HandlerFunc(s.handleUserTaskStatus)))
}
