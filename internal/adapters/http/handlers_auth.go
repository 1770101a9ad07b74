package web

import (
	"net/http"

	"taskroom/internal/adapters/backend"
	"taskroom/internal/adapters/http/middleware"
	profileStore "taskroom/internal/adapters/storage/profile"
	roomStore "taskroom/internal/adapters/storage/room"
	"taskroom/internal/application/orchestrators"
	"taskroom/internal/domain/profile"
)

// loginForm refills the login page after a failed attempt.
type loginForm struct {
	Email string
}

// signupForm refills the signup page after a failed attempt. The password
// is never echoed back.
type signupForm struct {
	Username string
	Email    string
	Role     string
	RoomCode string
}

// actingAs returns a backend client authorized with accessToken.
func (s *Server) actingAs(accessToken string) *backend.Client {
	return s.deps.Backend.WithAccessToken(accessToken)
}

// handleHome sends a signed-in visitor to their dashboard.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.ProfileFromContext(r.Context())
	http.Redirect(w, r, p.DashboardPath(), http.StatusSeeOther)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login.html", "Login", loginForm{})
}

// handleLogin signs in and opens a local session.
// Failures answer in place with the error toast; no session is created.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	input := orchestrators.LoginInput{
		Email:    formValue(r, "email"),
		Password: r.PostFormValue("password"),
	}
	res, err := orchestrators.ExecuteLogin(r.Context(), input, orchestrators.LoginDeps{
		Auth: s.deps.Backend,
		Profiles: func(token string) orchestrators.ProfileReader {
			return profileStore.NewBackendStore(s.actingAs(token))
		},
		SignOut:    s.signOutToken,
		Sessions:   s.deps.Sessions,
		SessionTTL: s.deps.SessionTTL,
		Now:        s.deps.Now,
	})
	if err != nil {
		s.renderFlash(w, r, "login.html", "Login", &Flash{Kind: FlashError, Msg: orchestrators.Toast(err, "Login failed.")}, loginForm{Email: input.Email})
		return
	}

	middleware.SetSessionCookie(w, res.Session.ID, s.deps.SessionTTL, s.deps.Secure)
	s.redirect(w, r, res.Redirect, FlashSuccess, "Login successful! Redirecting...")
}

func (s *Server) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "signup.html", "Sign Up", signupForm{Role: profile.RoleUser})
}

// handleSignup creates the auth account and its profile.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	input := orchestrators.SignupInput{
		Username: r.PostFormValue("username"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
		Role:     r.PostFormValue("role"),
		RoomCode: r.PostFormValue("room_code"),
	}
	res, err := orchestrators.ExecuteSignup(r.Context(), input, orchestrators.SignupDeps{
		Auth: s.deps.Backend,
		Rooms: func(token string) orchestrators.RoomLookup {
			return roomStore.NewBackendStore(s.actingAs(token))
		},
		Profiles: func(token string) orchestrators.ProfileInserter {
			return profileStore.NewBackendStore(s.actingAs(token))
		},
		Outbox:     s.deps.Outbox,
		GenerateID: s.deps.GenerateID,
		Now:        s.deps.Now,
	})
	if err != nil {
		form := signupForm{
			Username: formValue(r, "username"),
			Email:    formValue(r, "email"),
			Role:     formValue(r, "role"),
			RoomCode: formValue(r, "room_code"),
		}
		if form.Role == "" {
			form.Role = profile.RoleUser
		}
		s.renderFlash(w, r, "signup.html", "Sign Up", &Flash{Kind: FlashError, Msg: orchestrators.Toast(err, "Signup failed.")}, form)
		return
	}
	s.redirect(w, r, "/login", FlashSuccess, res.Message())
}

// handleLogout ends the session, if any, and returns to the login page.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := middleware.SessionFromContext(r.Context()); ok {
		s.endSession(r.Context(), sess)
	}
	middleware.ClearSessionCookie(w, s.deps.Secure)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
