package orchestrators

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"strings"
	"time"

	"taskroom/internal/adapters/backend"
	"taskroom/internal/domain/profile"
	"taskroom/internal/domain/session"
)

// DefaultSessionTTL applies when LoginDeps.SessionTTL is zero.
const DefaultSessionTTL = 24 * time.Hour

// PasswordSignIn is the auth call needed by Login.
type PasswordSignIn interface {
	SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error)
}

// ProfileReader reads users_info rows.
type ProfileReader interface {
	GetByID(ctx context.Context, id string) (profile.Profile, error)
}

// SessionWriter persists local sessions.
type SessionWriter interface {
	Save(ctx context.Context, s session.Session) error
}

// SessionDeleter removes local sessions.
type SessionDeleter interface {
	Delete(ctx context.Context, id string) error
}

// LoginInput carries input for the login orchestrator.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult carries the result of a successful login.
type LoginResult struct {
	Session  session.Session
	Profile  profile.Profile
	Redirect string
}

// LoginDeps holds dependencies for Login. Profiles and SignOut act as the
// user holding accessToken.
type LoginDeps struct {
	Auth       PasswordSignIn
	Profiles   func(accessToken string) ProfileReader
	SignOut    func(ctx context.Context, accessToken string) error
	Sessions   SessionWriter
	SessionTTL time.Duration
	GenerateID func() string
	Now        func() time.Time
}

// ExecuteLogin signs in against the backend and opens a local session.
// PRE: none; input is validated here
// POST: On success a session is stored and returned. Unapproved or
// profile-less users are signed out again and no session is stored.
// INVARIANT: a session is only created for approved profiles
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (LoginResult, error) {
	email := strings.TrimSpace(input.Email)
	password := strings.TrimSpace(input.Password)
	if email == "" || password == "" {
		return LoginResult{}, ErrLoginFieldsRequired
	}

	issued, err := deps.Auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		slog.Info("auth_event", "event", "login_failed", "email", email, "error", err.Error())
		return LoginResult{}, userError(err, "Login failed.")
	}
	if issued == nil || issued.User == nil || issued.AccessToken == "" {
		return LoginResult{}, ErrLoginNoUser
	}

	p, err := deps.Profiles(issued.AccessToken).GetByID(ctx, issued.User.ID)
	if err != nil {
		slog.Warn("auth_event", "event", "login_blocked", "email", email, "reason", "profile_unavailable", "error", err.Error())
		signOut(ctx, deps.SignOut, issued.AccessToken)
		return LoginResult{}, ErrProfileUnavailable
	}
	if !p.Approved {
		slog.Info("auth_event", "event", "login_blocked", "email", email, "reason", "pending_approval")
		signOut(ctx, deps.SignOut, issued.AccessToken)
		return LoginResult{}, ErrPendingApproval
	}

	ttl := deps.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	at := clock(deps.Now)
	s := session.Session{
		ID:           newSessionID(deps.GenerateID),
		UserID:       issued.User.ID,
		Email:        email,
		AccessToken:  issued.AccessToken,
		RefreshToken: issued.RefreshToken,
		TokenExpiry:  issued.Expiry(),
		CreatedAt:    at,
		ExpiresAt:    at.Add(ttl),
	}
	if err := deps.Sessions.Save(ctx, s); err != nil {
		signOut(ctx, deps.SignOut, issued.AccessToken)
		return LoginResult{}, &UserError{Msg: "Login failed. Please try again.", Err: err}
	}

	slog.Info("auth_event", "event", "login_success", "email", email, "admin", p.IsAdmin())
	return LoginResult{Session: s, Profile: p, Redirect: p.DashboardPath()}, nil
}

// LogoutDeps holds dependencies for Logout.
type LogoutDeps struct {
	SignOut  func(ctx context.Context, accessToken string) error
	Sessions SessionDeleter
}

// ExecuteLogout ends a session on the backend and locally.
// POST: The local session row is gone even when the backend call failed
func ExecuteLogout(ctx context.Context, s session.Session, deps LogoutDeps) error {
	if s.AccessToken != "" {
		signOut(ctx, deps.SignOut, s.AccessToken)
	}
	if s.ID == "" {
		return nil
	}
	if err := deps.Sessions.Delete(ctx, s.ID); err != nil {
		return err
	}
	slog.Info("auth_event", "event", "logout", "user_id", s.UserID)
	return nil
}

// signOut revokes a backend session. Failures are logged only.
func signOut(ctx context.Context, fn func(context.Context, string) error, accessToken string) {
	if fn == nil {
		return
	}
	if err := fn(ctx, accessToken); err != nil && !errors.Is(err, backend.ErrNoSession) {
		slog.Warn("auth_event", "event", "sign_out_failed", "error", err.Error())
	}
}

func newSessionID(gen func() string) string {
	if gen != nil {
		return gen()
	}
	return rand.Text()
}
