package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"taskroom/internal/adapters/backend"
	profileStore "taskroom/internal/adapters/storage/profile"
	"taskroom/internal/domain/profile"
	"taskroom/internal/domain/session"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const (
	sessionContextKey contextKey = "session"
	clientContextKey  contextKey = "backend_client"
	profileContextKey contextKey = "profile"
)

// SessionCookieName carries the local session id.
const SessionCookieName = "taskroom_session"

// DefaultRefreshLeeway refreshes access tokens this long before they expire.
const DefaultRefreshLeeway = time.Minute

// SessionStore is the local session persistence the middleware needs.
type SessionStore interface {
	Get(ctx context.Context, id string) (session.Session, error)
	Save(ctx context.Context, s session.Session) error
	Delete(ctx context.Context, id string) error
}

// SessionConfig configures Session.
type SessionConfig struct {
	Store   SessionStore
	Backend *backend.Client
	Secure  bool
	Leeway  time.Duration    // zero means DefaultRefreshLeeway
	Now     func() time.Time // nil means time.Now
}

// Session returns middleware that loads the local session named by the
// session cookie and attaches it, with a backend client acting as its user,
// to the request context. A stale access token is refreshed once first.
// It does NOT block anonymous requests; use RequireProfile for that.
func Session(cfg SessionConfig) func(http.Handler) http.Handler {
	leeway := cfg.Leeway
	if leeway <= 0 {
		leeway = DefaultRefreshLeeway
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isStatic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			s, err := cfg.Store.Get(ctx, cookie.Value)
			switch {
			case errors.Is(err, session.ErrExpired):
				deleteSession(ctx, cfg.Store, cookie.Value)
				ClearSessionCookie(w, cfg.Secure)
				next.ServeHTTP(w, r)
				return
			case err != nil:
				if !errors.Is(err, session.ErrNotFound) {
					slog.Error("auth_event", "event", "session_load_failed", "error", err.Error())
				}
				ClearSessionCookie(w, cfg.Secure)
				next.ServeHTTP(w, r)
				return
			}

			if s.TokenStale(now(), leeway) {
				if err := refresh(ctx, cfg, &s); err != nil {
					slog.Info("auth_event", "event", "token_refresh_failed", "user_id", s.UserID, "error", err.Error())
					deleteSession(ctx, cfg.Store, s.ID)
					ClearSessionCookie(w, cfg.Secure)
					next.ServeHTTP(w, r)
					return
				}
			}

			ctx = ContextWithSession(ctx, s, cfg.Backend.WithAccessToken(s.AccessToken))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// deleteSession drops a local session. The cookie is cleared either way, so a
// failure only leaves a row for the sweeper.
func deleteSession(ctx context.Context, store SessionStore, id string) {
	if err := store.Delete(ctx, id); err != nil {
		slog.Warn("auth_event", "event", "session_delete_failed", "error", err.Error())
	}
}

// refresh rotates the session's token pair and stores it.
func refresh(ctx context.Context, cfg SessionConfig, s *session.Session) error {
	if s.RefreshToken == "" {
		return errors.New("no refresh token")
	}
	issued, err := cfg.Backend.RefreshSession(ctx, s.RefreshToken)
	if err != nil {
		return err
	}
	s.Rotate(issued.AccessToken, issued.RefreshToken, issued.Expiry())
	if err := cfg.Store.Save(ctx, *s); err != nil {
		return err
	}
	slog.Debug("auth_event", "event", "token_refreshed", "user_id", s.UserID)
	return nil
}

// Rule is what a page demands of the signed-in profile.
type Rule struct {
	Role     string // required role tag, or "" for any
	Approved bool   // require an approved profile
}

// allows reports whether p satisfies the rule.
func (rule Rule) allows(p profile.Profile) bool {
	if rule.Role != "" && !p.HasRole(rule.Role) {
		return false
	}
	if rule.Approved && !p.Approved {
		return false
	}
	return true
}

// Guard gates pages on the signed-in profile.
type Guard struct {
	// SignOut ends a session on the backend and locally. It is called when a
	// signed-in visitor fails a rule.
	SignOut func(ctx context.Context, s session.Session)
	Secure  bool
}

// RequireProfile returns middleware that admits only visitors whose profile
// satisfies rule.
// POST: Without a usable backend session the visitor is sent to /login as is.
// When the profile cannot be read or fails the rule, the visitor is signed
// out first. Otherwise the profile is on the request context.
func (g *Guard) RequireProfile(rule Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			s, ok := SessionFromContext(ctx)
			client := ClientFromContext(ctx)
			if !ok || client == nil {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			user, err := client.GetUser(ctx)
			if err != nil || user == nil {
				slog.Info("auth_event", "event", "guard_no_user", "path", r.URL.Path)
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			p, err := profileStore.NewBackendStore(client).GetByID(ctx, user.ID)
			if err != nil || !rule.allows(p) {
				reason := "rule"
				if err != nil {
					reason = "profile_unavailable"
				}
				slog.Info("auth_event", "event", "guard_rejected", "user_id", user.ID, "path", r.URL.Path, "reason", reason)
				if g.SignOut != nil {
					g.SignOut(ctx, s)
				}
				ClearSessionCookie(w, g.Secure)
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithProfile(ctx, p)))
		})
	}
}

// SessionFromContext extracts the session from the request context.
func SessionFromContext(ctx context.Context) (session.Session, bool) {
	s, ok := ctx.Value(sessionContextKey).(session.Session)
	return s, ok
}

// ClientFromContext returns the backend client acting as the signed-in user,
// or nil for anonymous requests.
func ClientFromContext(ctx context.Context) *backend.Client {
	c, _ := ctx.Value(clientContextKey).(*backend.Client)
	return c
}

// ProfileFromContext returns the profile RequireProfile admitted.
func ProfileFromContext(ctx context.Context) (profile.Profile, bool) {
	p, ok := ctx.Value(profileContextKey).(profile.Profile)
	return p, ok
}

// ContextWithSession returns a context carrying s and the client acting for it.
func ContextWithSession(ctx context.Context, s session.Session, client *backend.Client) context.Context {
	ctx = context.WithValue(ctx, sessionContextKey, s)
	return context.WithValue(ctx, clientContextKey, client)
}

// ContextWithProfile returns a context carrying p.
// Intended for RequireProfile and tests.
func ContextWithProfile(ctx context.Context, p profile.Profile) context.Context {
	return context.WithValue(ctx, profileContextKey, p)
}

// SetSessionCookie sets the session cookie on the response.
func SetSessionCookie(w http.ResponseWriter, id string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
	})
}

// ClearSessionCookie removes the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})
}
