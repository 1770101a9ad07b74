// Package web serves the server-rendered pages: signup, login, the admin
// hub, rooms, tasks and approvals, and the user task board.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/google/uuid"

	"taskroom/internal/adapters/backend"
	"taskroom/internal/adapters/http/middleware"
	sessionStore "taskroom/internal/adapters/storage/session"
	"taskroom/internal/application/orchestrators"
	"taskroom/internal/domain/session"
	"taskroom/internal/observability"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Deps holds everything the web layer needs.
type Deps struct {
	// Backend is the anonymous client; signed-in requests use a copy acting
	// as the visitor.
	Backend  *backend.Client
	Sessions sessionStore.Store
	Outbox   orchestrators.OutboxWriter
	Metrics  *observability.Metrics // nil disables /metrics and request metrics

	// Limiter is owned by the caller, who stops it on shutdown.
	Limiter *middleware.RateLimiter

	Secret         []byte // 32 bytes; CSRF key and flash key material
	Secure         bool   // cookies are Secure and CSRF expects HTTPS
	TrustedOrigins []string
	SessionTTL     time.Duration

	GenerateID func() string    // nil means uuid
	Now        func() time.Time // nil means time.Now
}

// Server renders pages for one backend project.
type Server struct {
	deps  Deps
	flash *flasher
	pages map[string]*template.Template
	guard *middleware.Guard
}

// NewServer validates deps and parses the templates.
// PRE: deps.Backend, deps.Sessions and deps.Limiter are non-nil; deps.Secret is 32 bytes
func NewServer(deps Deps) (*Server, error) {
	if deps.Backend == nil || deps.Sessions == nil || deps.Limiter == nil {
		return nil, errors.New("web: backend, sessions and limiter are required")
	}
	if len(deps.Secret) != 32 {
		return nil, errors.New("web: secret must be 32 bytes")
	}
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = orchestrators.DefaultSessionTTL
	}
	if deps.GenerateID == nil {
		deps.GenerateID = uuid.NewString
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	fl, err := newFlasher(deps.Secret, deps.Secure)
	if err != nil {
		return nil, err
	}
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	s := &Server{deps: deps, flash: fl, pages: pages}
	s.guard = &middleware.Guard{SignOut: s.endSession, Secure: deps.Secure}
	return s, nil
}

// Handler returns the full middleware chain around the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("web: static assets: %v", err))
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	if s.deps.Metrics != nil {
		mux.Handle("GET /metrics", s.deps.Metrics.Handler())
	}
	s.registerRoutes(mux)

	// Outermost first: SecurityHeaders -> RateLimit -> CSRF -> Session -> Timing -> mux
	return middleware.Chain(mux,
		middleware.Timing(s.deps.Metrics, 0),
		middleware.Session(middleware.SessionConfig{
			Store:   s.deps.Sessions,
			Backend: s.deps.Backend,
			Secure:  s.deps.Secure,
			Now:     s.deps.Now,
		}),
		middleware.CSRF(s.deps.Secret, s.deps.Secure, s.deps.TrustedOrigins),
		middleware.RateLimit(s.deps.Limiter),
		middleware.SecurityHeaders,
	)
}

// NewMux wires HTTP handlers for the app.
func NewMux(deps Deps) (http.Handler, error) {
	s, err := NewServer(deps)
	if err != nil {
		return nil, err
	}
	return s.Handler(), nil
}

// signOutToken revokes accessToken on the backend.
func (s *Server) signOutToken(ctx context.Context, accessToken string) error {
	return s.deps.Backend.WithAccessToken(accessToken).SignOut(ctx)
}

// endSession signs a visitor out on the backend and deletes the local row.
func (s *Server) endSession(ctx context.Context, sess session.Session) {
	err := orchestrators.ExecuteLogout(ctx, sess, orchestrators.LogoutDeps{
		SignOut:  s.signOutToken,
		Sessions: s.deps.Sessions,
	})
	if err != nil {
		internalLog("logout", err)
	}
}
