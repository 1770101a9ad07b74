// Package backendtest runs an in-memory stand-in for the hosted backend:
// enough of the auth API, the table API and the room-code RPC for the
// app's own calls, with tokens that are real signed JWTs.
package backendtest

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"taskroom/internal/adapters/backend"
)

// Keys the fake accepts as apikey.
const (
	AnonKey    = "anon-test-key"
	ServiceKey = "service-test-key"
)

// Tables the fake knows about.
const (
	TableProfiles = "users_info"
	TableRooms    = "rooms"
	TableTasks    = "tasks"
)

// Row is one stored table row, keyed by column.
type Row map[string]any

// RecordedRequest is one call the fake received.
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	APIKey string
	Bearer string
	Body   string
}

type authUser struct {
	id       string
	email    string
	password string
	metadata map[string]any
	created  time.Time
}

type failure struct {
	method string
	prefix string
	status int
	msg    string
	once   bool
}

// Server is the fake backend. Create one with New.
type Server struct {
	*httptest.Server

	// TokenTTL is the lifetime of issued access tokens.
	TokenTTL time.Duration
	// AutoConfirm makes signup return a session, as projects without email
	// confirmation do. When false signup returns the bare user.
	AutoConfirm bool

	mu        sync.Mutex
	secret    []byte
	clock     time.Time
	users     map[string]*authUser // by id
	sessions  map[string]string    // session id -> user id, active sessions only
	refresh   map[string]string    // refresh token -> session id
	tables    map[string][]Row
	codeSeq   int
	failures  []failure
	requests  []RecordedRequest
	fkEmbeds  map[string]embed
	uniqueCol map[string][]string
}

type embed struct {
	column string // local column holding the foreign id
	table  string // referenced table, matched on id
}

// New starts a fake backend that is closed when t finishes.
func New(t testing.TB) *Server {
	t.Helper()
	s := NewUnstarted()
	s.Server = httptest.NewServer(s)
	t.Cleanup(s.Close)
	return s
}

// NewUnstarted builds the fake without a listener; serve it with any http.Server.
func NewUnstarted() *Server {
	secret := make([]byte, 32)
	_, _ = rand.Read(secret)
	return &Server{
		TokenTTL:    time.Hour,
		AutoConfirm: true,
		secret:      secret,
		clock:       time.Now().UTC().Truncate(time.Second),
		users:       map[string]*authUser{},
		sessions:    map[string]string{},
		refresh:     map[string]string{},
		tables:      map[string][]Row{TableProfiles: nil, TableRooms: nil, TableTasks: nil},
		fkEmbeds: map[string]embed{
			"tasks_assigned_to_fkey": {column: "assigned_to", table: TableProfiles},
			"tasks_room_id_fkey":     {column: "room_id", table: TableRooms},
		},
		uniqueCol: map[string][]string{
			TableProfiles: {"id"},
			TableRooms:    {"id", "current_code"},
			TableTasks:    {"id"},
		},
	}
}

// Client returns an anonymous backend client pointed at the fake.
func (s *Server) Client(t testing.TB) *backend.Client {
	t.Helper()
	c, err := backend.New(backend.Options{URL: s.URL, AnonKey: AnonKey, ServiceRoleKey: ServiceKey})
	if err != nil {
		t.Fatalf("backend.New: %v", err)
	}
	return c
}

// tick advances the fake clock so inserted rows order deterministically.
func (s *Server) tick() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

// CreateUser registers an auth account directly and returns its id.
func (s *Server) CreateUser(email, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &authUser{id: uuid.NewString(), email: email, password: password, created: s.tick()}
	s.users[u.id] = u
	return u.id
}

// HasUser reports whether an auth account with id exists.
func (s *Server) HasUser(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[id]
	return ok
}

// UserIDByEmail returns the auth account id for email, or "".
func (s *Server) UserIDByEmail(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.email == email {
			return u.id
		}
	}
	return ""
}

// Seed inserts row into table as-is, filling id and timestamps when missing.
// It returns the stored row.
func (s *Server) Seed(table string, row Row) Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.withDefaults(table, row)
	s.tables[table] = append(s.tables[table], stored)
	return copyRow(stored)
}

// Rows returns a copy of every row in table.
func (s *Server) Rows(table string) []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Row, 0, len(s.tables[table]))
	for _, r := range s.tables[table] {
		out = append(out, copyRow(r))
	}
	return out
}

// Row returns the row in table with the given id.
func (s *Server) Row(table, id string) (Row, bool) {
	for _, r := range s.Rows(table) {
		if r["id"] == id {
			return r, true
		}
	}
	return nil, false
}

// Fail makes every matching request answer status with msg until ClearFailures.
// method "" matches any method; prefix is matched against the URL path.
func (s *Server) Fail(method, prefix string, status int, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{method: method, prefix: prefix, status: status, msg: msg})
}

// FailOnce is Fail for the next matching request only.
func (s *Server) FailOnce(method, prefix string, status int, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{method: method, prefix: prefix, status: status, msg: msg, once: true})
}

// ClearFailures removes every injected failure.
func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = nil
}

// Requests returns every request received so far.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// ServeHTTP routes a request to the auth, rest or rpc handlers.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body := readBody(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		APIKey: r.Header.Get("apikey"),
		Bearer: strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "),
		Body:   string(body),
	})

	if key := r.Header.Get("apikey"); key != AnonKey && key != ServiceKey {
		writeAuthError(w, http.StatusUnauthorized, "no_api_key", "Invalid API key")
		return
	}
	if f, ok := s.matchFailure(r); ok {
		if strings.HasPrefix(r.URL.Path, "/auth/") {
			writeAuthError(w, f.status, "unexpected_failure", f.msg)
		} else {
			writeRestError(w, f.status, "XX000", f.msg, "")
		}
		return
	}

	switch {
	case strings.HasPrefix(r.URL.Path, "/auth/v1/"):
		s.serveAuth(w, r, body)
	case strings.HasPrefix(r.URL.Path, "/rest/v1/rpc/"):
		s.serveRPC(w, r)
	case strings.HasPrefix(r.URL.Path, "/rest/v1/"):
		s.serveRest(w, r, body)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) matchFailure(r *http.Request) (failure, bool) {
	for i, f := range s.failures {
		if (f.method == "" || f.method == r.Method) && strings.HasPrefix(r.URL.Path, f.prefix) {
			if f.once {
				s.failures = append(s.failures[:i], s.failures[i+1:]...)
			}
			return f, true
		}
	}
	return failure{}, false
}

// issue creates a new session for u.
func (s *Server) issue(u *authUser) map[string]any {
	now := s.tick()
	sid := uuid.NewString()
	s.sessions[sid] = u.id
	exp := now.Add(s.TokenTTL)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        u.id,
		"email":      u.email,
		"role":       "authenticated",
		"session_id": sid,
		"iat":        now.Unix(),
		"exp":        exp.Unix(),
	})
	signed, _ := tok.SignedString(s.secret)
	rt := uuid.NewString()
	s.refresh[rt] = sid
	return map[string]any{
		"access_token":  signed,
		"refresh_token": rt,
		"token_type":    "bearer",
		"expires_in":    int(s.TokenTTL.Seconds()),
		"expires_at":    exp.Unix(),
		"user":          userJSON(u),
	}
}

// authenticate resolves the bearer token to a live user.
func (s *Server) authenticate(r *http.Request) (*authUser, string, error) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(func() time.Time { return s.clock }),
	)
	if err != nil {
		return nil, "", fmt.Errorf("invalid JWT: %w", err)
	}
	sid, _ := claims["session_id"].(string)
	uid, ok := s.sessions[sid]
	if !ok {
		return nil, "", fmt.Errorf("session not found")
	}
	u, ok := s.users[uid]
	if !ok {
		return nil, "", fmt.Errorf("user not found")
	}
	return u, sid, nil
}

func userJSON(u *authUser) map[string]any {
	return map[string]any{
		"id":            u.id,
		"email":         u.email,
		"aud":           "authenticated",
		"user_metadata": u.metadata,
		"created_at":    u.created.Format(time.RFC3339Nano),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAuthError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]any{"code": status, "error_code": code, "msg": msg})
}

func writeRestError(w http.ResponseWriter, status int, code, msg, details string) {
	writeJSON(w, status, map[string]any{"code": code, "message": msg, "details": details, "hint": nil})
}

func readBody(r *http.Request) []byte {
	if r.Body == nil {
		return nil
	}
	b, _ := io.ReadAll(r.Body)
	return b
}

func copyRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
