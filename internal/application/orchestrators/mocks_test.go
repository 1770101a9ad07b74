package orchestrators

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"taskroom/internal/adapters/backend"
	profileStore "taskroom/internal/adapters/storage/profile"
	roomStore "taskroom/internal/adapters/storage/room"
	taskStore "taskroom/internal/adapters/storage/task"
	"taskroom/internal/domain/outbox"
	"taskroom/internal/domain/profile"
	"taskroom/internal/domain/room"
	"taskroom/internal/domain/session"
	"taskroom/internal/domain/task"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testNow() time.Time { return testTime }

func testID() string { return "id-001" }

// mockAuth implements SignUpAuth, PasswordSignIn and AccountDeleter.
type mockAuth struct {
	signUpUser    *backend.User
	signUpSession *backend.Session
	signUpErr     error
	signIn        *backend.Session
	signInErr     error
	deleteErr     error

	deleted   []string
	signedOut []string
}

func (m *mockAuth) SignUp(_ context.Context, email, _ string, _ map[string]any) (*backend.User, *backend.Session, error) {
	if m.signUpErr != nil {
		return nil, nil, m.signUpErr
	}
	return m.signUpUser, m.signUpSession, nil
}

func (m *mockAuth) SignInWithPassword(_ context.Context, _, _ string) (*backend.Session, error) {
	return m.signIn, m.signInErr
}

func (m *mockAuth) SignOut(_ context.Context, token string) error {
	m.signedOut = append(m.signedOut, token)
	return nil
}

func (m *mockAuth) AdminDeleteUser(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	return nil
}

// mockProfiles implements the profile interfaces the orchestrators use.
type mockProfiles struct {
	profiles  map[string]profile.Profile
	insertErr error
	getErr    error
	linkErr   error
}

func newMockProfiles(ps ...profile.Profile) *mockProfiles {
	m := &mockProfiles{profiles: make(map[string]profile.Profile)}
	for _, p := range ps {
		m.profiles[p.ID] = p
	}
	return m
}

func (m *mockProfiles) GetByID(_ context.Context, id string) (profile.Profile, error) {
	if m.getErr != nil {
		return profile.Profile{}, m.getErr
	}
	p, ok := m.profiles[id]
	if !ok {
		return profile.Profile{}, profileStore.ErrNotFound
	}
	return p, nil
}

func (m *mockProfiles) Insert(_ context.Context, p profile.Profile) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.profiles[p.ID] = p
	return nil
}

func (m *mockProfiles) SetRoom(_ context.Context, id, roomID string) error {
	if m.linkErr != nil {
		return m.linkErr
	}
	p, ok := m.profiles[id]
	if !ok {
		return profileStore.ErrNotFound
	}
	p.RoomID = roomID
	m.profiles[id] = p
	return nil
}

func (m *mockProfiles) Approve(_ context.Context, id, roomID string) (profile.Profile, error) {
	p, ok := m.profiles[id]
	if !ok || p.RoomID != roomID {
		return profile.Profile{}, profileStore.ErrNotFound
	}
	p.Approved = true
	m.profiles[id] = p
	return p, nil
}

// mockRooms implements RoomLookup and RoomStoreForCreate.
type mockRooms struct {
	byCode    map[string]string
	code      string
	codeErr   error
	createErr error
	created   []room.Room
}

func (m *mockRooms) FindIDByCode(_ context.Context, code string) (string, error) {
	id, ok := m.byCode[code]
	if !ok {
		return "", roomStore.ErrNotFound
	}
	return id, nil
}

func (m *mockRooms) GenerateCode(context.Context) (string, error) {
	return m.code, m.codeErr
}

func (m *mockRooms) Create(_ context.Context, r room.Room) (room.Room, error) {
	if m.createErr != nil {
		return room.Room{}, m.createErr
	}
	r.ID = "room-new"
	r.CreatedAt = testTime
	m.created = append(m.created, r)
	return r, nil
}

// mockTasks implements TaskCreator and TaskStoreForStatus.
type mockTasks struct {
	tasks     map[string]task.Task
	createErr error
	updateErr error
	updates   int
}

func newMockTasks(ts ...task.Task) *mockTasks {
	m := &mockTasks{tasks: make(map[string]task.Task)}
	for _, t := range ts {
		m.tasks[t.ID] = t
	}
	return m
}

func (m *mockTasks) Create(_ context.Context, t task.Task) (task.Task, error) {
	if m.createErr != nil {
		return task.Task{}, m.createErr
	}
	t.ID = "task-new"
	m.tasks[t.ID] = t
	return t, nil
}

func (m *mockTasks) GetByID(_ context.Context, id string) (task.Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return task.Task{}, taskStore.ErrNotFound
	}
	return t, nil
}

func (m *mockTasks) UpdateStatus(_ context.Context, id, from, to string, at time.Time) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	t, ok := m.tasks[id]
	if !ok || t.Status != from {
		return task.ErrStatusChanged
	}
	t.Status = to
	t.UpdatedAt = at
	m.tasks[id] = t
	m.updates++
	return nil
}

// mockOutbox is an in-memory outbox store.
type mockOutbox struct {
	mu      sync.Mutex
	entries map[string]outbox.Entry
	saveErr error
}

func newMockOutbox() *mockOutbox {
	return &mockOutbox{entries: make(map[string]outbox.Entry)}
}

func (m *mockOutbox) GetByID(_ context.Context, id string) (outbox.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return outbox.Entry{}, errors.New("outbox entry not found")
	}
	return e, nil
}

func (m *mockOutbox) Save(_ context.Context, e outbox.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if err := e.Validate(); err != nil {
		return err
	}
	m.entries[e.ID] = e
	return nil
}

func (m *mockOutbox) ListDue(_ context.Context, now time.Time, limit int) ([]outbox.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []outbox.Entry
	for _, e := range m.entries {
		if e.IsDue(now) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].NextAttemptAt.Equal(out[j].NextAttemptAt) {
			return out[i].NextAttemptAt.Before(out[j].NextAttemptAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockOutbox) CountByStatus(context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, e := range m.entries {
		counts[e.Status]++
	}
	return counts, nil
}

func (m *mockOutbox) only(t interface{ Fatalf(string, ...any) }) outbox.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) != 1 {
		t.Fatalf("expected 1 outbox entry, got %d", len(m.entries))
	}
	for _, e := range m.entries {
		return e
	}
	return outbox.Entry{}
}

// mockSessions implements SessionWriter, SessionDeleter and ExpiredSessionRemover.
type mockSessions struct {
	saved   map[string]session.Session
	saveErr error
	swept   int64
}

func newMockSessions() *mockSessions {
	return &mockSessions{saved: make(map[string]session.Session)}
}

func (m *mockSessions) Save(_ context.Context, s session.Session) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved[s.ID] = s
	return nil
}

func (m *mockSessions) Delete(_ context.Context, id string) error {
	delete(m.saved, id)
	return nil
}

func (m *mockSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for id, s := range m.saved {
		if s.IsExpired(now) {
			delete(m.saved, id)
			n++
		}
	}
	m.swept += n
	return n, nil
}

func sessionEnding(at time.Time) session.Session {
	return session.Session{ID: "s", UserID: "u-1", AccessToken: "a", CreatedAt: at.Add(-time.Hour), ExpiresAt: at}
}
