package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskroom/internal/adapters/backend"
	roomStore "taskroom/internal/adapters/storage/room"
	"taskroom/internal/domain/outbox"
	"taskroom/internal/domain/profile"
)

// SignUpAuth is the auth call needed by Signup.
type SignUpAuth interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*backend.User, *backend.Session, error)
}

// RoomLookup resolves join codes.
type RoomLookup interface {
	FindIDByCode(ctx context.Context, code string) (string, error)
}

// ProfileInserter writes users_info rows.
type ProfileInserter interface {
	Insert(ctx context.Context, p profile.Profile) error
}

// OutboxWriter queues deferred work.
type OutboxWriter interface {
	Save(ctx context.Context, e outbox.Entry) error
}

// SignupInput carries the signup form.
type SignupInput struct {
	Username string
	Email    string
	Password string
	Role     string
	RoomCode string
}

// SignupResult describes the account that was created.
type SignupResult struct {
	UserID string
	Role   string
}

// Message is the success toast for the created account.
func (r SignupResult) Message() string {
	if r.Role == profile.RoleAdmin {
		return "Admin account created successfully!"
	}
	return "Account created! Pending approval."
}

// SignupDeps holds dependencies for Signup. Rooms and Profiles are built per
// call from the access token signup returned, or "" when it returned none.
type SignupDeps struct {
	Auth       SignUpAuth
	Rooms      func(accessToken string) RoomLookup
	Profiles   func(accessToken string) ProfileInserter
	Outbox     OutboxWriter
	GenerateID func() string
	Now        func() time.Time
}

// ExecuteSignup creates an auth account and its users_info row.
// PRE: none; input is validated here
// POST: On success the account and profile exist. When the profile could not
// be written the auth account is queued for deletion and the error is returned.
// INVARIANT: admins never carry a room at signup; users always do
func ExecuteSignup(ctx context.Context, input SignupInput, deps SignupDeps) (SignupResult, error) {
	in := trimSignup(input)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return SignupResult{}, ErrSignupFieldsRequired
	}
	if in.Role == "" {
		in.Role = profile.RoleUser
	}
	if !profile.IsValidRole(in.Role) {
		return SignupResult{}, ErrUnknownRole
	}
	if in.Role == profile.RoleUser && in.RoomCode == "" {
		return SignupResult{}, ErrRoomCodeRequired
	}
	if err := profile.ValidateIdentity(in.Username, in.Email); err != nil {
		return SignupResult{}, err
	}

	user, session, err := deps.Auth.SignUp(ctx, in.Email, in.Password, nil)
	if err != nil {
		slog.Info("auth_event", "event", "signup_failed", "email", in.Email, "error", err.Error())
		return SignupResult{}, userError(err, "Signup failed.")
	}
	if user == nil || user.ID == "" {
		return SignupResult{}, ErrSignupNoUser
	}

	token := ""
	if session != nil {
		token = session.AccessToken
	}

	var p profile.Profile
	if in.Role == profile.RoleAdmin {
		p = profile.NewAdmin(user.ID, in.Username, in.Email)
	} else {
		roomID, err := deps.Rooms(token).FindIDByCode(ctx, in.RoomCode)
		if err != nil {
			if !errors.Is(err, roomStore.ErrNotFound) {
				slog.Warn("auth_event", "event", "room_lookup_failed", "email", in.Email, "error", err.Error())
			}
			queueOrphan(ctx, deps, user.ID, in.Email, "room lookup: "+err.Error())
			return SignupResult{}, ErrInvalidRoomCode
		}
		p = profile.NewUser(user.ID, in.Username, in.Email, roomID)
	}

	if err := p.Validate(); err != nil {
		queueOrphan(ctx, deps, user.ID, in.Email, "invalid profile: "+err.Error())
		return SignupResult{}, &UserError{Msg: "Database error: " + err.Error(), Err: err}
	}
	if err := deps.Profiles(token).Insert(ctx, p); err != nil {
		queueOrphan(ctx, deps, user.ID, in.Email, "profile insert: "+err.Error())
		return SignupResult{}, &UserError{Msg: "Database error: " + backend.Message(err, "could not save profile"), Err: err}
	}

	slog.Info("auth_event", "event", "account_created", "email", in.Email, "role", in.Role)
	return SignupResult{UserID: user.ID, Role: in.Role}, nil
}

// queueOrphan records an auth account left without a profile so the outbox
// worker can delete it. Failure to queue is logged only.
func queueOrphan(ctx context.Context, deps SignupDeps, userID, email, reason string) {
	if deps.Outbox == nil {
		slog.Error("auth_event", "event", "orphan_account_unqueued", "user_id", userID, "reason", reason)
		return
	}
	entry, err := outbox.NewEntry(newID(deps.GenerateID), outbox.ActionTypeDeleteOrphanAccount, outbox.OrphanAccount{
		UserID: userID,
		Email:  email,
		Reason: reason,
	}, clock(deps.Now))
	if err == nil {
		err = deps.Outbox.Save(ctx, entry)
	}
	if err != nil {
		slog.Error("auth_event", "event", "orphan_account_unqueued", "user_id", userID, "error", err.Error())
		return
	}
	slog.Warn("auth_event", "event", "orphan_account_queued", "user_id", userID, "entry_id", entry.ID, "reason", reason)
}

func trimSignup(in SignupInput) SignupInput {
	return SignupInput{
		Username: strings.TrimSpace(in.Username),
		Email:    strings.TrimSpace(in.Email),
		Password: strings.TrimSpace(in.Password),
		Role:     strings.TrimSpace(in.Role),
		RoomCode: strings.TrimSpace(in.RoomCode),
	}
}

func newID(gen func() string) string {
	if gen != nil {
		return gen()
	}
	return uuid.New().String()
}

func clock(fn func() time.Time) time.Time {
	if fn != nil {
		return fn()
	}
	return time.Now()
}

