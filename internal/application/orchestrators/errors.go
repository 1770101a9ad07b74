package orchestrators

import (
	"errors"

	"taskroom/internal/adapters/backend"
	"taskroom/internal/domain/profile"
	"taskroom/internal/domain/room"
	"taskroom/internal/domain/task"
)

// Validation and flow errors. Their text is shown to users as is.
var (
	ErrSignupFieldsRequired = errors.New("All fields are required.")
	ErrRoomCodeRequired     = errors.New("Users must provide a room code.")
	ErrUnknownRole          = errors.New("Role must be either admin or user.")
	ErrSignupNoUser         = errors.New("Signup failed to return a user.")
	ErrInvalidRoomCode      = errors.New("Invalid or non-existent Room Code.")

	ErrLoginFieldsRequired = errors.New("Email and password are required.")
	ErrLoginNoUser         = errors.New("Login failed to return a user session.")
	ErrProfileUnavailable  = errors.New("Could not fetch your user profile.")
	ErrPendingApproval     = errors.New("Your account is pending admin approval.")

	ErrTaskNotFound    = errors.New("Task not found.")
	ErrNotYourTask     = errors.New("You can only update tasks in your own scope.")
	ErrProfileNotFound = errors.New("That user is not waiting for approval in your room.")
)

// user-facing lists every error whose own text is safe to show.
var userFacing = []error{
	ErrSignupFieldsRequired, ErrRoomCodeRequired, ErrUnknownRole, ErrSignupNoUser, ErrInvalidRoomCode,
	ErrLoginFieldsRequired, ErrLoginNoUser, ErrProfileUnavailable, ErrPendingApproval,
	ErrTaskNotFound, ErrNotYourTask, ErrProfileNotFound,
	profile.ErrUsernameTooLong, profile.ErrEmailTooLong, profile.ErrInvalidEmail,
	room.ErrEmptyName, room.ErrNameTooLong,
	task.ErrEmptyTitle, task.ErrNoAssignee, task.ErrTitleTooLong, task.ErrDescriptionTooBig, task.ErrBadDueDate,
	task.ErrInvalidStatus, task.ErrTransitionDenied, task.ErrStatusChanged,
}

// UserError is a failure whose Msg is shown to the person who caused it.
// Err keeps the underlying cause for logs and errors.Is.
type UserError struct {
	Msg string
	Err error
}

func (e *UserError) Error() string { return e.Msg }

func (e *UserError) Unwrap() error { return e.Err }

// userError surfaces the backend's own message for err, or fallback.
func userError(err error, fallback string) error {
	return &UserError{Msg: backend.Message(err, fallback), Err: err}
}

// Toast returns the text a handler shows for err: the UserError message, the
// error's own text when it is a known validation error, or fallback.
// PRE: err is non-nil
func Toast(err error, fallback string) string {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Msg
	}
	for _, s := range userFacing {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return fallback
}
