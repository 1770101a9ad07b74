package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Status constants for outbox entry lifecycle.
const (
	StatusPending  = "pending"
	StatusRetrying = "retrying"
	StatusDone     = "done"
	StatusFailed   = "failed"
)

// Action type constants for the follow-up work the app defers.
const (
	ActionTypeDeleteOrphanAccount = "delete_orphan_account"
	ActionTypeApprovalEmail       = "approval_email"
)

// DefaultMaxAttempts applies when an entry does not set its own limit.
const DefaultMaxAttempts = 5

// Domain errors.
var (
	ErrEmptyActionType = errors.New("action type is required")
	ErrEmptyPayload    = errors.New("payload is required")
	ErrUnknownAction   = errors.New("unknown outbox action type")
)

// Entry is one deferred side effect waiting for the background worker.
type Entry struct {
	ID              string
	ActionType      string
	Payload         string // JSON, decoded by the executor for ActionType
	Status          string
	Attempts        int
	MaxAttempts     int
	LastAttemptedAt time.Time
	NextAttemptAt   time.Time // the worker skips the entry until then
	CreatedAt       time.Time
	ExternalID      string // e.g. the deleted auth user id, or the email provider message id
	ErrorMessage    string
}

// OrphanAccount is the payload of a delete_orphan_account entry: an auth
// account whose users_info row was never written.
type OrphanAccount struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// ApprovalEmail is the payload of an approval_email entry.
type ApprovalEmail struct {
	To       string `json:"to"`
	Username string `json:"username"`
}

// NewEntry builds a pending entry carrying payload encoded as JSON.
// PRE: actionType is a known action type
// POST: Returns a pending entry with Attempts 0, due at now
func NewEntry(id, actionType string, payload any, now time.Time) (Entry, error) {
	switch actionType {
	case ActionTypeDeleteOrphanAccount, ActionTypeApprovalEmail:
	default:
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownAction, actionType)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Entry{}, fmt.Errorf("encode %s payload: %w", actionType, err)
	}
	return Entry{
		ID:          id,
		ActionType:  actionType,
		Payload:     string(raw),
		Status:      StatusPending,
		MaxAttempts:   DefaultMaxAttempts,
		NextAttemptAt: now,
		CreatedAt:     now,
	}, nil
}

// Decode unmarshals the entry payload into dst.
func (e *Entry) Decode(dst any) error {
	if err := json.Unmarshal([]byte(e.Payload), dst); err != nil {
		return fmt.Errorf("decode %s payload for %s: %w", e.ActionType, e.ID, err)
	}
	return nil
}

// Validate checks that the Entry has valid data.
// PRE: Entry struct is populated
// POST: Returns nil if valid, error otherwise; MaxAttempts defaults when unset
func (e *Entry) Validate() error {
	if e.ActionType == "" {
		return ErrEmptyActionType
	}
	if e.Payload == "" {
		return ErrEmptyPayload
	}
	if e.CreatedAt.IsZero() {
		return errors.New("created_at must be set")
	}
	if e.MaxAttempts <= 0 {
		e.MaxAttempts = DefaultMaxAttempts
	}
	return nil
}

// MarkAttempt records an attempt starting at now.
// POST: Attempts incremented, status is retrying
func (e *Entry) MarkAttempt(now time.Time) {
	e.Attempts++
	e.LastAttemptedAt = now
	e.Status = StatusRetrying
}

// MarkSuccess closes the entry.
func (e *Entry) MarkSuccess(externalID string) {
	e.Status = StatusDone
	e.ExternalID = externalID
	e.ErrorMessage = ""
}

// MarkFailed records err. The entry only becomes failed once attempts are exhausted.
func (e *Entry) MarkFailed(err error) {
	e.ErrorMessage = err.Error()
	if e.Attempts >= e.MaxAttempts {
		e.Status = StatusFailed
	}
}

// NextRetryDelay is baseDelay * 2^attempts, capped at maxDelay.
func (e *Entry) NextRetryDelay(baseDelay, maxDelay time.Duration) time.Duration {
	if e.Attempts >= 30 {
		return maxDelay
	}
	delay := baseDelay * (1 << e.Attempts)
	if delay > maxDelay || delay <= 0 {
		return maxDelay
	}
	return delay
}

// ScheduleRetry pushes NextAttemptAt back by NextRetryDelay from the last attempt.
// PRE: MarkAttempt has been called
func (e *Entry) ScheduleRetry(baseDelay, maxDelay time.Duration) {
	e.NextAttemptAt = e.LastAttemptedAt.Add(e.NextRetryDelay(baseDelay, maxDelay))
}

// IsDue reports whether the worker should attempt the entry at now.
func (e *Entry) IsDue(now time.Time) bool {
	switch e.Status {
	case StatusPending, StatusRetrying:
		return !now.Before(e.NextAttemptAt)
	}
	return false
}
