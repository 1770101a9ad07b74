package session

import (
	"errors"
	"time"
)

// Domain errors
var (
	ErrNotFound = errors.New("session not found")
	ErrExpired  = errors.New("session expired")
)

// Session is a signed-in browser. The cookie carries only ID; the backend
// tokens never leave the server.
type Session struct {
	ID           string
	UserID       string
	Email        string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time // when AccessToken stops being accepted
	CreatedAt    time.Time
	ExpiresAt    time.Time // absolute end of the local session
}

// Validate checks the session before it is stored.
// PRE: Session struct is populated
// POST: Returns nil if valid, error otherwise
func (s *Session) Validate() error {
	if s.ID == "" {
		return errors.New("session id is required")
	}
	if s.UserID == "" {
		return errors.New("session user is required")
	}
	if s.AccessToken == "" {
		return errors.New("session access token is required")
	}
	if !s.ExpiresAt.After(s.CreatedAt) {
		return errors.New("session must expire after it is created")
	}
	return nil
}

// IsExpired reports whether the local session has ended at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// TokenStale reports whether the access token should be refreshed before use.
// A zero TokenExpiry is treated as stale.
func (s *Session) TokenStale(now time.Time, leeway time.Duration) bool {
	return !now.Add(leeway).Before(s.TokenExpiry)
}

// Rotate stores a refreshed token pair.
func (s *Session) Rotate(access, refresh string, expiry time.Time) {
	s.AccessToken = access
	if refresh != "" {
		s.RefreshToken = refresh
	}
	s.TokenExpiry = expiry
}
