package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// User is the auth account as the backend reports it.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at,omitzero"`
}

// Session is an issued token pair.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         *User  `json:"user"`
}

// Expiry returns when the access token stops being accepted. The JWT exp
// claim wins over the expires_at field when both are present.
func (s *Session) Expiry() time.Time {
	if exp, err := TokenExpiry(s.AccessToken); err == nil {
		return exp
	}
	if s.ExpiresAt > 0 {
		return time.Unix(s.ExpiresAt, 0)
	}
	return time.Time{}
}

// SignUp creates an auth account. Depending on the project's confirmation
// settings the backend answers with a session or with the bare user; session
// is nil in the second case.
// POST: On success user is non-nil unless the backend returned an empty body
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) (user *User, session *Session, err error) {
	body := map[string]any{"email": email, "password": password}
	if len(metadata) > 0 {
		body["data"] = metadata
	}
	resp, err := c.do(ctx, request{method: http.MethodPost, path: "/auth/v1/signup", body: body, bearer: c.anonKey})
	if err != nil {
		return nil, nil, fmt.Errorf("sign up: %w", err)
	}

	var raw struct {
		Session
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if len(resp.body) > 0 {
		if err := json.Unmarshal(resp.body, &raw); err != nil {
			return nil, nil, fmt.Errorf("sign up: decode response: %w", err)
		}
	}
	switch {
	case raw.AccessToken != "" && raw.User != nil:
		s := raw.Session
		return s.User, &s, nil
	case raw.User != nil:
		return raw.User, nil, nil
	case raw.ID != "":
		return &User{ID: raw.ID, Email: raw.Email}, nil, nil
	}
	return nil, nil, nil
}

// SignInWithPassword exchanges credentials for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	return c.token(ctx, "password", map[string]any{"email": email, "password": password})
}

// RefreshSession exchanges a refresh token for a new session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	return c.token(ctx, "refresh_token", map[string]any{"refresh_token": refreshToken})
}

func (c *Client) token(ctx context.Context, grant string, body map[string]any) (*Session, error) {
	resp, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {grant}},
		body:   body,
		bearer: c.anonKey,
	})
	if err != nil {
		return nil, fmt.Errorf("token (%s): %w", grant, err)
	}
	var s Session
	if err := json.Unmarshal(resp.body, &s); err != nil {
		return nil, fmt.Errorf("token (%s): decode response: %w", grant, err)
	}
	return &s, nil
}

// GetUser returns the user the client's access token belongs to.
// PRE: the client carries an access token (see WithAccessToken)
func (c *Client) GetUser(ctx context.Context) (*User, error) {
	if c.accessToken == "" {
		return nil, ErrNoSession
	}
	resp, err := c.do(ctx, request{method: http.MethodGet, path: "/auth/v1/user"})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	var u User
	if err := json.Unmarshal(resp.body, &u); err != nil {
		return nil, fmt.Errorf("get user: decode response: %w", err)
	}
	return &u, nil
}

// SignOut revokes the client's session on the backend.
func (c *Client) SignOut(ctx context.Context) error {
	if c.accessToken == "" {
		return ErrNoSession
	}
	if _, err := c.do(ctx, request{method: http.MethodPost, path: "/auth/v1/logout"}); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// AdminDeleteUser removes an auth account using the service-role key.
// POST: Returns ErrAdminKeyMissing without calling out when no key is configured
func (c *Client) AdminDeleteUser(ctx context.Context, userID string) error {
	if c.serviceKey == "" {
		return ErrAdminKeyMissing
	}
	_, err := c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/auth/v1/admin/users/" + url.PathEscape(userID),
		bearer: c.serviceKey,
		useKey: c.serviceKey,
	})
	if err != nil {
		return fmt.Errorf("delete user %s: %w", userID, err)
	}
	return nil
}
