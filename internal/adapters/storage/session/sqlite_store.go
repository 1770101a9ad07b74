package session

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"taskroom/internal/adapters/storage"
	domain "taskroom/internal/domain/session"
)

// dateLayout is fixed width so stored timestamps compare correctly as text.
const dateLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using SQLite. Session ids are stored hashed so
// a copy of the database cannot be replayed as cookies.
type SQLiteStore struct {
	db  storage.SQLDB
	now func() time.Time
}

// NewSQLiteStore creates a new session store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

func hashID(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}

// Save inserts or replaces a session.
// PRE: s has been validated
// POST: Session is persisted under the hash of its id
func (s *SQLiteStore) Save(ctx context.Context, sess domain.Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	tokenExpiry := ""
	if !sess.TokenExpiry.IsZero() {
		tokenExpiry = sess.TokenExpiry.UTC().Format(dateLayout)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session (id, user_id, email, access_token, refresh_token, token_expiry, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   user_id=excluded.user_id, email=excluded.email, access_token=excluded.access_token,
		   refresh_token=excluded.refresh_token, token_expiry=excluded.token_expiry,
		   expires_at=excluded.expires_at`,
		hashID(sess.ID), sess.UserID, sess.Email, sess.AccessToken, sess.RefreshToken, tokenExpiry,
		sess.CreatedAt.UTC().Format(dateLayout), sess.ExpiresAt.UTC().Format(dateLayout))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Get retrieves a live session by id.
// PRE: id is non-empty
// POST: Returns the session with ID set to id, or ErrNotFound / ErrExpired
func (s *SQLiteStore) Get(ctx context.Context, id string) (domain.Session, error) {
	var sess domain.Session
	var tokenExpiry, createdAt, expiresAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, email, access_token, refresh_token, token_expiry, created_at, expires_at
		 FROM session WHERE id = ?`, hashID(id)).
		Scan(&sess.UserID, &sess.Email, &sess.AccessToken, &sess.RefreshToken, &tokenExpiry, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	sess.ID = id
	sess.CreatedAt, _ = time.Parse(dateLayout, createdAt)
	sess.ExpiresAt, _ = time.Parse(dateLayout, expiresAt)
	if tokenExpiry != "" {
		sess.TokenExpiry, _ = time.Parse(dateLayout, tokenExpiry)
	}
	if sess.IsExpired(s.now()) {
		return domain.Session{}, domain.ErrExpired
	}
	return sess, nil
}

// Delete removes a session.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE id = ?`, hashID(id)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes every session that ended before now.
func (s *SQLiteStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE expires_at <= ?`, now.UTC().Format(dateLayout))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
