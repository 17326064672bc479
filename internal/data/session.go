package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gotd/td/session"

	_ "modernc.org/sqlite"
)

// SessionStore persists MTProto sessions in sqlite, keyed by session name.
// It implements gotd's session.Storage.
type SessionStore struct {
	db   *sql.DB
	name string
}

var _ session.Storage = (*SessionStore)(nil)

// NewSessionStore opens (or creates) the session database
func NewSessionStore(dbPath, name string) (*SessionStore, error) {
	// Ensure directory exists; the session grants full account access
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS telegram_sessions (
			name TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			user_id INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	// Add user_id column (if not exists) - for databases created before it
	_, _ = db.Exec(`ALTER TABLE telegram_sessions ADD COLUMN user_id INTEGER NOT NULL DEFAULT 0`)

	return &SessionStore{db: db, name: name}, nil
}

// LoadSession returns the stored session or session.ErrNotFound
func (s *SessionStore) LoadSession(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM telegram_sessions WHERE name = ?
	`, s.name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && len(data) == 0) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return data, nil
}

// StoreSession saves the session, keeping the original creation time
func (s *SessionStore) StoreSession(ctx context.Context, data []byte) error {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO telegram_sessions (name, data, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, s.name, data, now, now)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// SetUserID records which account the session belongs to
func (s *SessionStore) SetUserID(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE telegram_sessions SET user_id = ? WHERE name = ?
	`, userID, s.name)
	if err != nil {
		return fmt.Errorf("failed to set session user: %w", err)
	}
	return nil
}

// UserID returns the account recorded for the session, 0 when unknown
func (s *SessionStore) UserID(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM telegram_sessions WHERE name = ?
	`, s.name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query session user: %w", err)
	}
	return id, nil
}

// Delete removes the stored session (logout)
func (s *SessionStore) Delete(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM telegram_sessions WHERE name = ?`, s.name); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close closes the database
func (s *SessionStore) Close() error {
	return s.db.Close()
}
