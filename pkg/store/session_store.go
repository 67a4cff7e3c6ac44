package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tillerworks/tiller/pkg/shaping"
)

// ErrSessionNotFound is returned when loading an unknown session ID.
var ErrSessionNotFound = errors.New("store: session not found")

// SessionStore persists shaping session snapshots between discrete CLI
// invocations. Callers never share in-process state; the snapshot in the
// database is the session.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore creates the store and its table.
func NewSessionStore(db *sql.DB) (*SessionStore, error) {
	s := &SessionStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SessionStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		snapshot JSON NOT NULL
	);`
	_, err := s.db.ExecContext(context.Background(), query)
	if err != nil {
		return fmt.Errorf("store: migrate sessions: %w", err)
	}
	return nil
}

// Save upserts the session snapshot.
func (s *SessionStore) Save(ctx context.Context, session *shaping.Session) error {
	snap := session.Snapshot()
	blob, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("store: marshal session %s: %w", snap.ID, err)
	}

	query := `
	INSERT INTO sessions (id, state, snapshot) VALUES (?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET state = excluded.state, snapshot = excluded.snapshot`
	if _, err := s.db.ExecContext(ctx, query, snap.ID, string(snap.State), blob); err != nil {
		return fmt.Errorf("store: save session %s: %w", snap.ID, err)
	}
	return nil
}

// Load reconstructs a session from its stored snapshot.
func (s *SessionStore) Load(ctx context.Context, id string) (*shaping.Session, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM sessions WHERE id = ?`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load session %s: %w", id, err)
	}

	var snap shaping.Snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		return nil, fmt.Errorf("store: decode session %s: %w", id, err)
	}
	return shaping.FromSnapshot(snap), nil
}

// Delete removes a session. Deleting an unknown ID is not an error.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete session %s: %w", id, err)
	}
	return nil
}
