// Package lease provides the single-active-orchestrator record: an
// explicit lease with an owner identity, a caller-supplied acquisition
// timestamp, and an explicit release operation. It replaces the ambient
// "one mutable JSON flag file" convention with a record that can be
// inspected, renewed, and audited.
package lease

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrHeld is returned when another owner holds a live lease.
var ErrHeld = errors.New("lease: held by another owner")

// ErrNotOwner is returned when renewing or releasing a lease the caller
// does not hold.
var ErrNotOwner = errors.New("lease: not the owner")

// Record is the current lease state for one named resource.
type Record struct {
	Name       string
	Owner      string
	AcquiredAt time.Time
	ExpiresAt  time.Time
	Released   bool
}

// Store manages leases in SQLite. All timestamps are supplied by the
// caller; the store never reads a clock.
type Store struct {
	db *sql.DB
}

// NewStore creates the store and its table.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	query := `
	CREATE TABLE IF NOT EXISTS leases (
		name TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		acquired_at TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		released INTEGER NOT NULL DEFAULT 0
	);`
	if _, err := s.db.ExecContext(context.Background(), query); err != nil {
		return nil, fmt.Errorf("lease: migrate: %w", err)
	}
	return s, nil
}

// Acquire takes the named lease for owner. It succeeds when the lease is
// unheld, expired, released, or already held by the same owner (renewal
// by re-acquisition). now and ttl come from the caller.
func (s *Store) Acquire(ctx context.Context, name, owner string, now time.Time, ttl time.Duration) (Record, error) {
	current, found, err := s.Get(ctx, name)
	if err != nil {
		return Record{}, err
	}
	if found && !current.Released && current.Owner != owner && current.ExpiresAt.After(now) {
		return current, fmt.Errorf("%w: %s until %s", ErrHeld, current.Owner, current.ExpiresAt.Format(time.RFC3339))
	}

	rec := Record{
		Name:       name,
		Owner:      owner,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}
	query := `
	INSERT INTO leases (name, owner, acquired_at, expires_at, released) VALUES (?, ?, ?, ?, 0)
	ON CONFLICT(name) DO UPDATE SET
		owner = excluded.owner,
		acquired_at = excluded.acquired_at,
		expires_at = excluded.expires_at,
		released = 0`
	_, err = s.db.ExecContext(ctx, query,
		rec.Name, rec.Owner, rec.AcquiredAt.Format(time.RFC3339), rec.ExpiresAt.Format(time.RFC3339))
	if err != nil {
		return Record{}, fmt.Errorf("lease: acquire %s: %w", name, err)
	}
	return rec, nil
}

// Renew extends the expiry of a lease the owner already holds.
func (s *Store) Renew(ctx context.Context, name, owner string, now time.Time, ttl time.Duration) (Record, error) {
	current, found, err := s.Get(ctx, name)
	if err != nil {
		return Record{}, err
	}
	if !found || current.Released || current.Owner != owner {
		return Record{}, fmt.Errorf("%w: %s", ErrNotOwner, name)
	}
	return s.Acquire(ctx, name, owner, now, ttl)
}

// Release explicitly gives up the lease. Only the owner may release.
func (s *Store) Release(ctx context.Context, name, owner string) error {
	current, found, err := s.Get(ctx, name)
	if err != nil {
		return err
	}
	if !found || current.Released || current.Owner != owner {
		return fmt.Errorf("%w: %s", ErrNotOwner, name)
	}

	if _, err := s.db.ExecContext(ctx, `UPDATE leases SET released = 1 WHERE name = ?`, name); err != nil {
		return fmt.Errorf("lease: release %s: %w", name, err)
	}
	return nil
}

// Get returns the current lease record for name.
func (s *Store) Get(ctx context.Context, name string) (Record, bool, error) {
	var rec Record
	var acquiredAt, expiresAt string
	var released int

	query := `SELECT name, owner, acquired_at, expires_at, released FROM leases WHERE name = ?`
	err := s.db.QueryRowContext(ctx, query, name).
		Scan(&rec.Name, &rec.Owner, &acquiredAt, &expiresAt, &released)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("lease: get %s: %w", name, err)
	}

	if rec.AcquiredAt, err = time.Parse(time.RFC3339, acquiredAt); err != nil {
		return Record{}, false, fmt.Errorf("lease: corrupt acquired_at for %s: %w", name, err)
	}
	if rec.ExpiresAt, err = time.Parse(time.RFC3339, expiresAt); err != nil {
		return Record{}, false, fmt.Errorf("lease: corrupt expires_at for %s: %w", name, err)
	}
	rec.Released = released != 0
	return rec, true, nil
}
