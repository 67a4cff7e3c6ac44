package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrBaselineExists is returned when recording a baseline for a work item
// that already has one. Baselines are insert-once; a changed artifact is
// a hash mismatch, never a silent re-record.
var ErrBaselineExists = errors.New("store: baseline already recorded")

// Baseline is the known-good content hash for one work item identity.
type Baseline struct {
	WorkItemID string
	Hash       string
	GateID     string
	RecordedAt string // supplied by the caller, never generated here
}

// BaselineStore records and looks up work item hash baselines.
type BaselineStore struct {
	db *sql.DB
}

// NewBaselineStore creates the store and its table.
func NewBaselineStore(db *sql.DB) (*BaselineStore, error) {
	s := &BaselineStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *BaselineStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS baselines (
		work_item_id TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		gate_id TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	);`
	_, err := s.db.ExecContext(context.Background(), query)
	if err != nil {
		return fmt.Errorf("store: migrate baselines: %w", err)
	}
	return nil
}

// Get returns the recorded baseline for a work item, or ok=false when no
// baseline exists yet.
func (s *BaselineStore) Get(ctx context.Context, workItemID string) (Baseline, bool, error) {
	query := `SELECT work_item_id, hash, gate_id, recorded_at FROM baselines WHERE work_item_id = ?`

	var b Baseline
	err := s.db.QueryRowContext(ctx, query, workItemID).
		Scan(&b.WorkItemID, &b.Hash, &b.GateID, &b.RecordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Baseline{}, false, nil
	}
	if err != nil {
		return Baseline{}, false, fmt.Errorf("store: get baseline %s: %w", workItemID, err)
	}
	return b, true, nil
}

// Record inserts the baseline for a work item. Fails with
// ErrBaselineExists when one is already recorded.
func (s *BaselineStore) Record(ctx context.Context, b Baseline) error {
	if _, exists, err := s.Get(ctx, b.WorkItemID); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("%w: %s", ErrBaselineExists, b.WorkItemID)
	}

	query := `INSERT INTO baselines (work_item_id, hash, gate_id, recorded_at) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, b.WorkItemID, b.Hash, b.GateID, b.RecordedAt); err != nil {
		return fmt.Errorf("store: record baseline %s: %w", b.WorkItemID, err)
	}
	return nil
}
