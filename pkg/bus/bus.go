// Package bus is the append-only event log that replaces the shared
// drop-folder convention: a defined message schema, strictly increasing
// sequence numbers, and per-consumer read offsets instead of directory
// grepping. Producers append; consumers fetch from their own offset and
// commit what they have handled.
package bus

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tillerworks/tiller/pkg/contracts"
)

// Log is a SQLite-backed event log with per-consumer offsets.
type Log struct {
	db *sql.DB
}

// NewLog creates the log and its tables.
func NewLog(db *sql.DB) (*Log, error) {
	l := &Log{db: db}
	query := `
	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		payload JSON NOT NULL,
		published_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS offsets (
		consumer TEXT PRIMARY KEY,
		seq INTEGER NOT NULL
	);`
	if _, err := l.db.ExecContext(context.Background(), query); err != nil {
		return nil, fmt.Errorf("bus: migrate: %w", err)
	}
	return l, nil
}

// Publish appends one event and returns it with its assigned sequence
// number. publishedAt is supplied by the caller.
func (l *Log) Publish(ctx context.Context, kind contracts.EventKind, payload map[string]any, publishedAt string) (contracts.Event, error) {
	blob, err := json.Marshal(payload)
	if err != nil {
		return contracts.Event{}, fmt.Errorf("bus: marshal payload: %w", err)
	}

	res, err := l.db.ExecContext(ctx,
		`INSERT INTO events (kind, payload, published_at) VALUES (?, ?, ?)`,
		string(kind), blob, publishedAt)
	if err != nil {
		return contracts.Event{}, fmt.Errorf("bus: publish %s: %w", kind, err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return contracts.Event{}, fmt.Errorf("bus: publish %s: %w", kind, err)
	}

	return contracts.Event{Seq: seq, Kind: kind, Payload: payload, PublishedAt: publishedAt}, nil
}

// Fetch returns up to limit events past the consumer's committed offset,
// oldest first. A consumer that has never committed starts at the
// beginning of the log.
func (l *Log) Fetch(ctx context.Context, consumer string, limit int) ([]contracts.Event, error) {
	offset, err := l.committed(ctx, consumer)
	if err != nil {
		return nil, err
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT seq, kind, payload, published_at FROM events WHERE seq > ? ORDER BY seq LIMIT ?`,
		offset, limit)
	if err != nil {
		return nil, fmt.Errorf("bus: fetch for %s: %w", consumer, err)
	}
	defer rows.Close()

	var events []contracts.Event
	for rows.Next() {
		var ev contracts.Event
		var kind string
		var blob []byte
		if err := rows.Scan(&ev.Seq, &kind, &blob, &ev.PublishedAt); err != nil {
			return nil, fmt.Errorf("bus: scan event: %w", err)
		}
		ev.Kind = contracts.EventKind(kind)
		if len(blob) > 0 {
			if err := json.Unmarshal(blob, &ev.Payload); err != nil {
				return nil, fmt.Errorf("bus: decode event %d: %w", ev.Seq, err)
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Commit advances the consumer's offset to seq. Offsets only move
// forward; committing an older sequence is rejected.
func (l *Log) Commit(ctx context.Context, consumer string, seq int64) error {
	current, err := l.committed(ctx, consumer)
	if err != nil {
		return err
	}
	if seq < current {
		return fmt.Errorf("bus: offset for %s moves backwards (%d < %d)", consumer, seq, current)
	}

	query := `
	INSERT INTO offsets (consumer, seq) VALUES (?, ?)
	ON CONFLICT(consumer) DO UPDATE SET seq = excluded.seq`
	if _, err := l.db.ExecContext(ctx, query, consumer, seq); err != nil {
		return fmt.Errorf("bus: commit offset for %s: %w", consumer, err)
	}
	return nil
}

func (l *Log) committed(ctx context.Context, consumer string) (int64, error) {
	var seq int64
	err := l.db.QueryRowContext(ctx, `SELECT seq FROM offsets WHERE consumer = ?`, consumer).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("bus: offset for %s: %w", consumer, err)
	}
	return seq, nil
}
