// Package store persists gate baselines and shaping sessions in SQLite.
// Stores migrate their own tables on construction and hold no state
// outside the database, so concurrent CLI invocations coordinate purely
// through the file.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens (creating if needed) the SQLite database at path.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Single writer at a time; the CLI is synchronous per invocation.
	db.SetMaxOpenConns(1)
	return db, nil
}
