package gate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tillerworks/tiller/pkg/contracts"
)

// ErrLogBusy is returned when another writer holds the results log lock.
// Appends must serialize; callers retry or report.
var ErrLogBusy = errors.New("gate: results log locked by another writer")

// ResultsLog is the append-only gate_results.json audit trail for one
// phase directory. Prior entries are never rewritten; each append stages
// the grown array and renames it into place atomically.
type ResultsLog struct {
	path string
}

// NewResultsLog creates a log handle for path (conventionally
// <phase>/gate_results.json). The file is created on first append.
func NewResultsLog(path string) *ResultsLog {
	return &ResultsLog{path: path}
}

// Read returns all recorded results, oldest first. A missing file is an
// empty log.
func (l *ResultsLog) Read() ([]contracts.GateResult, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("gate: read results log: %w", err)
	}

	var results []contracts.GateResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("gate: decode results log: %w", err)
	}
	return results, nil
}

// Append adds exactly one result to the log under an exclusive lock.
func (l *ResultsLog) Append(result contracts.GateResult) error {
	unlock, err := l.lock()
	if err != nil {
		return err
	}
	defer unlock()

	results, err := l.Read()
	if err != nil {
		return err
	}
	results = append(results, result)

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("gate: encode results log: %w", err)
	}
	data = append(data, '\n')

	return l.replace(data)
}

// staleLockAge is how old an abandoned lock sidecar must be before a new
// append may reclaim it. A live append holds the lock for milliseconds.
const staleLockAge = 5 * time.Minute

// lock acquires the sidecar lock file exclusively. The lock exists only
// for the duration of one append; a sidecar left behind by a crashed
// writer is reclaimed once it exceeds staleLockAge.
func (l *ResultsLog) lock() (func(), error) {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("gate: mkdir %s: %w", dir, err)
	}

	lockPath := l.path + ".lock"
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			f.Close()
			return func() { os.Remove(lockPath) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("gate: acquire log lock: %w", err)
		}

		info, statErr := os.Stat(lockPath)
		if statErr != nil || time.Since(info.ModTime()) < staleLockAge {
			return nil, ErrLogBusy
		}
		os.Remove(lockPath)
	}
	return nil, ErrLogBusy
}

// replace atomically swaps in the grown log via stage-then-rename.
func (l *ResultsLog) replace(data []byte) error {
	dir := filepath.Dir(l.path)
	tmp, err := os.CreateTemp(dir, ".results-*")
	if err != nil {
		return fmt.Errorf("gate: stage results log: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("gate: stage write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("gate: stage sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("gate: stage close: %w", err)
	}

	if err := os.Rename(tmpName, l.path); err != nil {
		return fmt.Errorf("gate: publish results log: %w", err)
	}
	return nil
}
