// Package safewrite resolves collision-free artifact paths and performs
// staged, atomic, non-overwriting file writes. Existing files are never
// overwritten and never truncated in place; a crash mid-write never leaves
// a partially written artifact visible to readers.
package safewrite

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxProbes bounds the numeric-suffix search before giving up.
const maxProbes = 1000

// ErrNoFreePath is returned when suffix probing exhausts maxProbes slots.
var ErrNoFreePath = errors.New("safewrite: no free path available")

// Slug derives a filesystem-safe name from an artifact ID or title:
// lowercase, runs of non-alphanumerics collapsed to single underscores,
// trimmed at the edges.
func Slug(idOrTitle string) string {
	var b strings.Builder
	lastUnderscore := true // suppress a leading underscore
	for _, r := range strings.ToLower(idOrTitle) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}

// ResolvePath returns a path under dir that does not yet exist, derived
// from idOrTitle plus ext (e.g. ".md"). On collision an incrementing
// numeric suffix (_1, _2, ...) is appended until a free name is found.
func ResolvePath(dir, idOrTitle, ext string) (string, error) {
	slug := Slug(idOrTitle)
	if slug == "" {
		slug = "artifact"
	}

	candidate := filepath.Join(dir, slug+ext)
	if _, err := os.Stat(candidate); os.IsNotExist(err) {
		return candidate, nil
	}

	for i := 1; i <= maxProbes; i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", slug, i, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoFreePath, slug)
}

// Write stages content to a temporary file in the target directory, syncs
// it, then atomically renames it into place. The target must not already
// exist.
func Write(path string, content []byte) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("safewrite: refusing to overwrite %s", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("safewrite: stat %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("safewrite: mkdir %s: %w", dir, err)
	}

	// Stage in the same directory so the rename cannot cross filesystems.
	tmp, err := os.CreateTemp(dir, ".staged-*")
	if err != nil {
		return fmt.Errorf("safewrite: stage: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after successful rename

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("safewrite: stage write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("safewrite: stage sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("safewrite: stage close: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("safewrite: publish %s: %w", path, err)
	}
	return nil
}

// ResolveAndWrite resolves a collision-free path for idOrTitle under dir
// and writes content there, returning the final path.
func ResolveAndWrite(dir, idOrTitle, ext string, content []byte) (string, error) {
	path, err := ResolvePath(dir, idOrTitle, ext)
	if err != nil {
		return "", err
	}
	if err := Write(path, content); err != nil {
		return "", err
	}
	return path, nil
}
