//go:build property
// +build property

// Package safewrite_test contains property-based tests for slug stability
// and collision-free writes.
package safewrite_test

import (
	"os"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/tillerworks/tiller/pkg/safewrite"
)

// TestSlugIdempotency verifies slugging is idempotent.
// Property: Slug(Slug(s)) == Slug(s)
func TestSlugIdempotency(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("Slug is idempotent", prop.ForAll(
		func(s string) bool {
			once := safewrite.Slug(s)
			return safewrite.Slug(once) == once
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

// TestWriteNeverOverwrites verifies repeated writes under the same title
// each land on a distinct path and earlier content survives.
func TestWriteNeverOverwrites(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("Colliding writes never clobber earlier files", prop.ForAll(
		func(title string, count int) bool {
			if safewrite.Slug(title) == "" {
				return true // Nothing to name a file after
			}
			dir := t.TempDir()
			n := 2 + count%4

			written := map[string]string{}
			for i := 0; i < n; i++ {
				content := []byte{byte('a' + i)}
				path, err := safewrite.ResolveAndWrite(dir, title, ".md", content)
				if err != nil {
					return false
				}
				if _, exists := written[path]; exists {
					return false // Resolved to an occupied path
				}
				written[path] = string(content)
			}

			for path, want := range written {
				got, err := os.ReadFile(path)
				if err != nil || string(got) != want {
					return false
				}
			}
			return true
		},
		gen.AlphaString(),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}
