package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tillerworks/tiller/pkg/contracts"
	"github.com/tillerworks/tiller/pkg/render"
)

func run(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(append([]string{"tiller"}, args...), strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeWorkItem(t *testing.T, dir string) string {
	t.Helper()
	artifact := render.WorkItem(contracts.WorkItemModel{
		Objective:  "ship the widget",
		Scope:      []string{"src/widget.go"},
		Plan:       []string{"write it"},
		Acceptance: []string{"go test passes"},
	})
	path := filepath.Join(dir, "wi.md")
	require.NoError(t, os.WriteFile(path, artifact.Content, 0o644))
	return path
}

func writeManifest(t *testing.T, dir, workItemPath, mode string) string {
	t.Helper()
	content := fmt.Sprintf(`MODE: %s
ALTITUDE: L3
REFERENCES:
  Goal: docs/goal.md
  Non-Goals: docs/non_goals.md
  Acceptance: docs/acceptance.md
  Work Item: %s
STOP CONDITIONS:
  - if the diff touches ci config, stop
`, mode, workItemPath)
	path := filepath.Join(dir, "manifest.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRun_NoArgsPrintsUsage(t *testing.T) {
	code, _, stderr := run(t, "")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "USAGE")
}

func TestRun_UnknownCommand(t *testing.T) {
	code, _, stderr := run(t, "", "frobnicate")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "Unknown command")
}

func TestRun_Help(t *testing.T) {
	code, stdout, _ := run(t, "", "help")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "tiller <command>")
}

func TestValidateWorkItemCmd(t *testing.T) {
	dir := t.TempDir()
	path := writeWorkItem(t, dir)

	code, stdout, _ := run(t, "", "validate-work-item", path)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "valid:")

	code, _, stderr := run(t, "", "validate-work-item", filepath.Join(dir, "absent.md"))
	assert.Equal(t, exitNotFound, code)
	assert.Contains(t, stderr, "not found")
}

func TestValidateWorkItemCmd_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.md")
	require.NoError(t, os.WriteFile(path, []byte("no front matter here\n"), 0o644))

	code, stdout, _ := run(t, "", "validate-work-item", path)
	assert.Equal(t, exitFailed, code)
	assert.Contains(t, stdout, "violation:")
}

func TestGateCmd_CommitPassesThenExploreFails(t *testing.T) {
	dir := t.TempDir()
	workItem := writeWorkItem(t, dir)
	dbPath := filepath.Join(dir, "state.db")
	resultsPath := filepath.Join(dir, "gate_results.json")

	commit := writeManifest(t, dir, workItem, "Commit")
	code, stdout, _ := run(t, "", "gate",
		"-db", dbPath, "-results", resultsPath, "gate_entry", commit)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "PASS gate_entry")

	explore := writeManifest(t, dir, workItem, "Explore")
	code, stdout, _ = run(t, "", "gate",
		"-db", dbPath, "-results", resultsPath, "gate_entry", explore)
	assert.Equal(t, exitFailed, code)
	assert.Contains(t, stdout, "FAIL gate_entry: not committed")

	// Both attempts are on the record.
	data, err := os.ReadFile(resultsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"passed"`)
	assert.Contains(t, string(data), `"failed"`)
}

func TestGateCmd_RoleWithoutEnforceIsRejected(t *testing.T) {
	dir := t.TempDir()
	workItem := writeWorkItem(t, dir)
	manifest := writeManifest(t, dir, workItem, "Commit")

	code, _, stderr := run(t, "", "gate",
		"-db", filepath.Join(dir, "state.db"), "-role", "auditor", "gate_entry", manifest)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "lacks capability enforce")
}

func TestGateCmd_InfrastructureFailureIsNotUsageError(t *testing.T) {
	dir := t.TempDir()
	workItem := writeWorkItem(t, dir)
	manifest := writeManifest(t, dir, workItem, "Commit")

	// A database path in a directory that does not exist fails at store
	// init, not at flag parsing.
	badDB := filepath.Join(dir, "no_such_dir", "state.db")
	code, _, stderr := run(t, "", "gate", "-db", badDB, "gate_entry", manifest)
	assert.Equal(t, exitFailed, code)
	assert.Contains(t, stderr, "Error")
}

func TestGateCmd_MissingManifest(t *testing.T) {
	dir := t.TempDir()
	code, _, stderr := run(t, "", "gate",
		"-db", filepath.Join(dir, "state.db"), "gate_entry", filepath.Join(dir, "absent.txt"))
	assert.Equal(t, exitNotFound, code)
	assert.Contains(t, stderr, "not found")
}

func TestShapeCmd_FreezeWritesArtifact(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "state.db")

	input := strings.Join([]string{
		"objective: ship the widget",
		"scope: src/widget.go",
		"plan: write it",
		"acceptance: go test passes",
		"/reveal",
		"/freeze",
	}, "\n") + "\n"

	code, stdout, _ := run(t, input, "shape",
		"-session", "sess-1", "-dir", dir, "-db", dbPath)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "frozen: ")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var found bool
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".md") {
			found = true
		}
	}
	assert.True(t, found, "expected a frozen artifact in %s", dir)
}

func TestShapeCmd_IngestAfterFreezeStartsNothing(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "state.db")

	input := strings.Join([]string{
		"objective: ship the widget",
		"scope: src/widget.go",
		"plan: write it",
		"acceptance: go test passes",
		"/reveal",
		"/freeze",
	}, "\n") + "\n"
	code, _, _ := run(t, input, "shape", "-session", "sess-2", "-dir", dir, "-db", dbPath)
	require.Equal(t, exitOK, code)

	// The persisted session stays frozen; further guidance is rejected.
	code, _, stderr := run(t, "objective: something else\n/quit\n", "shape",
		"-session", "sess-2", "-dir", dir, "-db", dbPath)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stderr, "rejected")
}

func TestLeaseCmd_AcquireAndRelease(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "state.db")

	code, stdout, _ := run(t, "", "lease", "acquire", "-owner", "orc-1", "-db", dbPath)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "acquired orchestrator")

	code, _, stderr := run(t, "", "lease", "acquire", "-owner", "orc-2", "-db", dbPath)
	assert.Equal(t, exitFailed, code)
	assert.Contains(t, stderr, "held by another owner")

	code, _, _ = run(t, "", "lease", "release", "-owner", "orc-1", "-db", dbPath)
	assert.Equal(t, exitOK, code)

	code, _, _ = run(t, "", "lease", "acquire", "-owner", "orc-2", "-db", dbPath)
	assert.Equal(t, exitOK, code)
}

func TestEventsCmd_FetchAfterGate(t *testing.T) {
	dir := t.TempDir()
	workItem := writeWorkItem(t, dir)
	dbPath := filepath.Join(dir, "state.db")
	manifest := writeManifest(t, dir, workItem, "Commit")

	code, _, _ := run(t, "", "gate",
		"-db", dbPath, "-results", filepath.Join(dir, "gate_results.json"), "gate_entry", manifest)
	require.Equal(t, exitOK, code)

	code, stdout, _ := run(t, "", "events", "-consumer", "auditor", "-db", dbPath)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "GATE_PASSED")

	// Offset committed: a second fetch is empty.
	code, stdout, _ = run(t, "", "events", "-consumer", "auditor", "-db", dbPath)
	assert.Equal(t, exitOK, code)
	assert.Empty(t, strings.TrimSpace(stdout))
}
