// Package manifest reads the small fixed-format commit manifest that
// authorizes gate evaluation: MODE, ALTITUDE, REFERENCES, and STOP
// CONDITIONS. Parsing is strict: a manifest missing a required section
// is a parse failure, and the parsed result is cross-checked against a
// JSON Schema before anything downstream trusts it.
package manifest

import (
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/tillerworks/tiller/pkg/contracts"
)

// SupportedVersions is the manifest format range this parser accepts when
// a VERSION field is present.
const SupportedVersions = "^1"

// Reference keys recognized inside the REFERENCES section.
const (
	refGoal       = "goal"
	refNonGoals   = "non-goals"
	refAcceptance = "acceptance"
	refWorkItem   = "work item"
)

// Parse reads and parses the manifest at path.
func Parse(path string) (contracts.CommitManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return contracts.CommitManifest{}, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	return ParseBytes(data)
}

// ParseBytes parses manifest content already in memory.
func ParseBytes(data []byte) (contracts.CommitManifest, error) {
	var m contracts.CommitManifest
	seen := map[string]bool{}

	lines := strings.Split(string(data), "\n")
	for i := 0; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], " \t")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		switch {
		case strings.HasPrefix(line, "MODE:"):
			seen["MODE"] = true
			mode := strings.TrimSpace(strings.TrimPrefix(line, "MODE:"))
			switch contracts.Mode(mode) {
			case contracts.ModeExplore, contracts.ModeCommit:
				m.Mode = contracts.Mode(mode)
			default:
				return m, fmt.Errorf("manifest: invalid MODE %q (want Explore or Commit)", mode)
			}

		case strings.HasPrefix(line, "ALTITUDE:"):
			seen["ALTITUDE"] = true
			m.Altitude = strings.TrimSpace(strings.TrimPrefix(line, "ALTITUDE:"))

		case strings.HasPrefix(line, "VERSION:"):
			m.Version = strings.TrimSpace(strings.TrimPrefix(line, "VERSION:"))

		case line == "REFERENCES:":
			seen["REFERENCES"] = true
			i = parseReferences(lines, i, &m.References)

		case line == "STOP CONDITIONS:":
			seen["STOP CONDITIONS"] = true
			i = parseStopConditions(lines, i, &m.StopConditions)

		default:
			return m, fmt.Errorf("manifest: unrecognized line %d: %q", i+1, line)
		}
	}

	for _, required := range []string{"MODE", "ALTITUDE", "REFERENCES", "STOP CONDITIONS"} {
		if !seen[required] {
			return m, fmt.Errorf("manifest: missing required section %s", required)
		}
	}

	if err := checkVersion(m.Version); err != nil {
		return m, err
	}
	if err := validateSchema(m); err != nil {
		return m, err
	}
	return m, nil
}

// parseReferences consumes the indented "Key: value" lines following the
// REFERENCES: header and returns the index of the last consumed line.
func parseReferences(lines []string, start int, refs *contracts.References) int {
	i := start
	for i+1 < len(lines) {
		raw := lines[i+1]
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || len(raw) == len(strings.TrimLeft(raw, " \t")) {
			break // blank or unindented line ends the section
		}
		i++

		key, value, found := strings.Cut(trimmed, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case refGoal:
			refs.Goal = value
		case refNonGoals:
			refs.NonGoals = value
		case refAcceptance:
			refs.Acceptance = value
		case refWorkItem:
			refs.WorkItem = value
		}
	}
	return i
}

// parseStopConditions consumes the "- " bullets following the STOP
// CONDITIONS: header.
func parseStopConditions(lines []string, start int, out *[]string) int {
	i := start
	for i+1 < len(lines) {
		trimmed := strings.TrimSpace(lines[i+1])
		if !strings.HasPrefix(trimmed, "- ") {
			break
		}
		i++
		*out = append(*out, strings.TrimSpace(strings.TrimPrefix(trimmed, "- ")))
	}
	return i
}

// checkVersion rejects manifests declaring a format version outside the
// supported range. An absent version is accepted as current.
func checkVersion(version string) error {
	if version == "" {
		return nil
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("manifest: invalid VERSION %q: %w", version, err)
	}
	constraint, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return fmt.Errorf("manifest: bad version constraint: %w", err)
	}
	if !constraint.Check(v) {
		return fmt.Errorf("manifest: VERSION %s outside supported range %s", version, SupportedVersions)
	}
	return nil
}
