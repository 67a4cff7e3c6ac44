// Package workitem validates frozen WORK_ITEM.md artifacts: front matter,
// required section headings, scope lists, and scope-path policy. Malformed
// input is reported as violations, never as a panic or an uncaught error;
// all violations are collected so the operator sees the full picture at
// once.
package workitem

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FrontMatter is the YAML header every work item must carry.
type FrontMatter struct {
	ID       string `yaml:"ID"`
	Title    string `yaml:"Title"`
	Status   string `yaml:"Status"`
	Altitude string `yaml:"Altitude"`
}

// Report is the outcome of validating one work item.
type Report struct {
	OK         bool
	ID         string
	Violations []string
}

// Required section headings, verbatim.
const (
	headObjective  = "## Objective"
	headScope      = "## Scope: File Permissions"
	headPlan       = "## Implementation Plan"
	headGuardrails = "## Execution Guardrails"
	headAcceptance = "## Acceptance Commands"
)

// DefaultDenylist names directory roots no scope path may resolve into:
// version-control metadata, CI configuration, and the governance registry
// root.
var DefaultDenylist = []string{".git", ".github", ".gitlab", ".circleci", "ci", "registry"}

// Validator checks work item artifacts against the schema and scope
// policy.
type Validator struct {
	denylist []string
}

// Option configures a Validator.
type Option func(*Validator)

// WithDenylist replaces the default denylisted roots.
func WithDenylist(roots []string) Option {
	return func(v *Validator) { v.denylist = roots }
}

// New creates a Validator with the default denylist.
func New(opts ...Option) *Validator {
	v := &Validator{denylist: DefaultDenylist}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate reads and validates the work item at path. The returned error
// covers file access only; content problems are violations in the Report.
func (v *Validator) Validate(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("workitem: read %s: %w", path, err)
	}
	return v.ValidateBytes(data), nil
}

// ValidateBytes validates work item content already in memory.
func (v *Validator) ValidateBytes(data []byte) Report {
	var report Report

	fm, body, ok := v.checkFrontMatter(data, &report)
	if !ok {
		// Structural failure: without a parsed header the rest of the
		// checks would only produce noise.
		return report
	}
	report.ID = fm.ID

	scope := v.checkSections(body, &report)
	v.checkScopePolicy(scope, &report)

	report.OK = len(report.Violations) == 0
	return report
}

func (v *Validator) checkFrontMatter(data []byte, report *Report) (FrontMatter, string, bool) {
	content := string(data)
	if !strings.HasPrefix(content, "---\n") {
		report.Violations = append(report.Violations, "front matter: missing opening --- delimiter")
		return FrontMatter{}, "", false
	}
	rest := content[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		report.Violations = append(report.Violations, "front matter: missing closing --- delimiter")
		return FrontMatter{}, "", false
	}

	var fm FrontMatter
	if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
		report.Violations = append(report.Violations, fmt.Sprintf("front matter: invalid YAML: %v", err))
		return FrontMatter{}, "", false
	}

	missing := false
	for _, field := range []struct{ name, value string }{
		{"ID", fm.ID},
		{"Title", fm.Title},
		{"Status", fm.Status},
		{"Altitude", fm.Altitude},
	} {
		if field.value == "" {
			report.Violations = append(report.Violations, "front matter: missing required field "+field.name)
			missing = true
		}
	}
	if missing {
		return FrontMatter{}, "", false
	}

	body := rest[end+len("\n---"):]
	return fm, body, true
}

// checkSections verifies the required headings and list structure, and
// returns every scope path found for the policy check.
func (v *Validator) checkSections(body string, report *Report) []string {
	sections := splitSections(body)

	miss := func(format string, args ...any) {
		report.Violations = append(report.Violations, fmt.Sprintf(format, args...))
	}

	if _, ok := sections[headObjective]; !ok {
		miss("missing section: %s", headObjective)
	}

	var scopePaths []string
	if scopeBody, ok := sections[headScope]; !ok {
		miss("missing section: %s", headScope)
	} else {
		modifiable, hasModifiable := sublist(scopeBody, "MODIFIABLE")
		readOnly, hasReadOnly := sublist(scopeBody, "READ_ONLY")
		switch {
		case !hasModifiable:
			miss("%s: missing MODIFIABLE list", headScope)
		case len(modifiable) == 0:
			miss("%s: MODIFIABLE list must not be empty", headScope)
		}
		if !hasReadOnly {
			miss("%s: missing READ_ONLY list", headScope)
		}
		scopePaths = append(scopePaths, modifiable...)
		scopePaths = append(scopePaths, readOnly...)
	}

	if _, ok := sections[headPlan]; !ok {
		miss("missing section: %s", headPlan)
	}

	if guardBody, ok := sections[headGuardrails]; !ok {
		miss("missing section: %s", headGuardrails)
	} else {
		// Both lists must exist; either may be empty.
		if _, has := sublist(guardBody, "ASK_CONDITIONS"); !has {
			miss("%s: missing ASK_CONDITIONS list", headGuardrails)
		}
		if _, has := sublist(guardBody, "STOP_CONDITIONS"); !has {
			miss("%s: missing STOP_CONDITIONS list", headGuardrails)
		}
	}

	if acceptBody, ok := sections[headAcceptance]; !ok {
		miss("missing section: %s", headAcceptance)
	} else if len(bullets(acceptBody)) == 0 {
		miss("%s: list must not be empty", headAcceptance)
	}

	return scopePaths
}

func (v *Validator) checkScopePolicy(paths []string, report *Report) {
	for _, p := range paths {
		clean := filepath.ToSlash(filepath.Clean(p))
		first, _, _ := strings.Cut(strings.TrimPrefix(clean, "/"), "/")
		if strings.HasPrefix(clean, "..") {
			report.Violations = append(report.Violations,
				fmt.Sprintf("scope path escapes the workspace: %s", p))
			continue
		}
		for _, root := range v.denylist {
			if first == root {
				report.Violations = append(report.Violations,
					fmt.Sprintf("scope path resolves into denylisted directory %s: %s", root, p))
				break
			}
		}
	}
}

// splitSections maps each "## " heading line to its body text.
func splitSections(body string) map[string]string {
	sections := make(map[string]string)
	var current string
	var buf strings.Builder
	flush := func() {
		if current != "" {
			sections[current] = buf.String()
		}
		buf.Reset()
	}
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "## ") {
			flush()
			current = strings.TrimRight(line, " ")
			continue
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	flush()
	return sections
}

// sublist finds a "- NAME:" marker and collects its indented "- " entries.
func sublist(sectionBody, name string) (entries []string, found bool) {
	lines := strings.Split(sectionBody, "\n")
	marker := "- " + name + ":"
	for i, line := range lines {
		if strings.TrimRight(line, " ") != marker {
			continue
		}
		found = true
		for _, sub := range lines[i+1:] {
			trimmed := strings.TrimLeft(sub, " \t")
			indented := len(sub) > len(trimmed)
			if !indented || !strings.HasPrefix(trimmed, "- ") {
				break
			}
			entries = append(entries, strings.TrimSpace(strings.TrimPrefix(trimmed, "- ")))
		}
		return entries, true
	}
	return nil, false
}

// bullets collects top-level "- " entries in a section body.
func bullets(sectionBody string) []string {
	var out []string
	for _, line := range strings.Split(sectionBody, "\n") {
		if strings.HasPrefix(line, "- ") {
			out = append(out, strings.TrimSpace(strings.TrimPrefix(line, "- ")))
		}
	}
	return out
}
