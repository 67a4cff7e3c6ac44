// Package render turns shaping models into canonical artifact text. The
// mapping is pure: fixed section ordering, fixed heading text, lists in
// insertion order, and no timestamps, UUIDs, or other non-deterministic
// tokens. Rendering an unchanged model twice yields byte-identical output,
// which downstream hash checks depend on.
package render

import (
	"fmt"
	"strings"

	"github.com/tillerworks/tiller/pkg/contracts"
	"github.com/tillerworks/tiller/pkg/safewrite"
)

// StatusFrozen is the only status this renderer emits; artifacts are
// rendered at freeze time.
const StatusFrozen = "Frozen"

// Artifact is a rendered document together with the identity derived for
// it. ID and Title are deterministic functions of the model content.
type Artifact struct {
	ID      string
	Title   string
	Content []byte
}

// WorkItem renders the tactical (L3) document.
func WorkItem(m contracts.WorkItemModel) Artifact {
	title := deriveTitle(m.Objective)
	id := "WI-" + safewrite.Slug(title)

	var b strings.Builder
	frontMatter(&b, id, title, "L3")

	heading(&b, "Objective")
	b.WriteString(m.Objective)
	b.WriteString("\n")

	heading(&b, "Scope: File Permissions")
	b.WriteString("- MODIFIABLE:\n")
	for _, p := range m.Scope {
		fmt.Fprintf(&b, "  - %s\n", p)
	}
	b.WriteString("- READ_ONLY:\n")

	heading(&b, "Implementation Plan")
	for i, step := range m.Plan {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}

	heading(&b, "Execution Guardrails")
	b.WriteString("- ASK_CONDITIONS:\n")
	b.WriteString("- STOP_CONDITIONS:\n")

	heading(&b, "Acceptance Commands")
	for _, a := range m.Acceptance {
		fmt.Fprintf(&b, "- %s\n", a)
	}

	return Artifact{ID: id, Title: title, Content: []byte(b.String())}
}

// Spec renders the strategic (L4) document.
func Spec(m contracts.SpecModel) Artifact {
	title := deriveTitle(m.Overview)
	id := "SPEC-" + safewrite.Slug(title)

	var b strings.Builder
	frontMatter(&b, id, title, "L4")

	heading(&b, "Overview")
	b.WriteString(m.Overview)
	b.WriteString("\n")

	heading(&b, "Problem")
	b.WriteString(m.Problem)
	b.WriteString("\n")

	heading(&b, "Non-Goals")
	for _, ng := range m.NonGoals {
		fmt.Fprintf(&b, "- %s\n", ng)
	}

	heading(&b, "Phases")
	for i, p := range m.Phases {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p)
	}
	fmt.Fprintf(&b, "\nCONFIRMED: %t\n", m.PhasesConfirmed)

	heading(&b, "Success Criteria")
	for _, sc := range m.SuccessCriteria {
		fmt.Fprintf(&b, "- %s\n", sc)
	}

	return Artifact{ID: id, Title: title, Content: []byte(b.String())}
}

func frontMatter(b *strings.Builder, id, title, altitude string) {
	b.WriteString("---\n")
	fmt.Fprintf(b, "ID: %s\n", id)
	fmt.Fprintf(b, "Title: %s\n", yamlScalar(title))
	fmt.Fprintf(b, "Status: %s\n", StatusFrozen)
	fmt.Fprintf(b, "Altitude: %s\n", altitude)
	b.WriteString("---\n")
}

func heading(b *strings.Builder, text string) {
	fmt.Fprintf(b, "\n## %s\n\n", text)
}

// deriveTitle takes the first line of the statement, capped at a word
// boundary so slugs stay readable.
func deriveTitle(statement string) string {
	const maxTitle = 72

	title := strings.TrimSpace(statement)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}
	runes := []rune(title)
	if len(runes) <= maxTitle {
		return title
	}
	cut := string(runes[:maxTitle])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}

// yamlScalar quotes a title when it would otherwise be misread as YAML
// structure. Quoting depends only on content, so rendering stays
// deterministic.
func yamlScalar(s string) string {
	if strings.ContainsAny(s, ":#\"'") {
		return fmt.Sprintf("%q", s)
	}
	return s
}
