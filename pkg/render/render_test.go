package render

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/tillerworks/tiller/pkg/contracts"
)

func TestWorkItem_Deterministic(t *testing.T) {
	m := contracts.WorkItemModel{
		Objective:  "ship the widget",
		Scope:      []string{"src/widget.py", "src/widget_test.py"},
		Plan:       []string{"write the widget", "test the widget"},
		Acceptance: []string{"widget builds"},
	}

	first := WorkItem(m)
	second := WorkItem(m)
	if !bytes.Equal(first.Content, second.Content) {
		t.Fatal("rendering the same model twice produced different bytes")
	}
}

func TestWorkItem_SectionsAndOrder(t *testing.T) {
	m := contracts.WorkItemModel{
		Objective:  "ship the widget",
		Scope:      []string{"src/widget.py"},
		Acceptance: []string{"widget builds"},
	}

	out := string(WorkItem(m).Content)

	wantOrder := []string{
		"---",
		"ID: WI-ship_the_widget",
		"Title: ship the widget",
		"Status: Frozen",
		"Altitude: L3",
		"## Objective",
		"ship the widget",
		"## Scope: File Permissions",
		"- MODIFIABLE:",
		"  - src/widget.py",
		"- READ_ONLY:",
		"## Implementation Plan",
		"## Execution Guardrails",
		"- ASK_CONDITIONS:",
		"- STOP_CONDITIONS:",
		"## Acceptance Commands",
		"- widget builds",
	}
	pos := 0
	for _, want := range wantOrder {
		i := strings.Index(out[pos:], want)
		if i < 0 {
			t.Fatalf("missing or out of order: %q\nrendered:\n%s", want, out)
		}
		pos += i + len(want)
	}
}

func TestWorkItem_InsertionOrderPreserved(t *testing.T) {
	m := contracts.WorkItemModel{
		Objective: "ordered",
		Plan:      []string{"third? no, first", "second", "third"},
	}

	out := string(WorkItem(m).Content)
	if !strings.Contains(out, "1. third? no, first\n2. second\n3. third\n") {
		t.Errorf("plan not rendered in insertion order:\n%s", out)
	}
}

func TestSpec_ConfirmationMarker(t *testing.T) {
	m := contracts.SpecModel{
		Overview: "the governance layer",
		Problem:  "loose intent",
		Phases:   []string{"shape", "gate"},
	}

	out := string(Spec(m).Content)
	if !strings.Contains(out, "CONFIRMED: false") {
		t.Errorf("unconfirmed phases should render CONFIRMED: false:\n%s", out)
	}

	m.PhasesConfirmed = true
	out = string(Spec(m).Content)
	if !strings.Contains(out, "CONFIRMED: true") {
		t.Errorf("confirmed phases should render CONFIRMED: true:\n%s", out)
	}
}

func TestSpec_IdentityFromOverview(t *testing.T) {
	m := contracts.SpecModel{Overview: "Widget Governance", Problem: "p"}

	a := Spec(m)
	if a.ID != "SPEC-widget_governance" {
		t.Errorf("ID = %s", a.ID)
	}
	if a.Title != "Widget Governance" {
		t.Errorf("Title = %s", a.Title)
	}
}

func TestDeriveTitle_CapsAtWordBoundary(t *testing.T) {
	long := strings.Repeat("word ", 40)
	title := deriveTitle(long)
	if len(title) > 72 {
		t.Errorf("title too long: %d", len(title))
	}
	if strings.HasSuffix(title, " ") {
		t.Errorf("title has trailing space: %q", title)
	}
}

func TestDeriveTitle_CutsOnRuneBoundaries(t *testing.T) {
	long := strings.Repeat("жизнь", 30)
	title := deriveTitle(long)
	if !utf8.ValidString(title) {
		t.Errorf("title is not valid UTF-8: %q", title)
	}
	if utf8.RuneCountInString(title) > 72 {
		t.Errorf("title too long: %d runes", utf8.RuneCountInString(title))
	}
}

func TestYAMLScalar_QuotesStructuralCharacters(t *testing.T) {
	if got := yamlScalar("plain title"); got != "plain title" {
		t.Errorf("plain title quoted: %s", got)
	}
	if got := yamlScalar("title: with colon"); got != `"title: with colon"` {
		t.Errorf("colon title not quoted: %s", got)
	}
}
