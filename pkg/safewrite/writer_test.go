package safewrite

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Ship the Widget":     "ship_the_widget",
		"WI-0042":             "wi_0042",
		"  spaced   out  ":    "spaced_out",
		"already_safe":        "already_safe",
		"!!!":                 "",
		"trailing punct...":   "trailing_punct",
		"MiXeD/Case\\Slashes": "mixed_case_slashes",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolvePath_IncrementsSuffix(t *testing.T) {
	dir := t.TempDir()

	p1, err := ResolvePath(dir, "ship the widget", ".md")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(p1) != "ship_the_widget.md" {
		t.Errorf("first path = %s", p1)
	}
	if err := os.WriteFile(p1, []byte("one"), 0o644); err != nil {
		t.Fatal(err)
	}

	p2, err := ResolvePath(dir, "ship the widget", ".md")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(p2) != "ship_the_widget_1.md" {
		t.Errorf("second path = %s", p2)
	}
}

func TestWrite_NeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact.md")

	if err := Write(path, []byte("original")); err != nil {
		t.Fatal(err)
	}
	if err := Write(path, []byte("clobber")); err == nil {
		t.Fatal("expected refusal to overwrite")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "original" {
		t.Errorf("original bytes changed: %q", data)
	}
}

func TestWrite_LeavesNoStagingDebris(t *testing.T) {
	dir := t.TempDir()
	if err := Write(filepath.Join(dir, "a.md"), []byte("x")); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".staged-") {
			t.Errorf("staging file left behind: %s", e.Name())
		}
	}
}

func TestResolveAndWrite_TwoDistinctFiles(t *testing.T) {
	dir := t.TempDir()

	p1, err := ResolveAndWrite(dir, "WI-widget", ".md", []byte("first"))
	if err != nil {
		t.Fatal(err)
	}
	p2, err := ResolveAndWrite(dir, "WI-widget", ".md", []byte("second"))
	if err != nil {
		t.Fatal(err)
	}

	if p1 == p2 {
		t.Fatalf("paths collide: %s", p1)
	}
	first, _ := os.ReadFile(p1)
	if string(first) != "first" {
		t.Errorf("first file mutated: %q", first)
	}
}
