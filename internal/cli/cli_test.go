package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/htmlpath/internal/document"
)

const page = `<html><body><div class="card"><p>alpha</p><p>beta</p></div></body></html>`

// mockLoader serves documents from memory.
type mockLoader struct {
	docs map[string]string
}

func (m *mockLoader) Load(path string) (*document.Document, error) {
	src, ok := m.docs[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return &document.Document{Title: path, Format: "html", HTML: src}, nil
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := newRootCmd(&mockLoader{docs: map[string]string{
		"page.html":   page,
		"multi.html":  "<p>😀</p><p>x</p>",
		"broken.html": "<div><p>a</span>b</p></div>",
	}})
	out := new(bytes.Buffer)
	c.SetOut(out)
	c.SetErr(new(bytes.Buffer))
	c.SetArgs(args)
	err := c.Execute()
	return out.String(), err
}

func TestResolve_Text(t *testing.T) {
	beta := strings.Index(page, "beta")
	out, err := run(t, "resolve", "page.html", "--offset", "0", "--offset", itoa(beta))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", out)
	}
	if lines[0] != "0\t*" {
		t.Errorf("expected universal selector for offset 0, got %q", lines[0])
	}
	want := itoa(beta) + "\thtml:nth-of-type(1)>body:nth-of-type(1)>div:nth-of-type(1)>p:nth-of-type(2)"
	if lines[1] != want {
		t.Errorf("expected %q, got %q", want, lines[1])
	}
}

func TestResolve_JSONWithCheck(t *testing.T) {
	out, err := run(t, "resolve", "page.html", "--offset", itoa(strings.Index(page, "alpha")), "--check", "--format", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var results []resolveOutput
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("invalid json %q: %v", out, err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.Verified == nil || !*r.Verified || *r.Matches != 1 {
		t.Errorf("expected a verified unique match, got %+v", r)
	}
	if len(r.Segments) != 4 || r.Segments[2].Identifier != ".card" {
		t.Errorf("unexpected segments %+v", r.Segments)
	}
}

func TestResolve_YAMLIncludesDiagnostics(t *testing.T) {
	b := strings.Index("<div><p>a</span>b</p></div>", "b<")
	out, err := run(t, "resolve", "broken.html", "--offset", itoa(b), "--format", "yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var results []struct {
		Selector    string `yaml:"selector"`
		Diagnostics []struct {
			Kind string `yaml:"kind"`
			Name string `yaml:"name"`
		} `yaml:"diagnostics"`
	}
	if err := yaml.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("invalid yaml %q: %v", out, err)
	}
	if len(results) != 1 || results[0].Selector != "div:nth-of-type(1)>p:nth-of-type(1)" {
		t.Fatalf("unexpected results %+v", results)
	}
	if len(results[0].Diagnostics) != 1 || results[0].Diagnostics[0].Kind != "unmatched_close" {
		t.Errorf("expected an unmatched_close diagnostic, got %+v", results[0].Diagnostics)
	}
}

func TestResolve_UTF16Unit(t *testing.T) {
	out, err := run(t, "resolve", "multi.html", "--offset", "12", "--unit", "utf16")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "12\tp:nth-of-type(2)" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestResolve_Errors(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"no offsets", []string{"resolve", "page.html"}},
		{"bad unit", []string{"resolve", "page.html", "--offset", "1", "--unit", "furlong"}},
		{"missing file", []string{"resolve", "nope.html", "--offset", "1"}},
		{"bad format", []string{"resolve", "page.html", "--offset", "1", "--format", "xml"}},
		{"no args", []string{"resolve"}},
	}
	for _, tc := range cases {
		if _, err := run(t, tc.args...); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestResolve_OutOfRangeReportsAndFails(t *testing.T) {
	out, err := run(t, "resolve", "page.html", "--offset", "0,99999")
	if err == nil {
		t.Fatal("expected error for out-of-range offset")
	}
	if !strings.Contains(out, "99999\terror:") {
		t.Errorf("expected per-offset error line, got %q", out)
	}
	if !strings.Contains(out, "0\t*") {
		t.Errorf("expected the valid offset to still resolve, got %q", out)
	}
}

func TestVerify(t *testing.T) {
	out, err := run(t, "verify", "page.html", "--selector", "html:nth-of-type(1)>body:nth-of-type(1)>div:nth-of-type(1)>p:nth-of-type(2)", "--format", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var m struct {
		Count int    `json:"count"`
		Tag   string `json:"tag"`
		Text  string `json:"text"`
	}
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("invalid json %q: %v", out, err)
	}
	if m.Count != 1 || m.Tag != "p" || m.Text != "beta" {
		t.Errorf("unexpected match %+v", m)
	}
}

func TestVerify_Strict(t *testing.T) {
	if _, err := run(t, "verify", "page.html", "--selector", "p", "--strict"); err == nil {
		t.Error("expected strict mode to reject an ambiguous selector")
	}
	if _, err := run(t, "verify", "page.html", "--selector", "p"); err != nil {
		t.Errorf("expected ambiguous selector to pass without --strict: %v", err)
	}
	if _, err := run(t, "verify", "page.html"); err == nil {
		t.Error("expected error without --selector")
	}
	if _, err := run(t, "verify", "page.html", "--selector", "p:nth-of-type("); err == nil {
		t.Error("expected error for invalid selector")
	}
}

func TestTokens(t *testing.T) {
	out, err := run(t, "tokens", "page.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 10 {
		t.Fatalf("expected 10 tokens, got %d: %q", len(lines), out)
	}
	if lines[0] != "0-6\topen\tnormal\thtml" {
		t.Errorf("unexpected first token line %q", lines[0])
	}
}

func TestConvert_RealFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	if err := os.WriteFile(path, []byte("# Notes\n\nHello *world*.\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewRootCmd()
	out := new(bytes.Buffer)
	c.SetOut(out)
	c.SetArgs([]string{"convert", path, "--format", "json"})
	if err := c.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got convertOutput
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("invalid json %q: %v", out.String(), err)
	}
	if got.Title != "Notes" || got.Format != "markdown" || !strings.Contains(got.HTML, "<em>world</em>") {
		t.Errorf("unexpected conversion %+v", got)
	}
}

func TestFileLoader_UnknownExtensionIsHTML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.xhtml")
	if err := os.WriteFile(path, []byte(page), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := newFileLoader().Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.HTML != page {
		t.Errorf("expected passthrough, got %q", doc.HTML)
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
