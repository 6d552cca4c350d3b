// Package verify evaluates selectors against a parsed HTML tree so that
// resolved anchors can be checked with a real selector engine.
package verify

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/dgallion1/htmlpath/internal/document"
	"github.com/dgallion1/htmlpath/internal/selector"
)

const (
	excerptRunes = 80
	probeRunes   = 32
)

// Match is the result of evaluating one selector.
type Match struct {
	Selector string `json:"selector" yaml:"selector"`
	Query    string `json:"query" yaml:"query"`
	Count    int    `json:"count" yaml:"count"`
	Tag      string `json:"tag,omitempty" yaml:"tag,omitempty"`
	Text     string `json:"text" yaml:"text"`
	Markdown string `json:"markdown,omitempty" yaml:"markdown,omitempty"`

	first *goquery.Selection
}

// Unique reports whether the selector picked exactly one node.
func (m Match) Unique() bool { return m.Count == 1 }

// Tree is a parsed document that can answer many selector queries.
type Tree struct {
	doc *goquery.Document
}

// Parse builds a tree with the HTML5 parsing algorithm. Fragments are
// wrapped in html/head/body the way a browser would.
func Parse(src string) (*Tree, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Tree{doc: goquery.NewDocumentFromNode(root)}, nil
}

// Match evaluates sel. Resolved selectors are rooted at the top of the
// source text, so unless they start at <html> they are anchored under
// <body>, then <head>.
func (t *Tree) Match(sel string) (Match, error) {
	m := Match{Selector: sel}
	if sel == "" || sel == selector.Universal {
		m.Query = selector.Universal
		m.Count = 1
		m.Tag = "#document"
		m.Text = t.doc.Text()
		m.first = t.doc.Selection
		return m, nil
	}

	queries := anchored(sel)
	for _, q := range queries {
		compiled, err := cascadia.Compile(q)
		if err != nil {
			return m, fmt.Errorf("compile selector %q: %w", sel, err)
		}
		found := t.doc.FindMatcher(compiled)
		if found.Length() == 0 {
			continue
		}
		first := found.First()
		m.Query = q
		m.Count = found.Length()
		m.Tag = goquery.NodeName(first)
		m.Text = first.Text()
		m.first = first
		return m, nil
	}
	m.Query = queries[0]
	return m, nil
}

func anchored(sel string) []string {
	if sel == "html" || strings.HasPrefix(sel, "html:") || strings.HasPrefix(sel, "html>") {
		return []string{sel}
	}
	return []string{"body>" + sel, "head>" + sel}
}

// Check evaluates an anchor's selector and records whether it selects
// exactly one node whose text contains probe. An empty probe only requires
// uniqueness.
func (t *Tree) Check(a *document.Anchor, probe string) error {
	m, err := t.Match(a.Selector)
	if err != nil {
		a.Error = err.Error()
		return err
	}
	a.Matches = m.Count
	a.Excerpt = truncate(collapse(m.Text), excerptRunes)
	a.Verified = m.Unique() && strings.Contains(collapse(m.Text), collapse(probe))
	return nil
}

// Evaluator pairs selector evaluation with a Markdown rendering of the
// first match.
type Evaluator struct {
	conv *converter.Converter
}

func NewEvaluator() *Evaluator {
	return &Evaluator{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Evaluate parses src and evaluates sel against it.
func (e *Evaluator) Evaluate(src, sel string) (Match, error) {
	tree, err := Parse(src)
	if err != nil {
		return Match{}, err
	}
	m, err := tree.Match(sel)
	if err != nil {
		return m, err
	}
	m.Markdown, err = e.Markdown(m)
	return m, err
}

// Markdown renders the first node of m as Markdown.
func (e *Evaluator) Markdown(m Match) (string, error) {
	if m.first == nil || m.first.Length() == 0 {
		return "", nil
	}
	outer, err := goquery.OuterHtml(m.first)
	if err != nil {
		return "", fmt.Errorf("render match: %w", err)
	}
	md, err := e.conv.ConvertString(outer)
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// ProbeText returns the text that starts at offset in src, up to the next
// tag, unescaped and whitespace-collapsed. It is what a unique selector for
// that offset must contain.
func ProbeText(src string, offset int) string {
	if offset < 0 || offset >= len(src) {
		return ""
	}
	rest := src[offset:]
	if i := strings.IndexByte(rest, '<'); i >= 0 {
		rest = rest[:i]
	}
	return truncate(collapse(html.UnescapeString(rest)), probeRunes)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return strings.TrimSpace(s[:pos])
		}
		i++
	}
	return s
}
