// Package tagscan finds tag-like substrings in raw markup.
//
// The matchers are best-effort regular expressions, not an HTML tokenizer.
// Known precision limits:
//   - a '>' inside a quoted attribute value ends the match early;
//   - tags split across lines are only matched up to the first newline;
//   - script/style bodies and CDATA sections are scanned like any other text.
//
// None of the functions validate well-formedness and none return errors; an
// input without matches yields an empty slice.
package tagscan

import (
	"regexp"
	"strings"
)

var (
	elementRE     = regexp.MustCompile(`<([^>\n<]*[a-zA-Z0-9_\-])>?`)
	closedRE      = regexp.MustCompile(`<\s?(/[^>\n<]+?)>`)
	openRE        = regexp.MustCompile(`<[^\n/]*[^/\s][^\n/]*([^>\n<]+)/?\s*>`)
	selfClosingRE = regexp.MustCompile(`<[^>\n<]*[a-zA-Z0-9_\-"']\s*/\s*>`)
	nameRE        = regexp.MustCompile(`^<\s*/*\s*([^\s>]+)`)
)

// Span is a half-open byte range [Start, End) within the scanned text.
type Span struct {
	Start int
	End   int
}

// Elements returns every open, close and self-closing tag in document order.
func Elements(text string) []string {
	return findAll(elementRE, text)
}

// ElementSpans returns the positions of the matches reported by Elements.
func ElementSpans(text string) []Span {
	locs := elementRE.FindAllStringIndex(text, -1)
	spans := make([]Span, 0, len(locs))
	for _, loc := range locs {
		spans = append(spans, Span{Start: loc[0], End: loc[1]})
	}
	return spans
}

// ClosedElements returns the closing tags (</name>) in document order.
func ClosedElements(text string) []string {
	return findAll(closedRE, text)
}

// OpenElements returns the opening tags in document order.
func OpenElements(text string) []string {
	return findAll(openRE, text)
}

// SelfClosingElements returns tags written with a trailing "/>".
func SelfClosingElements(text string) []string {
	return findAll(selfClosingRE, text)
}

// ElementNames returns one bare name per match of Elements.
func ElementNames(text string) []string {
	elements := Elements(text)
	names := make([]string, 0, len(elements))
	for _, el := range elements {
		names = append(names, ElementName(el))
	}
	return names
}

// ElementName extracts the bare tag name from a single tag substring, or ""
// when none can be found.
func ElementName(tag string) string {
	m := nameRE.FindStringSubmatch(tag)
	if m == nil {
		return ""
	}
	return strings.TrimRight(m[1], "/")
}

// IsClosing reports whether the tag substring starts with "</".
func IsClosing(tag string) bool {
	rest := strings.TrimLeft(strings.TrimPrefix(tag, "<"), " \t\r\n")
	return strings.HasPrefix(rest, "/")
}

// TagEnd returns the end of the tag that starts at start, given the end of its
// regex match. When the match stopped short of the terminating '>' (quoted
// attribute values, multi-line attributes) the scan continues to the first
// '>' outside quotes. The match end is kept if another '<' shows up first.
func TagEnd(text string, start, matchEnd int) int {
	if matchEnd > start && text[matchEnd-1] == '>' {
		return matchEnd
	}
	var quote byte
	for i := start + 1; i < len(text); i++ {
		c := text[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return i + 1
		case c == '<':
			return matchEnd
		}
	}
	return matchEnd
}

// CommentEnd returns the offset just past the "-->" that closes the comment
// starting at start, or len(text) for an unterminated comment. The empty
// comments "<!-->" and "<!--->" end at their own '>'.
func CommentEnd(text string, start int) int {
	body := start + len("<!--")
	if body > len(text) {
		return len(text)
	}
	rest := text[body:]
	switch {
	case strings.HasPrefix(rest, ">"):
		return body + 1
	case strings.HasPrefix(rest, "->"):
		return body + 2
	}
	if i := strings.Index(text[body:], "-->"); i >= 0 {
		return body + i + len("-->")
	}
	return len(text)
}

func findAll(re *regexp.Regexp, text string) []string {
	m := re.FindAllString(text, -1)
	if m == nil {
		return []string{}
	}
	return m
}
