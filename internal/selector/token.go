package selector

import (
	"strings"

	"github.com/dgallion1/htmlpath/internal/tagscan"
)

// Kind distinguishes opening tags from closing tags.
type Kind int

const (
	// OpenOrSelfContaining is an opening tag; it may itself be self-closing.
	OpenOrSelfContaining Kind = iota
	// Close is a closing tag (</name>).
	Close
)

func (k Kind) String() string {
	if k == Close {
		return "close"
	}
	return "open"
}

// MarshalText renders the kind by name in JSON and YAML output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Category classifies a token for the path builder. Every category other
// than Normal is skipped during path reconstruction.
type Category int

const (
	Normal Category = iota
	Comment
	DocType
	Void
	// Declaration covers <!...> and <?...?> markup other than comments and
	// doctypes.
	Declaration
	// Bogus marks tag-like text that a browser would render as text, such as
	// "a < b" or "<3".
	Bogus
)

var categoryNames = [...]string{"normal", "comment", "doctype", "void", "declaration", "bogus"}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[c]
}

// MarshalText renders the category by name in JSON and YAML output.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Ignored reports whether tokens of this category are left out of the
// ancestor chain and of sibling counts.
func (c Category) Ignored() bool {
	return c != Normal
}

// voidElements have no closing tag and no children.
var voidElements = map[string]bool{
	"br":    true,
	"img":   true,
	"link":  true,
	"input": true,
	"meta":  true,
	// The remaining HTML void elements.
	"area":   true,
	"base":   true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"keygen": true,
	"param":  true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

// IsVoid reports whether name is a void element.
func IsVoid(name string) bool {
	return voidElements[strings.ToLower(name)]
}

// Token is one recognised tag occurrence.
type Token struct {
	Name        string   `json:"name" yaml:"name"`
	Kind        Kind     `json:"kind" yaml:"kind"`
	Category    Category `json:"category" yaml:"category"`
	Raw         string   `json:"raw" yaml:"raw"`
	Start       int      `json:"start" yaml:"start"`
	End         int      `json:"end" yaml:"end"`
	SelfClosing bool     `json:"self_closing,omitempty" yaml:"self_closing,omitempty"`
}

// Tokenize classifies every tag found by tagscan in document order. Tags that
// start inside a comment or inside a quoted attribute of an earlier tag are
// dropped, so token spans never overlap.
func Tokenize(text string) []Token {
	spans := tagscan.ElementSpans(text)
	tokens := make([]Token, 0, len(spans))
	skipUntil := 0
	for _, sp := range spans {
		if sp.Start < skipUntil {
			continue
		}
		tok := newToken(text, sp)
		if tok.Category == Comment {
			tok.End = tagscan.CommentEnd(text, tok.Start)
			tok.Raw = text[tok.Start:tok.End]
		}
		skipUntil = tok.End
		tokens = append(tokens, tok)
	}
	return tokens
}

func newToken(text string, sp tagscan.Span) Token {
	match := text[sp.Start:sp.End]
	end := tagscan.TagEnd(text, sp.Start, sp.End)
	raw := text[sp.Start:end]

	tok := Token{
		Name:  strings.ToLower(tagscan.ElementName(match)),
		Raw:   raw,
		Start: sp.Start,
		End:   end,
	}
	if tagscan.IsClosing(match) {
		tok.Kind = Close
	}
	tok.Category = classify(tok.Name, match)
	if tok.Kind == OpenOrSelfContaining && strings.HasSuffix(raw, "/>") {
		tok.SelfClosing = true
	}
	return tok
}

func classify(name, match string) Category {
	switch {
	case strings.HasPrefix(name, "!--"):
		return Comment
	case name == "!doctype":
		return DocType
	case strings.HasPrefix(name, "!"), strings.HasPrefix(name, "?"):
		return Declaration
	case name == "" || !isTagStart(name[0]) || !startsTag(match):
		return Bogus
	case voidElements[name]:
		return Void
	}
	return Normal
}

// startsTag reports whether the character after '<' can begin a tag. Only
// closing tags tolerate whitespace between '<' and the name.
func startsTag(match string) bool {
	if len(match) < 2 {
		return false
	}
	c := match[1]
	if isTagStart(c) || c == '/' {
		return true
	}
	return tagscan.IsClosing(match)
}

func isTagStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
