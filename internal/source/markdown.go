package source

import (
	"bytes"
	"io"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/htmlpath/internal/document"
)

// MarkdownConverter renders Markdown to HTML with goldmark.
type MarkdownConverter struct {
	// AllowRawHTML renders inline HTML blocks and sanitises the result with
	// bluemonday instead of letting goldmark omit them.
	AllowRawHTML bool
}

func (c *MarkdownConverter) Convert(r io.Reader, filename string) (*document.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var opts []goldmark.Option
	if c.AllowRawHTML {
		opts = append(opts, goldmark.WithRendererOptions(gmhtml.WithUnsafe()))
	}
	md := goldmark.New(opts...)

	root := md.Parser().Parse(text.NewReader(src))
	var buf bytes.Buffer
	if err := md.Renderer().Render(&buf, src, root); err != nil {
		return nil, err
	}

	out := buf.String()
	if c.AllowRawHTML {
		out = bluemonday.UGCPolicy().Sanitize(out)
	}

	title := firstHeading(root, src)
	if title == "" {
		title = stem(filename)
	}
	return &document.Document{Title: title, Format: "markdown", HTML: out}, nil
}

func firstHeading(root ast.Node, src []byte) string {
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			return strings.TrimSpace(string(h.Text(src)))
		}
	}
	return ""
}
