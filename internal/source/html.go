package source

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/htmlpath/internal/document"
)

// HTMLConverter passes HTML through untouched; only the title is read from
// the parsed tree.
type HTMLConverter struct{}

func (c *HTMLConverter) Convert(r io.Reader, filename string) (*document.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	doc := &document.Document{
		Title:  stem(filename),
		Format: "html",
		HTML:   string(src),
	}

	// A parse failure only costs the title; the text itself is still usable.
	if root, err := html.Parse(bytes.NewReader(src)); err == nil {
		if title := findTitle(root); title != "" {
			doc.Title = title
		}
	}
	return doc, nil
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}
