// Package source converts uploaded files into the HTML that offsets are
// resolved against.
package source

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/htmlpath/internal/document"
)

// ErrUnsupported is returned by ForFile for unknown extensions.
var ErrUnsupported = errors.New("unsupported file extension")

// Converter turns raw document bytes into HTML.
type Converter interface {
	Convert(r io.Reader, filename string) (*document.Document, error)
}

// Options tunes individual converters.
type Options struct {
	// PDFFallbackPdftotext shells out to pdftotext when the Go PDF reader
	// fails.
	PDFFallbackPdftotext bool
	// SanitizeMarkdown keeps raw HTML embedded in Markdown, passed through
	// bluemonday's UGC policy. When false raw HTML is dropped.
	SanitizeMarkdown bool
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".html":     true,
	".htm":      true,
	".md":       true,
	".markdown": true,
	".txt":      true,
	".csv":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate converter for a filename.
func ForFile(filename string, opts Options) (Converter, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".html", ".htm":
		return &HTMLConverter{}, nil
	case ".md", ".markdown":
		return &MarkdownConverter{AllowRawHTML: opts.SanitizeMarkdown}, nil
	case ".txt":
		return &TextConverter{}, nil
	case ".csv":
		return &CSVConverter{}, nil
	case ".pdf":
		return &PDFConverter{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXConverter{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// stem strips the extension from a filename for use as a fallback title.
func stem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// writeElement writes <tag>escaped text</tag>.
func writeElement(b *strings.Builder, tag, text string) {
	b.WriteString("<" + tag + ">")
	b.WriteString(html.EscapeString(text))
	b.WriteString("</" + tag + ">\n")
}
