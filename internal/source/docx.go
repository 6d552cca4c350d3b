package source

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/htmlpath/internal/document"
)

// DOCXConverter renders .docx paragraphs as <p> and heading-styled
// paragraphs as <h1>..<h6>.
type DOCXConverter struct{}

func (c *DOCXConverter) Convert(r io.Reader, filename string) (*document.Document, error) {
	// go-docx needs a ReaderAt+size, so spool to a temp file.
	tmp, err := os.CreateTemp("", "htmlpath-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	size, err := io.Copy(tmp, r)
	if err != nil {
		return nil, fmt.Errorf("write temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, size)
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	out := &document.Document{Title: stem(filename), Format: "docx"}
	var b strings.Builder
	titled := false
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}
		if level := docxHeadingLevel(para); level > 0 {
			writeElement(&b, fmt.Sprintf("h%d", level), text)
			if !titled {
				out.Title = text
				titled = true
			}
			continue
		}
		writeElement(&b, "p", text)
	}
	out.HTML = b.String()
	return out, nil
}

// docxHeadingLevel maps "Heading1" / "heading 1" style names to 1..6.
func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if !strings.HasPrefix(style, "heading") || len(style) != len("heading")+1 {
		return 0
	}
	level := int(style[len(style)-1] - '0')
	if level < 1 || level > 6 {
		return 0
	}
	return level
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
