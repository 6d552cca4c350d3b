package source

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/htmlpath/internal/document"
)

// TextConverter wraps each blank-line separated paragraph in <p>.
type TextConverter struct{}

func (c *TextConverter) Convert(r io.Reader, filename string) (*document.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	var b strings.Builder
	for _, para := range paragraphs {
		writeElement(&b, "p", para)
	}
	return &document.Document{Title: stem(filename), Format: "text", HTML: b.String()}, nil
}
