package cli

import (
	"fmt"
	"os"

	"github.com/dgallion1/htmlpath/internal/document"
	"github.com/dgallion1/htmlpath/internal/source"
)

// Loader reads a file and returns it normalised to HTML.
type Loader interface {
	Load(path string) (*document.Document, error)
}

// fileLoader reads from disk and converts by extension. Files with an
// unknown extension are treated as HTML.
type fileLoader struct {
	opts source.Options
}

func newFileLoader() *fileLoader {
	return &fileLoader{opts: source.Options{PDFFallbackPdftotext: true, SanitizeMarkdown: true}}
}

func (l *fileLoader) Load(path string) (*document.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	conv, err := source.ForFile(path, l.opts)
	if err != nil {
		conv = &source.HTMLConverter{}
	}
	doc, err := conv.Convert(f, path)
	if err != nil {
		return nil, fmt.Errorf("converting %s: %w", path, err)
	}
	return doc, nil
}
