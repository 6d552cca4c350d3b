package document

import "github.com/dgallion1/htmlpath/internal/selector"

// Document is an uploaded file normalised to HTML. Offsets and selectors
// always refer to HTML, never to the original bytes.
type Document struct {
	Title  string // Document title (from metadata or filename)
	Format string // Source format, e.g. "html", "markdown", "pdf"
	HTML   string
}

// Chunk is a run of text content with the byte offset where it starts in
// the document's HTML.
type Chunk struct {
	Index  int    `json:"index"`
	Offset int    `json:"offset"`
	End    int    `json:"end"`
	Text   string `json:"text"`
	Tokens int    `json:"tokens"`
}

// Anchor ties an offset to the selector resolved for it and, once checked,
// to what a selector engine actually found.
type Anchor struct {
	Offset      int                    `json:"offset"`
	Selector    string                 `json:"selector"`
	Segments    []selector.PathSegment `json:"segments"`
	Diagnostics []selector.Diagnostic  `json:"diagnostics,omitempty"`
	Matches     int                    `json:"matches"`
	Verified    bool                   `json:"verified"`
	Excerpt     string                 `json:"excerpt,omitempty"`
	Error       string                 `json:"error,omitempty"`
}
