package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/htmlpath/internal/document"
)

// CSVConverter renders a CSV file as a single table. The first record is the
// header row.
type CSVConverter struct{}

func (c *CSVConverter) Convert(r io.Reader, filename string) (*document.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	doc := &document.Document{Title: stem(filename), Format: "csv"}
	if len(records) == 0 {
		return doc, nil
	}

	var b strings.Builder
	b.WriteString("<table>\n<thead>\n<tr>")
	for _, h := range records[0] {
		writeCell(&b, "th", h)
	}
	b.WriteString("</tr>\n</thead>\n<tbody>\n")
	for _, row := range records[1:] {
		b.WriteString("<tr>")
		for _, cell := range row {
			writeCell(&b, "td", cell)
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</tbody>\n</table>\n")

	doc.HTML = b.String()
	return doc, nil
}

func writeCell(b *strings.Builder, tag, text string) {
	var cell strings.Builder
	writeElement(&cell, tag, text)
	b.WriteString(strings.TrimSuffix(cell.String(), "\n"))
}
