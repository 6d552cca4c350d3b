package chunker

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/htmlpath/internal/document"
	"github.com/dgallion1/htmlpath/internal/selector"
)

// Config controls chunking behavior.
type Config struct {
	ChunkSize int // Target chunk size in tokens.
	MinChunk  int // Chunks smaller than this are folded into the previous one.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize: 200,
		MinChunk:  20,
	}
}

// run is a stretch of text between two tags, trimmed of surrounding
// whitespace. start/end are byte offsets into the source HTML, raw is
// src[start:end] and text its unescaped, whitespace-collapsed form.
type run struct {
	start, end int
	raw, text  string
}

// rawText elements hold script or style source, not document text.
var rawText = map[string]bool{"script": true, "style": true, "template": true}

// ChunkHTML groups the text content of src into chunks of roughly
// cfg.ChunkSize tokens. Each chunk's Offset is the byte offset of its first
// text character, which is a natural place to anchor a selector.
func ChunkHTML(src string, cfg Config) []document.Chunk {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 200
	}
	if cfg.MinChunk <= 0 {
		cfg.MinChunk = 20
	}

	var chunks []document.Chunk
	var cur []run
	curTokens := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		c := newChunk(cur)
		if c.Tokens < cfg.MinChunk && len(chunks) > 0 {
			last := &chunks[len(chunks)-1]
			last.End = c.End
			last.Text += " " + c.Text
			last.Tokens = EstimateTokens(last.Text)
		} else {
			c.Index = len(chunks)
			chunks = append(chunks, c)
		}
		cur = cur[:0]
		curTokens = 0
	}

	for _, r := range textRuns(src) {
		for _, part := range splitRun(r, cfg.ChunkSize) {
			tokens := EstimateTokens(part.text)
			if curTokens+tokens > cfg.ChunkSize && curTokens > 0 {
				flush()
			}
			cur = append(cur, part)
			curTokens += tokens
		}
	}
	flush()

	return chunks
}

func newChunk(runs []run) document.Chunk {
	parts := make([]string, len(runs))
	for i, r := range runs {
		parts[i] = r.text
	}
	text := strings.Join(parts, " ")
	return document.Chunk{
		Offset: runs[0].start,
		End:    runs[len(runs)-1].end,
		Text:   text,
		Tokens: EstimateTokens(text),
	}
}

// textRuns returns the non-blank text between tags, skipping the bodies of
// script and style elements.
func textRuns(src string) []run {
	var runs []run
	pos := 0
	skipUntil := ""

	emit := func(start, end int) {
		if skipUntil != "" || start >= end {
			return
		}
		if r, ok := trimRun(src, start, end); ok {
			runs = append(runs, r)
		}
	}

	for _, tok := range selector.Tokenize(src) {
		emit(pos, tok.Start)
		pos = tok.End
		switch {
		case skipUntil == "" && tok.Kind == selector.OpenOrSelfContaining && !tok.SelfClosing && rawText[tok.Name]:
			skipUntil = tok.Name
		case skipUntil != "" && tok.Kind == selector.Close && tok.Name == skipUntil:
			skipUntil = ""
		}
	}
	emit(pos, len(src))
	return runs
}

// splitRun breaks a run larger than target tokens at sentence boundaries,
// keeping byte offsets for every piece.
func splitRun(r run, target int) []run {
	if EstimateTokens(r.text) <= target {
		return []run{r}
	}

	var out []run
	// Sentence boundaries are found in the source bytes so offsets stay exact.
	raw := r.raw
	start := 0
	for i := 0; i+1 < len(raw); i++ {
		c := raw[i]
		if (c == '.' || c == '!' || c == '?') && isSpace(raw[i+1]) {
			if piece, ok := trimRun(raw, start, i+1); ok {
				out = append(out, piece.shift(r.start))
			}
			start = i + 1
		}
	}
	if piece, ok := trimRun(raw, start, len(raw)); ok {
		out = append(out, piece.shift(r.start))
	}
	return out
}

// trimRun trims s[start:end] and reports false when nothing but whitespace
// remains.
func trimRun(s string, start, end int) (run, bool) {
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	if start == end {
		return run{}, false
	}
	raw := s[start:end]
	return run{
		start: start,
		end:   end,
		raw:   raw,
		text:  strings.Join(strings.Fields(html.UnescapeString(raw)), " "),
	}, true
}

func (r run) shift(by int) run {
	r.start += by
	r.end += by
	return r
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

// EstimateTokens approximates a model token count from the word count, at
// about 1.33 tokens per English word. Any non-blank text counts as at least
// one token.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return max(1, words*133/100)
}
