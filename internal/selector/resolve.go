// Package selector maps a byte offset inside raw HTML text to a CSS selector
// for the innermost element enclosing it.
//
// The document is never parsed into a tree. Its tags are tokenized and
// scanned once, left to right, with a stack of open elements; whatever is
// still open when the scan reaches the offset is the ancestor chain. Each
// ancestor is qualified with :nth-of-type, so the result is a plain
// "tag:nth-of-type(n)>tag:nth-of-type(m)" selector that any CSS engine can
// evaluate. An offset outside every element yields "*".
//
// All functions are pure; an Index may be shared between goroutines.
package selector

import (
	"errors"
	"fmt"
)

// ErrOffsetOutOfRange is returned for offsets outside [0, len(text)].
var ErrOffsetOutOfRange = errors.New("offset out of range")

// Index holds the tokenization of one document so that many offsets can be
// resolved without re-scanning the text. It is immutable after NewIndex.
type Index struct {
	text   string
	tokens []Token
}

// NewIndex tokenizes text.
func NewIndex(text string) *Index {
	return &Index{text: text, tokens: Tokenize(text)}
}

// Len returns the document length in bytes.
func (x *Index) Len() int {
	return len(x.text)
}

// Tokens returns the document's tokens. The slice must not be modified.
func (x *Index) Tokens() []Token {
	return x.tokens
}

// Resolve returns the ancestor chain of offset.
func (x *Index) Resolve(offset int) (Path, error) {
	if err := checkOffset(offset, len(x.text)); err != nil {
		return Path{}, err
	}
	return BuildPath(x.tokens, offset), nil
}

// Resolve returns the ancestor chain of offset within text.
func Resolve(text string, offset int) (Path, error) {
	if err := checkOffset(offset, len(text)); err != nil {
		return Path{}, err
	}
	return BuildPath(Tokenize(text), offset), nil
}

// ResolveAll resolves several offsets against one tokenization of text. All
// offsets are range-checked before any scanning happens.
func ResolveAll(text string, offsets []int) ([]Path, error) {
	for _, off := range offsets {
		if err := checkOffset(off, len(text)); err != nil {
			return nil, err
		}
	}
	tokens := Tokenize(text)
	paths := make([]Path, len(offsets))
	for i, off := range offsets {
		paths[i] = BuildPath(tokens, off)
	}
	return paths, nil
}

// Selector is Resolve followed by Format.
func Selector(text string, offset int) (string, error) {
	p, err := Resolve(text, offset)
	if err != nil {
		return "", err
	}
	return p.Selector(), nil
}

func checkOffset(offset, length int) error {
	if offset < 0 || offset > length {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrOffsetOutOfRange, offset, length)
	}
	return nil
}
