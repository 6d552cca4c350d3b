package selector

import (
	"fmt"
	"unicode/utf16"
	"unicode/utf8"
)

// Unit is the counting unit of a caller-supplied offset.
type Unit int

const (
	Bytes Unit = iota
	Runes
	// UTF16 counts UTF-16 code units, as JavaScript string indices do.
	UTF16
)

func (u Unit) String() string {
	switch u {
	case Runes:
		return "rune"
	case UTF16:
		return "utf16"
	}
	return "byte"
}

// ParseUnit accepts "byte", "rune" or "utf16"; the empty string means bytes.
func ParseUnit(s string) (Unit, error) {
	switch s {
	case "", "byte", "bytes":
		return Bytes, nil
	case "rune", "runes", "char", "chars":
		return Runes, nil
	case "utf16", "utf-16":
		return UTF16, nil
	}
	return Bytes, fmt.Errorf("unknown offset unit %q", s)
}

// ByteOffset converts an offset counted in unit into a byte offset into
// text. An offset that lands between the two halves of a surrogate pair maps
// to the start of that character.
func ByteOffset(text string, offset int, unit Unit) (int, error) {
	if unit == Bytes {
		if err := checkOffset(offset, len(text)); err != nil {
			return 0, err
		}
		return offset, nil
	}
	if offset < 0 {
		return 0, fmt.Errorf("%w: %d is negative", ErrOffsetOutOfRange, offset)
	}

	count := 0
	for i, r := range text {
		if count >= offset {
			return i, nil
		}
		width := 1
		if unit == UTF16 {
			width = utf16.RuneLen(r)
			if width < 1 {
				width = 1
			}
		}
		if count+width > offset {
			return i, nil
		}
		count += width
	}
	if count == offset {
		return len(text), nil
	}
	return 0, fmt.Errorf("%w: %d %s units exceeds document length %d", ErrOffsetOutOfRange, offset, unit, count)
}

// UnitLen returns the length of text counted in unit.
func UnitLen(text string, unit Unit) int {
	switch unit {
	case Runes:
		return utf8.RuneCountInString(text)
	case UTF16:
		n := 0
		for _, r := range text {
			if w := utf16.RuneLen(r); w > 0 {
				n += w
			} else {
				n++
			}
		}
		return n
	}
	return len(text)
}
