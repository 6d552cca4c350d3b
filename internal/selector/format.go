package selector

import (
	"strconv"
	"strings"
)

// Universal is returned when the offset has no enclosing element.
const Universal = "*"

// Format renders segments outermost first as name:nth-of-type(n) joined by
// the child combinator. The pseudo-class is always present, index 1
// included.
func Format(segments []PathSegment) string {
	if len(segments) == 0 {
		return Universal
	}
	var b strings.Builder
	for i, seg := range segments {
		if i > 0 {
			b.WriteByte('>')
		}
		b.WriteString(seg.Name)
		b.WriteString(":nth-of-type(")
		b.WriteString(strconv.Itoa(seg.Index))
		b.WriteByte(')')
	}
	return b.String()
}
