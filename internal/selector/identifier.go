package selector

import (
	"regexp"
	"strings"
)

var classAttrRE = regexp.MustCompile(`(?i)\sclass\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'=<>` + "`" + `/]+))`)

// ClassIdentifier returns ".a.b" for an opening tag carrying class="a b", or
// "" when the tag has no usable class attribute.
func ClassIdentifier(raw string) string {
	m := classAttrRE.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	value := m[1] + m[2] + m[3]
	classes := strings.Fields(value)
	if len(classes) == 0 {
		return ""
	}
	return "." + strings.Join(classes, ".")
}
