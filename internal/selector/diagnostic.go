package selector

import "fmt"

// DiagnosticKind names a recoverable oddity found while building a path.
type DiagnosticKind int

const (
	// UnmatchedClose is a closing tag whose name differs from the innermost
	// open element. It is skipped.
	UnmatchedClose DiagnosticKind = iota + 1
	// StrayClose is a closing tag seen while no element is open.
	StrayClose
)

func (k DiagnosticKind) String() string {
	switch k {
	case UnmatchedClose:
		return "unmatched_close"
	case StrayClose:
		return "stray_close"
	}
	return "unknown"
}

// MarshalText renders the kind by name in JSON and YAML output.
func (k DiagnosticKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Diagnostic is a typed event describing markup the builder tolerated.
// Diagnostics never change the result; callers may log them.
type Diagnostic struct {
	Kind     DiagnosticKind `json:"kind" yaml:"kind"`
	Name     string         `json:"name" yaml:"name"`
	Expected string         `json:"expected,omitempty" yaml:"expected,omitempty"`
	Offset   int            `json:"offset" yaml:"offset"`
}

func (d Diagnostic) String() string {
	if d.Expected != "" {
		return fmt.Sprintf("%s: </%s> at %d, expected </%s>", d.Kind, d.Name, d.Offset, d.Expected)
	}
	return fmt.Sprintf("%s: </%s> at %d", d.Kind, d.Name, d.Offset)
}
