package selector

// PathSegment is one resolved ancestor of the queried offset.
type PathSegment struct {
	Name string `json:"name" yaml:"name"`
	// Index is the 1-based nth-of-type position among same-named siblings.
	Index int `json:"index" yaml:"index"`
	// Identifier is a class qualifier such as ".card.wide", recovered from
	// the raw opening tag. It is informational and not rendered by Format.
	Identifier string `json:"identifier,omitempty" yaml:"identifier,omitempty"`
}

// Path is the ancestor chain of an offset, outermost element first.
type Path struct {
	Segments    []PathSegment `json:"segments" yaml:"segments"`
	Diagnostics []Diagnostic  `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// Empty reports whether the offset has no enclosing element.
func (p Path) Empty() bool {
	return len(p.Segments) == 0
}

// Selector renders the path with Format.
func (p Path) Selector() string {
	return Format(p.Segments)
}

// frame is one open element on the traversal stack. closed counts the
// element's children that have been fully closed, per tag name, and is what
// the next same-named child's nth-of-type index is derived from.
type frame struct {
	tok    Token
	index  int
	closed map[string]int
	// foreign is set when the frame's children are svg or math content.
	foreign bool
}

func (f *frame) closedChild(name string) {
	if f.closed == nil {
		f.closed = make(map[string]int)
	}
	f.closed[name]++
}

// isForeign reports whether an element named name, opened in a frame whose
// children are foreign content when parent is set, is an svg or math element.
// A trailing "/>" only closes foreign elements; in HTML it is ignored.
func isForeign(parent bool, name string) bool {
	return parent || name == "svg" || name == "math"
}

// integrationPoints are foreign elements whose children are HTML again.
var integrationPoints = map[string]bool{"foreignobject": true, "desc": true, "title": true}

// consumed reports whether tok lies before the query boundary. Opening tags
// count as soon as they start before the boundary, so an offset inside an
// opening tag's markup resolves to that element. Closing tags only count once
// they end at or before it, so an offset inside "</p>" still resolves to p.
func consumed(tok Token, boundary int) bool {
	if tok.End <= boundary {
		return true
	}
	return tok.Kind == OpenOrSelfContaining && tok.Start < boundary
}

// BuildPath scans tokens in document order up to boundary and returns the
// chain of elements still open at that point. Closed subtrees are popped
// wholesale and only bump their parent's same-name counter; ignored categories
// never touch the stack. Malformed markup never fails the scan: closing tags
// that do not match the innermost open element are skipped and reported in
// Path.Diagnostics.
func BuildPath(tokens []Token, boundary int) Path {
	// stack[0] is a sentinel standing for the document itself.
	stack := []*frame{{}}
	var diags []Diagnostic

	for _, tok := range tokens {
		if !consumed(tok, boundary) {
			break
		}
		if tok.Category.Ignored() {
			continue
		}
		top := stack[len(stack)-1]

		if tok.Kind == Close {
			switch {
			case len(stack) == 1:
				diags = append(diags, Diagnostic{Kind: StrayClose, Name: tok.Name, Offset: tok.Start})
			case top.tok.Name != tok.Name:
				diags = append(diags, Diagnostic{Kind: UnmatchedClose, Name: tok.Name, Expected: top.tok.Name, Offset: tok.Start})
			default:
				stack = stack[:len(stack)-1]
				stack[len(stack)-1].closedChild(tok.Name)
			}
			continue
		}

		foreign := isForeign(top.foreign, tok.Name)
		if tok.SelfClosing && foreign {
			top.closedChild(tok.Name)
			continue
		}
		stack = append(stack, &frame{
			tok:     tok,
			index:   top.closed[tok.Name] + 1,
			foreign: foreign && !integrationPoints[tok.Name],
		})
	}

	path := Path{Diagnostics: diags}
	if len(stack) > 1 {
		path.Segments = make([]PathSegment, 0, len(stack)-1)
		for _, f := range stack[1:] {
			path.Segments = append(path.Segments, PathSegment{
				Name:       f.tok.Name,
				Index:      f.index,
				Identifier: ClassIdentifier(f.tok.Raw),
			})
		}
	}
	return path
}
