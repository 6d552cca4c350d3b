package tagscan

import (
	"reflect"
	"testing"
)

const sample = `<div class="a"><p>hi</p><br/></div>`

func TestElements_OpenCloseAndSelfClosing(t *testing.T) {
	got := Elements(sample)
	want := []string{`<div class="a`, `<p>`, `</p>`, `<br`, `</div>`}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestElementNames_OnePerElement(t *testing.T) {
	got := ElementNames(sample)
	want := []string{"div", "p", "p", "br", "div"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestClosedElements(t *testing.T) {
	got := ClosedElements(sample)
	want := []string{"</p>", "</div>"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSelfClosingElements(t *testing.T) {
	got := SelfClosingElements(sample)
	want := []string{"<br/>"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestOpenElements(t *testing.T) {
	if n := len(OpenElements("<p>x</p>")); n != 1 {
		t.Errorf("expected 1 open element, got %d", n)
	}
	if n := len(OpenElements("</p>")); n != 0 {
		t.Errorf("expected 0 open elements for a closing tag, got %d", n)
	}
	got := OpenElements("<img src=x>")
	if len(got) != 1 || got[0] != "<img src=x>" {
		t.Errorf("expected [<img src=x>], got %q", got)
	}
}

func TestEmptyInputReturnsEmptySlices(t *testing.T) {
	for name, fn := range map[string]func(string) []string{
		"Elements":            Elements,
		"ClosedElements":      ClosedElements,
		"OpenElements":        OpenElements,
		"SelfClosingElements": SelfClosingElements,
		"ElementNames":        ElementNames,
	} {
		got := fn("no markup here")
		if got == nil || len(got) != 0 {
			t.Errorf("%s: expected empty non-nil slice, got %#v", name, got)
		}
	}
}

func TestElementSpans(t *testing.T) {
	got := ElementSpans("a<p>b</p>")
	want := []Span{{Start: 1, End: 4}, {Start: 5, End: 9}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestElementName(t *testing.T) {
	cases := map[string]string{
		"<p>":             "p",
		"</p>":            "p",
		"< / span >":      "span",
		`<a href="x`:      "a",
		"<!-- c -->":      "!--",
		"<!DOCTYPE html>": "!DOCTYPE",
		"<br/>":           "br",
		"<":               "",
	}
	for in, want := range cases {
		if got := ElementName(in); got != want {
			t.Errorf("ElementName(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestIsClosing(t *testing.T) {
	if !IsClosing("</p>") || !IsClosing("< /p>") {
		t.Error("expected closing tags to be recognised")
	}
	if IsClosing("<p>") || IsClosing("<br/>") {
		t.Error("expected opening tags not to be closing")
	}
}

func TestTagEnd_ExtendsPastQuotedAttribute(t *testing.T) {
	text := `<a title="b">z`
	loc := ElementSpans(text)[0]
	if loc.End != len(`<a title="b`) {
		t.Fatalf("expected regex match to stop before the quote, got end %d", loc.End)
	}
	if got := TagEnd(text, loc.Start, loc.End); got != len(`<a title="b">`) {
		t.Errorf("expected tag end %d, got %d", len(`<a title="b">`), got)
	}
}

func TestTagEnd_MultiLineTag(t *testing.T) {
	text := "<a\nhref=\"x\">"
	loc := ElementSpans(text)[0]
	if got := TagEnd(text, loc.Start, loc.End); got != len(text) {
		t.Errorf("expected tag end %d, got %d", len(text), got)
	}
}

func TestTagEnd_StopsAtNextTag(t *testing.T) {
	text := "<a <b>"
	loc := ElementSpans(text)[0]
	if got := TagEnd(text, loc.Start, loc.End); got != 2 {
		t.Errorf("expected match end 2 to be kept, got %d", got)
	}
}

func TestCommentEnd(t *testing.T) {
	text := "<!-- <p> --><p>"
	if got := CommentEnd(text, 0); got != len("<!-- <p> -->") {
		t.Errorf("expected %d, got %d", len("<!-- <p> -->"), got)
	}
	if got := CommentEnd("<!-- open", 0); got != len("<!-- open") {
		t.Errorf("expected unterminated comment to run to end, got %d", got)
	}
	for _, empty := range []string{"<!-->", "<!--->"} {
		text := "a " + empty + " <p>x</p>"
		if got := CommentEnd(text, 2); got != 2+len(empty) {
			t.Errorf("%s: expected comment to end at %d, got %d", empty, 2+len(empty), got)
		}
	}
	if got := CommentEnd("<!---->", 0); got != len("<!---->") {
		t.Errorf("expected <!----> to end at its own terminator, got %d", got)
	}
}
