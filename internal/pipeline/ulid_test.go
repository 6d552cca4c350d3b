package pipeline

import (
	"strings"
	"testing"
	"time"
)

func TestNewJobID_Format(t *testing.T) {
	id := NewJobID()
	if len(id) != 26 {
		t.Fatalf("expected 26 characters, got %d (%q)", len(id), id)
	}
	for _, c := range id {
		if !strings.ContainsRune(crockford, c) {
			t.Fatalf("unexpected character %q in %q", c, id)
		}
	}
}

func TestNewULID_TimestampPrefix(t *testing.T) {
	id := newULID(time.UnixMilli(1469918176385))
	if !strings.HasPrefix(id, "01ARYZ6S41") {
		t.Errorf("expected timestamp prefix 01ARYZ6S41, got %q", id)
	}
}

func TestNewULID_MonotonicWithinMillisecond(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	prev := newULID(now)
	for range 100 {
		next := newULID(now)
		if next <= prev {
			t.Fatalf("expected %q > %q", next, prev)
		}
		prev = next
	}
}

func TestEncodeULID_Bounds(t *testing.T) {
	var zero [16]byte
	if got := encodeULID(zero); got != strings.Repeat("0", 26) {
		t.Errorf("unexpected zero encoding %q", got)
	}
	var ones [16]byte
	for i := range ones {
		ones[i] = 0xFF
	}
	if got := encodeULID(ones); got != "7"+strings.Repeat("Z", 25) {
		t.Errorf("unexpected max encoding %q", got)
	}
}
