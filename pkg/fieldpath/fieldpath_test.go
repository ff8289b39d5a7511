package fieldpath

import (
	"strings"
	"testing"
)

func TestNormalizeDottedToSlash(t *testing.T) {
	if got := Normalize("user.name"); got != "/user/name" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	if got := Normalize(""); got != "/" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeAlreadySlashed(t *testing.T) {
	if got := Normalize("/a/b"); got != "/a/b" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeEscapedSegment(t *testing.T) {
	// The escapes must survive Normalize verbatim: decoding "~1" to a
	// literal '/' here would make it indistinguishable from a real
	// segment separator once the path is split again.
	if got := Normalize("a~1b.c~0d"); got != "/a~1b/c~0d" {
		t.Fatalf("got %q", got)
	}
}

func TestUnescapeSegmentDecodesEscapes(t *testing.T) {
	if got := UnescapeSegment("a~1b"); got != "a/b" {
		t.Fatalf("got %q", got)
	}
	if got := UnescapeSegment("c~0d"); got != "c~d" {
		t.Fatalf("got %q", got)
	}
	if got := UnescapeSegment("plain"); got != "plain" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeThenUnescapeRoundTripsSlashSegment(t *testing.T) {
	// A field literally named "a/b", addressed as "a~1b" in dotted
	// input, must resolve to exactly one segment after normalize+split,
	// not two.
	canonical := Normalize("a~1b")
	segments := strings.Split(strings.TrimPrefix(canonical, "/"), "/")
	if len(segments) != 1 {
		t.Fatalf("expected a single segment, got %#v", segments)
	}
	if got := UnescapeSegment(segments[0]); got != "a/b" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	once := Normalize("user.name")
	twice := Normalize(once)
	if once != twice {
		t.Fatalf("normalize not idempotent: %q vs %q", once, twice)
	}
}
