package ident

import (
	"testing"

	"github.com/google/uuid"
)

func TestContentHash(t *testing.T) {
	// sha256("")
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := ContentHash(""); got != empty {
		t.Fatalf("ContentHash(\"\"): want=%s got=%s", empty, got)
	}
	if ContentHash("# Intro\n\nHello world.") == ContentHash("# Intro\n\nHello world, updated.") {
		t.Fatalf("different content must hash differently")
	}
}

func TestDocID(t *testing.T) {
	a := DocID("guides/setup.md")
	if len(a) != 32 {
		t.Fatalf("DocID length: want=32 got=%d", len(a))
	}
	if b := DocID("  guides/setup.md\n"); b != a {
		t.Fatalf("DocID should ignore surrounding whitespace: %s vs %s", a, b)
	}
	if DocID("guides/other.md") == a {
		t.Fatalf("different paths must not share a DocID")
	}
}

func TestChunkID(t *testing.T) {
	a := ChunkID("a.md", 0)
	if a != ChunkID("a.md", 0) {
		t.Fatalf("ChunkID must be deterministic")
	}
	if a == ChunkID("a.md", 1) || a == ChunkID("b.md", 0) {
		t.Fatalf("ChunkID collision")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Fatalf("ChunkID should be a uuid: %v", err)
	}
}
