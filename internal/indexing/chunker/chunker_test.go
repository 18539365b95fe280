package chunker

import (
	"reflect"
	"strings"
	"testing"
)

func TestChunkSingleSection(t *testing.T) {
	got := New(Options{}).Chunk("# Intro\n\nHello world.", DefaultOverlapWords)
	if len(got) != 1 {
		t.Fatalf("chunks: want=1 got=%d (%+v)", len(got), got)
	}
	want := Chunk{SectionName: "Intro", Text: "Hello world.", ChunkIndex: 0, TotalChunks: 1}
	if got[0] != want {
		t.Fatalf("chunk: want=%+v got=%+v", want, got[0])
	}
}

func TestChunkDeterministic(t *testing.T) {
	body := "Preamble text.\n\n# One\n\n" + strings.Repeat("alpha beta gamma delta. ", 120) +
		"\n\n## Two\n\nsecond section\n\nmore text\n\n### Three\n\n#### deep heading stays\n\nbody"
	c := New(Options{MaxChars: 400})
	a := c.Chunk(body, 10)
	b := c.Chunk(body, 10)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("chunking is not deterministic")
	}
	for i, ch := range a {
		if ch.ChunkIndex != i || ch.TotalChunks != len(a) {
			t.Fatalf("chunk %d: index=%d total=%d", i, ch.ChunkIndex, ch.TotalChunks)
		}
	}
	if a[0].SectionName != "" || a[0].Text != "Preamble text." {
		t.Fatalf("preamble chunk: %+v", a[0])
	}
	last := a[len(a)-1]
	if last.SectionName != "Three" || !strings.Contains(last.Text, "#### deep heading stays") {
		t.Fatalf("deeper headings should stay in the section text: %+v", last)
	}
}

func TestChunkEmptySectionYieldsNothing(t *testing.T) {
	got := New(Options{}).Chunk("# Empty\n\n   \n\n# Full\n\ncontent", 5)
	if len(got) != 1 || got[0].SectionName != "Full" {
		t.Fatalf("want only the non-empty section, got %+v", got)
	}
	if got := New(Options{}).Chunk("", 5); len(got) != 0 {
		t.Fatalf("empty body: want no chunks, got %d", len(got))
	}
}

func TestChunkOverlapSeedsNextChunk(t *testing.T) {
	p1 := strings.TrimSpace(strings.Repeat("one two three four five ", 6))
	p2 := strings.TrimSpace(strings.Repeat("six seven eight nine ten ", 6))
	body := "# S\n\n" + p1 + "\n\n" + p2
	c := New(Options{MaxChars: len(p1) + len(p2)})

	got := c.Chunk(body, 3)
	if len(got) != 2 {
		t.Fatalf("chunks: want=2 got=%d", len(got))
	}
	if got[0].Text != p1 {
		t.Fatalf("first chunk: %q", got[0].Text)
	}
	wantSecond := "three four five\n\n" + p2
	if got[1].Text != wantSecond {
		t.Fatalf("second chunk: want=%q got=%q", wantSecond, got[1].Text)
	}

	noOverlap := c.Chunk(body, 0)
	if noOverlap[1].Text != p2 {
		t.Fatalf("zero overlap should not seed: %q", noOverlap[1].Text)
	}
}

func TestChunkSplitsOversizeParagraph(t *testing.T) {
	body := strings.TrimSpace(strings.Repeat("word ", 100))
	c := New(Options{MaxChars: 50})
	got := c.Chunk(body, 0)
	if len(got) < 10 {
		t.Fatalf("expected the paragraph to be split, got %d chunks", len(got))
	}
	for _, ch := range got {
		if len(ch.Text) > 50 {
			t.Fatalf("chunk exceeds budget: %d chars", len(ch.Text))
		}
	}
}

func TestChunkIgnoresHeadingsInsideCodeFences(t *testing.T) {
	body := "# Install\n\nRun:\n\n```sh\n# fetch deps\ngo mod download\n```\n\n~~~~\n## not a heading\n~~~~\n\n## Usage\n\ndone"
	got := New(Options{}).Chunk(body, 0)
	if len(got) != 2 {
		t.Fatalf("chunks: want=2 got=%d (%+v)", len(got), got)
	}
	if got[0].SectionName != "Install" || !strings.Contains(got[0].Text, "# fetch deps") || !strings.Contains(got[0].Text, "## not a heading") {
		t.Fatalf("fenced lines should stay in the Install section: %+v", got[0])
	}
	if got[1].SectionName != "Usage" || got[1].Text != "done" {
		t.Fatalf("second chunk: %+v", got[1])
	}
}
