package chunker

import (
	"strings"
	"testing"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "w" + string(rune('a'+i%26))
	}
	return strings.Join(parts, " ")
}

func TestChunk_Empty(t *testing.T) {
	c := New(10, 2)
	if got := c.Chunk(""); got != nil {
		t.Errorf("empty text should yield no chunks, got %d", len(got))
	}
	if got := c.Chunk("   \n\t  "); got != nil {
		t.Errorf("whitespace-only text should yield no chunks, got %d", len(got))
	}
}

func TestChunk_SingleWindow(t *testing.T) {
	c := New(10, 2)
	chunks := c.Chunk("one two three")
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	ch := chunks[0]
	if ch.Text != "one two three" {
		t.Errorf("text = %q", ch.Text)
	}
	if ch.Index != 1 || !ch.IsFirst || !ch.IsLast {
		t.Errorf("flags = %+v", ch)
	}
}

func TestChunk_OverlapAndCoverage(t *testing.T) {
	c := New(4, 1)
	text := "a b c d e f g h i"
	chunks := c.Chunk(text)
	// step 3: [a..d] [d..g] [g..i]
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks: %+v", len(chunks), chunks)
	}
	if chunks[0].Text != "a b c d" || chunks[1].Text != "d e f g" || chunks[2].Text != "g h i" {
		t.Errorf("chunks = %q %q %q", chunks[0].Text, chunks[1].Text, chunks[2].Text)
	}
	if !chunks[0].IsFirst || chunks[1].IsFirst {
		t.Error("IsFirst wrong")
	}
	if !chunks[2].IsLast || chunks[1].IsLast {
		t.Error("IsLast wrong")
	}
	for i, ch := range chunks {
		if ch.Index != i+1 {
			t.Errorf("chunk %d has index %d", i, ch.Index)
		}
	}

	// Every input word appears in at least one chunk.
	seen := make(map[string]bool)
	for _, ch := range chunks {
		for _, w := range strings.Fields(ch.Text) {
			seen[w] = true
		}
	}
	for _, w := range strings.Fields(text) {
		if !seen[w] {
			t.Errorf("word %q lost", w)
		}
	}
}

func TestChunk_MaxWidth(t *testing.T) {
	c := New(7, 3)
	for _, ch := range c.Chunk(words(100)) {
		if n := len(strings.Fields(ch.Text)); n > 7 {
			t.Errorf("chunk %d has %d words", ch.Index, n)
		}
	}
}

func TestChunk_DegenerateOverlapTerminates(t *testing.T) {
	// overlap >= target forces a one-word step.
	c := New(3, 5)
	chunks := c.Chunk("a b c d e")
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks", len(chunks))
	}
	if chunks[0].Text != "a b c" || chunks[1].Text != "b c d" || chunks[2].Text != "c d e" {
		t.Errorf("chunks = %+v", chunks)
	}
	if !chunks[2].IsLast {
		t.Error("final chunk not marked last")
	}
}

func TestChunk_ExactMultiple(t *testing.T) {
	// The window landing exactly on the end is the last chunk; no empty
	// trailing chunk is emitted.
	c := New(3, 0)
	chunks := c.Chunk("a b c d e f")
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks: %+v", len(chunks), chunks)
	}
	if !chunks[1].IsLast {
		t.Error("second chunk should be last")
	}
}
