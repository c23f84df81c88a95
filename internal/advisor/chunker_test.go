package advisor

import (
	"strings"
	"testing"
)

func TestSplitTextShortTextSingleChunk(t *testing.T) {
	chunks := splitText("The Louvre closes on Tuesdays", chunkSize, chunkOverlap)
	if len(chunks) != 1 {
		t.Fatalf("expected single chunk, got %d", len(chunks))
	}
	if chunks[0] != "The Louvre closes on Tuesdays" {
		t.Fatalf("unexpected chunk content: %q", chunks[0])
	}
}

func TestSplitTextEmptyText(t *testing.T) {
	if chunks := splitText("", chunkSize, chunkOverlap); chunks != nil {
		t.Fatalf("expected no chunks, got %v", chunks)
	}
}

func TestSplitTextRespectsSizeBound(t *testing.T) {
	text := strings.Repeat("word ", 600) // 3000 runes
	chunks := splitText(text, chunkSize, chunkOverlap)

	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if length := len([]rune(chunk)); length > chunkSize {
			t.Fatalf("chunk %d exceeds size bound: %d runes", i, length)
		}
	}
}

func TestSplitTextOverlapsChunks(t *testing.T) {
	text := strings.Repeat("abcdefghij ", 30) // 330 runes
	chunks := splitText(text, 100, 20)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		previous := []rune(chunks[i-1])
		tail := string(previous[len(previous)-10:])
		if !strings.Contains(chunks[i], strings.TrimSpace(tail)) {
			t.Fatalf("chunk %d does not overlap its predecessor", i)
		}
	}
}

func TestSplitTextPrefersWhitespaceBreaks(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet ", 50)
	chunks := splitText(text, 100, 20)

	for i, chunk := range chunks[:len(chunks)-1] {
		if strings.HasSuffix(chunk, "lor") || strings.HasSuffix(chunk, "ips") {
			t.Fatalf("chunk %d cut mid-word: %q", i, chunk[len(chunk)-10:])
		}
	}
}
