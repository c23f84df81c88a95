package advisor

import "unicode"

const (
	chunkSize    = 1000
	chunkOverlap = 200
)

// splitText cuts text into overlapping windows of at most size runes.
// Consecutive chunks share overlap runes. Where possible a chunk ends at a
// whitespace boundary near its limit instead of mid-word.
func splitText(text string, size, overlap int) []string {
	if size <= 0 {
		return nil
	}
	if overlap >= size {
		overlap = size / 2
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		cut := breakPoint(runes, start, end)
		chunks = append(chunks, string(runes[start:cut]))

		next := cut - overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// breakPoint scans backwards from the chunk limit for a whitespace boundary,
// giving up after a tenth of the chunk and cutting hard.
func breakPoint(runes []rune, start, limit int) int {
	minCut := limit - (limit-start)/10
	for i := limit; i > minCut; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return limit
}
