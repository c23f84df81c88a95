package advisor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/firebase/genkit/go/ai"
)

// indexEntry pairs a text chunk with its embedding vector.
type indexEntry struct {
	content string
	vector  []float32
}

// noteIndex is an in-memory similarity index over note chunks. It is built
// per query and owned by a single request, so it carries no locking.
type noteIndex struct {
	embedder ai.Embedder
	entries  []indexEntry
}

// buildIndex embeds the provided chunks in one batch and returns a
// searchable index. An empty chunk list yields an empty index.
func buildIndex(ctx context.Context, embedder ai.Embedder, chunks []string) (*noteIndex, error) {
	index := &noteIndex{embedder: embedder}
	if len(chunks) == 0 {
		return index, nil
	}

	documents := make([]*ai.Document, 0, len(chunks))
	for _, chunk := range chunks {
		documents = append(documents, ai.DocumentFromText(chunk, nil))
	}

	resp, err := embedder.Embed(ctx, &ai.EmbedRequest{Input: documents})
	if err != nil {
		return nil, fmt.Errorf("embedding chunks: %w", err)
	}
	if len(resp.Embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(resp.Embeddings), len(chunks))
	}

	index.entries = make([]indexEntry, len(chunks))
	for i, chunk := range chunks {
		index.entries[i] = indexEntry{content: chunk, vector: resp.Embeddings[i].Embedding}
	}
	return index, nil
}

// search returns the topK chunks most similar to the query by cosine
// similarity of their embeddings.
func (idx *noteIndex) search(ctx context.Context, query string, topK int) ([]string, error) {
	if len(idx.entries) == 0 || topK <= 0 {
		return nil, nil
	}

	resp, err := idx.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(query, nil)},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, errors.New("embedder returned no query vector")
	}
	queryVector := resp.Embeddings[0].Embedding

	type scored struct {
		entry indexEntry
		score float64
	}
	ranked := make([]scored, len(idx.entries))
	for i, entry := range idx.entries {
		ranked[i] = scored{entry: entry, score: cosineSimilarity(queryVector, entry.vector)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if topK > len(ranked) {
		topK = len(ranked)
	}
	results := make([]string, topK)
	for i := 0; i < topK; i++ {
		results[i] = ranked[i].entry.content
	}
	return results, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
