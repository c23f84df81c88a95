package advisor

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
)

// bagOfWordsEmbedder is a deterministic embedder for tests: each text maps
// to a bag-of-words vector hashed into a fixed number of dimensions, so
// texts sharing words score higher under cosine similarity.
type bagOfWordsEmbedder struct {
	failures int
}

func (e *bagOfWordsEmbedder) Name() string { return "test/bag-of-words" }

func (e *bagOfWordsEmbedder) Register(api.Registry) {}

func (e *bagOfWordsEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	if e.failures > 0 {
		e.failures--
		return nil, errors.New("embedding backend unavailable")
	}

	resp := &ai.EmbedResponse{}
	for _, doc := range req.Input {
		var text strings.Builder
		for _, part := range doc.Content {
			text.WriteString(part.Text)
		}
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{Embedding: embedWords(text.String())})
	}
	return resp, nil
}

func embedWords(text string) []float32 {
	const dimensions = 16
	vector := make([]float32, dimensions)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?\"'")
		hasher := fnv.New32a()
		hasher.Write([]byte(word))
		vector[hasher.Sum32()%dimensions]++
	}
	return vector
}

func TestBuildIndexEmptyChunks(t *testing.T) {
	index, err := buildIndex(context.Background(), &bagOfWordsEmbedder{}, nil)
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	results, err := index.search(context.Background(), "anything", 2)
	if err != nil {
		t.Fatalf("unexpected search error: %v", err)
	}
	if results != nil {
		t.Fatalf("expected no results, got %v", results)
	}
}

func TestSearchRanksBySimilarity(t *testing.T) {
	chunks := []string{
		"The Louvre closes on Tuesdays",
		"Best croissants are found near the river",
		"The metro runs until midnight",
	}
	index, err := buildIndex(context.Background(), &bagOfWordsEmbedder{}, chunks)
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}

	results, err := index.search(context.Background(), "When is the Louvre closed on Tuesdays?", 2)
	if err != nil {
		t.Fatalf("unexpected search error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0] != "The Louvre closes on Tuesdays" {
		t.Fatalf("expected Louvre chunk first, got %q", results[0])
	}
}

func TestSearchCapsTopKToEntries(t *testing.T) {
	index, err := buildIndex(context.Background(), &bagOfWordsEmbedder{}, []string{"only one chunk"})
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	results, err := index.search(context.Background(), "chunk", 5)
	if err != nil {
		t.Fatalf("unexpected search error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestBuildIndexPropagatesEmbedderFailure(t *testing.T) {
	_, err := buildIndex(context.Background(), &bagOfWordsEmbedder{failures: 1}, []string{"chunk"})
	if err == nil {
		t.Fatal("expected embedder failure")
	}
}

func TestCosineSimilarityBounds(t *testing.T) {
	if got := cosineSimilarity([]float32{1, 0}, []float32{1, 0}); got < 0.999 {
		t.Fatalf("identical vectors should score 1, got %v", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Fatalf("orthogonal vectors should score 0, got %v", got)
	}
	if got := cosineSimilarity([]float32{1}, []float32{1, 2}); got != 0 {
		t.Fatalf("mismatched lengths should score 0, got %v", got)
	}
}
