package retrieval

import (
	"context"

	"github.com/neurostack/copilot/internal/domain"
	"github.com/neurostack/copilot/internal/index/vector"
)

// VectorIndex performs exact nearest-neighbor search over document embeddings.
type VectorIndex interface {
	Search(query []float32, k int) ([]vector.Hit, error)
}

// LexicalIndex scores every document against query tokens.
type LexicalIndex interface {
	Scores(queryTokens []string) []float64
}

// DocumentStore resolves ordinals to documents.
type DocumentStore interface {
	Document(ordinal int) (domain.Document, bool)
	Len() int
}

// Embedder vectorizes a query with the same transform that built the
// vector index.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
