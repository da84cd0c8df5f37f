// Package vector provides exact L2 nearest-neighbor search over the corpus
// embedding vectors. The corpus is FAQ-scale (hundreds to low thousands of
// entries), so a flat scan is both exact and fast enough; an approximate
// structure can replace it behind the same contract if the corpus outgrows it.
package vector

import (
	"fmt"
	"sort"
)

// Hit is one nearest-neighbor result.
type Hit struct {
	Ordinal  int
	Distance float64
}

// Index holds all document embedding vectors, one per corpus ordinal.
// Built once at startup, read-only thereafter; safe for unlimited
// concurrent readers.
type Index struct {
	dim     int
	vectors [][]float32
}

// New builds an index over the given vectors. Every vector must have the
// same dimension. Vectors are expected to be L2-normalized by the embedding
// transform that produced them; this is not re-checked here.
func New(vectors [][]float32, dim int) (*Index, error) {
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim)
		}
	}
	return &Index{dim: dim, vectors: vectors}, nil
}

// Len returns the number of indexed vectors.
func (ix *Index) Len() int { return len(ix.vectors) }

// Dimensions returns the vector dimension.
func (ix *Index) Dimensions() int { return ix.dim }

// Search returns up to k nearest neighbors of query by squared L2 distance,
// ascending. Ties are broken by ordinal so results are deterministic.
// k larger than the corpus returns the whole corpus ranked.
func (ix *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != ix.dim {
		return nil, fmt.Errorf("query has dimension %d, want %d", len(query), ix.dim)
	}
	if k <= 0 || len(ix.vectors) == 0 {
		return nil, nil
	}
	if k > len(ix.vectors) {
		k = len(ix.vectors)
	}

	hits := make([]Hit, len(ix.vectors))
	for i, v := range ix.vectors {
		hits[i] = Hit{Ordinal: i, Distance: l2Squared(query, v)}
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Distance != hits[b].Distance {
			return hits[a].Distance < hits[b].Distance
		}
		return hits[a].Ordinal < hits[b].Ordinal
	})

	return hits[:k], nil
}

// Similarity converts an L2 distance into a positive higher-is-better score.
func Similarity(distance float64) float64 {
	return 1.0 / (1.0 + distance)
}

func l2Squared(a []float32, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
