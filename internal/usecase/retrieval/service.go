package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/neurostack/copilot/internal/domain"
	"github.com/neurostack/copilot/internal/index/lexical"
	"github.com/neurostack/copilot/internal/index/vector"
)

// Params are the fusion and relevance-gate tunables. Threshold is calibrated
// against Alpha and Damping; changing one means re-tuning the others.
type Params struct {
	TopK      int
	Alpha     float64
	Damping   int
	Threshold float64
}

// Service runs the hybrid retrieval pass: embed the query, rank it against
// both indexes, fuse the rankings.
type Service struct {
	embed   Embedder
	vectors VectorIndex
	lexicon LexicalIndex
	docs    DocumentStore
	params  Params
}

// New creates a retrieval service.
func New(embed Embedder, vectors VectorIndex, lexicon LexicalIndex, docs DocumentStore, params Params) *Service {
	return &Service{embed: embed, vectors: vectors, lexicon: lexicon, docs: docs, params: params}
}

// Retrieve returns the fused top-k results for a query plus the
// full-precision top score the relevance gate runs on. Result scores are
// rounded to 4 decimal digits; topScore is not.
func (s *Service) Retrieve(ctx context.Context, query string) ([]domain.FusedResult, float64, error) {
	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("vectorize query: %w", err)
	}

	// Each index contributes up to 2k candidates so documents ranked just
	// past k in one list can still be promoted by the other.
	poolSize := 2 * s.params.TopK

	hits, err := s.vectors.Search(emb.Embedding, poolSize)
	if err != nil {
		return nil, 0, fmt.Errorf("search vectors: %w", err)
	}
	vectorHits := make([]candidate, len(hits))
	for i, h := range hits {
		vectorHits[i] = candidate{ordinal: h.Ordinal, score: vector.Similarity(h.Distance)}
	}

	lexicalHits := topLexical(s.lexicon.Scores(lexical.Tokenize(query)), poolSize)

	fusedResults := fuseRRF(vectorHits, lexicalHits, s.params.TopK, s.params.Alpha, s.params.Damping)

	results := make([]domain.FusedResult, 0, len(fusedResults))
	var topScore float64
	for _, f := range fusedResults {
		doc, ok := s.docs.Document(f.ordinal)
		if !ok {
			continue
		}
		if f.score > topScore {
			topScore = f.score
		}
		results = append(results, domain.FusedResult{
			Ordinal:  doc.Ordinal,
			Question: doc.Question,
			Answer:   doc.Answer,
			Score:    round4(f.score),
			Source:   doc.Source,
		})
	}

	return results, topScore, nil
}

// Relevant is the pass/fail gate between retrieval and generation: strict
// greater-than on the full-precision top fused score. A zero topScore
// (empty result set) never passes.
func (s *Service) Relevant(topScore float64) bool {
	return topScore > s.params.Threshold
}

// topLexical converts a dense BM25 score array into a ranked candidate list.
// Only strictly positive scores qualify: a zero score means no lexical
// signal, not a weak candidate. Ties break by ordinal.
func topLexical(scores []float64, limit int) []candidate {
	candidates := make([]candidate, 0, limit)
	for ordinal, score := range scores {
		if score > 0 {
			candidates = append(candidates, candidate{ordinal: ordinal, score: score})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].ordinal < candidates[j].ordinal
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
