package retrieval

import "sort"

// candidate is one entry of a per-index ranked list. Rank is implied by
// slice position (1-based).
type candidate struct {
	ordinal int
	score   float64
}

// fused is a document's accumulated RRF score before it is decorated with
// the document text.
type fused struct {
	ordinal int
	score   float64
}

// fuseRRF merges the vector and lexical candidate lists via weighted
// Reciprocal Rank Fusion:
//
//	score(d) = alpha * 1/(rank_vec(d) + damping) + (1-alpha) * 1/(rank_lex(d) + damping)
//
// Each list contributes only where the document appears; a document in both
// lists accumulates both terms. Documents absent from both lists score zero
// and are never part of the output — the result may therefore be shorter
// than topK. Ordering is by descending score with ties broken by ascending
// ordinal, so fusion is fully deterministic.
func fuseRRF(vectorHits, lexicalHits []candidate, topK int, alpha float64, damping int) []fused {
	if topK <= 0 {
		return nil
	}

	merged := make(map[int]float64, len(vectorHits)+len(lexicalHits))

	for i, c := range vectorHits {
		rank := i + 1
		merged[c.ordinal] += alpha / float64(rank+damping)
	}
	for i, c := range lexicalHits {
		rank := i + 1
		merged[c.ordinal] += (1 - alpha) / float64(rank+damping)
	}

	results := make([]fused, 0, len(merged))
	for ordinal, score := range merged {
		if score == 0 {
			// alpha 0 or 1 zeroes out one list's contributions entirely.
			continue
		}
		results = append(results, fused{ordinal: ordinal, score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].ordinal < results[j].ordinal
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}
