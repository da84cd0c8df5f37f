// Package lexical provides BM25 (Okapi) scoring over the tokenized corpus
// questions. Term statistics are derived from the pre-tokenized question
// lists in the lexical snapshot, so scoring matches the tokenization that
// built the artifact: lower-case, whitespace split, no stemming.
package lexical

import (
	"math"
	"strings"
)

// Okapi BM25 parameters, matching the snapshot builder.
const (
	k1 = 1.5
	b  = 0.75
)

// Index holds per-document term frequencies and corpus statistics for BM25.
// Built once at startup, read-only thereafter.
type Index struct {
	termFreqs []map[string]int
	docLens   []int
	avgDocLen float64
	idf       map[string]float64
}

// New builds a BM25 index from pre-tokenized documents.
func New(tokenized [][]string) *Index {
	ix := &Index{
		termFreqs: make([]map[string]int, len(tokenized)),
		docLens:   make([]int, len(tokenized)),
		idf:       make(map[string]float64),
	}

	docFreqs := make(map[string]int)
	totalLen := 0
	for i, tokens := range tokenized {
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		for term := range tf {
			docFreqs[term]++
		}
		ix.termFreqs[i] = tf
		ix.docLens[i] = len(tokens)
		totalLen += len(tokens)
	}

	if len(tokenized) > 0 {
		ix.avgDocLen = float64(totalLen) / float64(len(tokenized))
	}

	n := float64(len(tokenized))
	for term, df := range docFreqs {
		ix.idf[term] = math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
	}

	return ix
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int { return len(ix.termFreqs) }

// Scores returns one BM25 score per document, in document order.
// Empty query tokens yield an all-zero array.
func (ix *Index) Scores(queryTokens []string) []float64 {
	scores := make([]float64, len(ix.termFreqs))
	if len(queryTokens) == 0 || ix.avgDocLen == 0 {
		return scores
	}

	for _, term := range queryTokens {
		idf, ok := ix.idf[term]
		if !ok {
			continue
		}
		for doc, tf := range ix.termFreqs {
			freq := float64(tf[term])
			if freq == 0 {
				continue
			}
			norm := k1 * (1 - b + b*float64(ix.docLens[doc])/ix.avgDocLen)
			scores[doc] += idf * freq * (k1 + 1) / (freq + norm)
		}
	}

	return scores
}

// Tokenize applies the corpus tokenization to a raw query: lower-case,
// split on whitespace.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}
