package domain

// Document is one knowledge-base entry. Ordinal is the entry's position in
// the loaded corpus and doubles as its identifier everywhere: the vector at
// the same position in the vector artifact and the token list at the same
// position in the lexical snapshot both describe this document.
type Document struct {
	Ordinal  int
	Question string
	Answer   string
	Source   string
}

// FusedResult is a single hybrid-retrieval hit with its fused RRF score.
// It is the only retrieval structure exposed outside the retrieval usecase.
// Score is rounded to 4 decimal digits; internal fusion keeps full precision.
type FusedResult struct {
	Ordinal  int     `json:"-"`
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Score    float64 `json:"score"`
	Source   string  `json:"source"`
}
