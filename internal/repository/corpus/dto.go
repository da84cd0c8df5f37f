package corpus

// vectorArtifact mirrors the vector index file written by the offline
// indexing job: one L2-normalized embedding per document, in corpus order.
type vectorArtifact struct {
	Model      string      `json:"model"`
	Dimensions int         `json:"dimensions"`
	Vectors    [][]float32 `json:"vectors"`
}

// lexicalArtifact mirrors the lexical snapshot: the pre-tokenized questions
// BM25 statistics are derived from, plus the document texts themselves.
// All five slices are parallel, indexed by document ordinal.
type lexicalArtifact struct {
	Model     string     `json:"model"`
	Tokenized [][]string `json:"tokenized"`
	Questions []string   `json:"questions"`
	Answers   []string   `json:"answers"`
	Sources   []string   `json:"sources"`
}
