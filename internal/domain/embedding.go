package domain

// EmbeddingResult holds a query embedding and provider-reported token usage.
// The vector is L2-normalized by the embedder.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}
