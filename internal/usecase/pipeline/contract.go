package pipeline

import (
	"context"

	"github.com/neurostack/copilot/internal/domain"
	"github.com/neurostack/copilot/internal/usecase/generation"
)

// Retriever runs the hybrid retrieval pass and the relevance gate.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (results []domain.FusedResult, topScore float64, err error)
	Relevant(topScore float64) bool
}

// Generator streams an answer for the query over the retrieved context.
type Generator interface {
	Generate(ctx context.Context, query, contextText string, emit func(token string) error) generation.Outcome
}

// HistoryWriter records a completed exchange for a user. Optional.
type HistoryWriter interface {
	Append(ctx context.Context, user, query, answer string) error
}

// UsageCounter bumps the per-day and all-time query counters. Optional.
type UsageCounter interface {
	IncrementQueries(ctx context.Context) error
}
