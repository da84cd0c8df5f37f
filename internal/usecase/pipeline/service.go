// Package pipeline coordinates one query end to end: hybrid retrieval, the
// relevance gate, streaming generation, and the terminal answer/chunks pair.
// Every accepted stream ends with exactly one answer event followed by
// exactly one chunks event, whatever the generation backend did.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/neurostack/copilot/internal/domain"
	"github.com/neurostack/copilot/internal/metrics"
)

const (
	// RefusalAnswer is returned when retrieval finds nothing relevant enough.
	RefusalAnswer = "I don't have enough information to answer this accurately."
	// NoAnswerText replaces an empty accumulated generation.
	NoAnswerText = "No answer generated."
)

// Request is one pipeline query. User is optional and only drives history.
type Request struct {
	Query string
	User  string
}

// Service runs the query pipeline.
type Service struct {
	retriever Retriever
	generator Generator
	history   HistoryWriter // optional
	counter   UsageCounter  // optional
	logger    *zap.Logger
}

// New creates a pipeline service. history and counter can be nil.
func New(retriever Retriever, generator Generator, history HistoryWriter, counter UsageCounter, logger *zap.Logger) *Service {
	return &Service{
		retriever: retriever,
		generator: generator,
		history:   history,
		counter:   counter,
		logger:    logger,
	}
}

// Query runs retrieval synchronously, then streams the response events.
// A retrieval error (embedding backend down) is returned before any event
// is produced, so transports can still send an error status. Once a channel
// is returned it always closes after the terminal answer+chunks pair, unless
// ctx is cancelled first.
func (s *Service) Query(ctx context.Context, req Request) (<-chan domain.StreamEvent, error) {
	start := time.Now()
	results, topScore, err := s.retriever.Retrieve(ctx, req.Query)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	metrics.RetrievalDuration.Observe(time.Since(start).Seconds())
	metrics.RetrievalTopScore.Observe(topScore)

	s.countQuery(ctx)

	events := make(chan domain.StreamEvent)
	if !s.retriever.Relevant(topScore) {
		s.logger.Info("query rejected by relevance gate",
			zap.Float64("top_score", topScore))
		go s.refuse(ctx, req, events)
		return events, nil
	}

	s.logger.Debug("query accepted",
		zap.Float64("top_score", topScore),
		zap.Int("chunks", len(results)))
	go s.generate(ctx, req, results, events)
	return events, nil
}

// refuse emits the terminal pair for a gated query: the refusal answer and
// an empty chunks list.
func (s *Service) refuse(ctx context.Context, req Request, events chan<- domain.StreamEvent) {
	defer close(events)

	metrics.QueriesTotal.WithLabelValues("rejected").Inc()

	if !s.send(ctx, events, domain.AnswerEvent(RefusalAnswer)) {
		return
	}
	if !s.send(ctx, events, domain.ChunksEvent(nil)) {
		return
	}
	s.recordHistory(req, RefusalAnswer)
}

// generate streams tokens from the backend, then the terminal pair. The
// accumulated token text becomes the answer; backend failures surface as the
// orchestrator's fallback token and still terminate normally.
func (s *Service) generate(ctx context.Context, req Request, results []domain.FusedResult, events chan<- domain.StreamEvent) {
	defer close(events)

	var acc strings.Builder
	emit := func(token string) error {
		acc.WriteString(token)
		if !s.send(ctx, events, domain.TokenEvent(token)) {
			return ctx.Err()
		}
		return nil
	}

	outcome := s.generator.Generate(ctx, req.Query, contextBlock(results), emit)
	if outcome.Aborted {
		metrics.QueriesTotal.WithLabelValues("aborted").Inc()
		return
	}

	answer := strings.TrimSpace(acc.String())
	if answer == "" {
		answer = NoAnswerText
	}

	if !s.send(ctx, events, domain.AnswerEvent(answer)) {
		return
	}
	if !s.send(ctx, events, domain.ChunksEvent(results)) {
		return
	}

	if outcome.Answered {
		metrics.QueriesTotal.WithLabelValues("answered").Inc()
	} else {
		metrics.QueriesTotal.WithLabelValues("fallback").Inc()
	}
	s.recordHistory(req, answer)
}

// send delivers one event unless the caller's context ends first.
func (s *Service) send(ctx context.Context, events chan<- domain.StreamEvent, ev domain.StreamEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// countQuery bumps usage counters, best-effort.
func (s *Service) countQuery(ctx context.Context) {
	if s.counter == nil {
		return
	}
	if err := s.counter.IncrementQueries(ctx); err != nil {
		s.logger.Warn("query counter increment failed", zap.Error(err))
	}
}

// recordHistory appends the finished exchange, best-effort. Runs off the
// request context so a client disconnect right after the terminal pair does
// not lose the entry.
func (s *Service) recordHistory(req Request, answer string) {
	if s.history == nil || req.User == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.history.Append(ctx, req.User, req.Query, answer); err != nil {
		s.logger.Warn("history append failed", zap.Error(err))
	}
}

// contextBlock formats retrieved documents for the generation prompt.
func contextBlock(results []domain.FusedResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, "Q: "+r.Question+"\nA: "+r.Answer)
	}
	return strings.Join(parts, "\n\n")
}
