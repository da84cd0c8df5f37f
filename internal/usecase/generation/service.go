// Package generation orchestrates streaming text generation against one
// backend provider, selected once at startup. Backend failures never escape:
// every failure mode degrades into a single fallback token so the caller's
// stream always terminates with content.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/neurostack/copilot/internal/domain"
	"github.com/neurostack/copilot/internal/metrics"
)

// FallbackAnswer is the single token emitted when the backend fails.
const FallbackAnswer = "Sorry, I'm having trouble connecting to the model right now. Please try again in a moment."

// FailureKind tags why a generation pass fell back.
type FailureKind string

const (
	FailureNone    FailureKind = ""
	FailureNetwork FailureKind = "network"
	FailureAuth    FailureKind = "auth"
	FailureParse   FailureKind = "parse"
	FailureTimeout FailureKind = "timeout"
)

// Outcome reports how a generation pass ended. Exactly one of three shapes:
// answered (tokens streamed to completion), fallback (backend failed, the
// apology token was emitted, Failure says why), or aborted (the caller went
// away; nothing more was emitted).
type Outcome struct {
	Answered bool
	Aborted  bool
	Failure  FailureKind
}

// errEmit marks errors returned by the caller's emit function, so transport
// failures are not mistaken for backend failures.
type errEmit struct{ err error }

func (e *errEmit) Error() string { return "emit token: " + e.err.Error() }
func (e *errEmit) Unwrap() error { return e.err }

// Options bound a generation pass.
type Options struct {
	Temperature   float64
	ContextWindow int
	Timeout       time.Duration
}

// Orchestrator drives one provider with a fixed timeout and fallback policy.
// There are no retries: a single failure goes straight to the fallback token.
type Orchestrator struct {
	provider Provider
	opts     Options
	logger   *zap.Logger
}

// New creates an orchestrator for the configured provider.
func New(provider Provider, opts Options, logger *zap.Logger) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	return &Orchestrator{provider: provider, opts: opts, logger: logger}
}

// Generate streams tokens for the query over the retrieved context, calling
// emit once per token. The stream is single-pass and not restartable.
func (o *Orchestrator) Generate(ctx context.Context, query, contextText string, emit func(token string) error) Outcome {
	ctx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()

	req := Request{
		Prompt:        buildPrompt(query, contextText),
		Temperature:   o.opts.Temperature,
		ContextWindow: o.opts.ContextWindow,
	}

	start := time.Now()
	err := o.provider.Stream(ctx, req, func(token string) error {
		if emitErr := emit(token); emitErr != nil {
			return &errEmit{err: emitErr}
		}
		metrics.GenerationTokensTotal.WithLabelValues(o.provider.Name()).Inc()
		return nil
	})
	duration := time.Since(start)

	if err == nil {
		metrics.GenerationRequestsTotal.WithLabelValues(o.provider.Name(), "success").Inc()
		metrics.GenerationRequestDuration.WithLabelValues(o.provider.Name()).Observe(duration.Seconds())
		return Outcome{Answered: true}
	}

	var emitFailure *errEmit
	if errors.As(err, &emitFailure) {
		// The caller is gone; do not emit the fallback into the void.
		o.logger.Warn("generation stream aborted by caller",
			zap.String("provider", o.provider.Name()),
			zap.Error(emitFailure.err),
		)
		metrics.GenerationRequestsTotal.WithLabelValues(o.provider.Name(), "aborted").Inc()
		return Outcome{Aborted: true}
	}

	kind := classify(err)
	o.logger.Warn("generation backend failed, falling back",
		zap.String("provider", o.provider.Name()),
		zap.String("failure", string(kind)),
		zap.Duration("after", duration),
		zap.Error(err),
	)
	metrics.GenerationRequestsTotal.WithLabelValues(o.provider.Name(), "fallback").Inc()
	metrics.GenerationFailuresTotal.WithLabelValues(o.provider.Name(), string(kind)).Inc()

	if emitErr := emit(FallbackAnswer); emitErr != nil {
		return Outcome{Aborted: true}
	}
	return Outcome{Failure: kind}
}

// CheckBackend probes the provider outside a query, for health reporting.
func (o *Orchestrator) CheckBackend(ctx context.Context) error {
	type checker interface {
		HealthCheck(ctx context.Context) error
	}
	if c, ok := o.provider.(checker); ok {
		if err := c.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", o.provider.Name(), err)
		}
	}
	return nil
}

func classify(err error) FailureKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, domain.ErrGenerationTimeout):
		return FailureTimeout
	case errors.Is(err, domain.ErrGenerationAuth):
		return FailureAuth
	case errors.Is(err, domain.ErrGenerationParse):
		return FailureParse
	default:
		return FailureNetwork
	}
}
