// Package feedback validates and records answer feedback and serves the
// analytics report.
package feedback

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/neurostack/copilot/internal/domain"
)

// Service handles feedback recording and analytics.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// New creates a Service. repo can be nil (persistence disabled); operations
// then return domain.ErrStoreDisabled.
func New(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Record validates and persists one feedback entry.
func (s *Service) Record(ctx context.Context, fb domain.Feedback) error {
	if s.repo == nil {
		return domain.ErrStoreDisabled
	}
	if strings.TrimSpace(fb.Query) == "" {
		return fmt.Errorf("query is required: %w", domain.ErrInvalidFeedback)
	}

	if err := s.repo.Record(ctx, fb); err != nil {
		return fmt.Errorf("record feedback: %w", err)
	}

	s.logger.Info("feedback recorded",
		zap.Bool("helpful", fb.Helpful),
		zap.Bool("has_comment", fb.Comment != ""))
	return nil
}

// Analytics returns the usage and feedback counters.
func (s *Service) Analytics(ctx context.Context) (domain.Analytics, error) {
	if s.repo == nil {
		return domain.Analytics{}, domain.ErrStoreDisabled
	}

	a, err := s.repo.Analytics(ctx)
	if err != nil {
		return domain.Analytics{}, fmt.Errorf("load analytics: %w", err)
	}
	return a, nil
}
