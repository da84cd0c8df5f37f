// Package history serves a user's recorded exchanges back to them.
package history

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/neurostack/copilot/internal/domain"
)

// defaultLimit applies when the caller does not bound the read.
const defaultLimit = 50

// maxLimit caps a single read regardless of what the caller asks for.
const maxLimit = 200

// Service handles chat history reads.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// New creates a Service. repo can be nil (persistence disabled); reads then
// return domain.ErrStoreDisabled.
func New(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Recent returns up to n of the user's exchanges in chronological order.
// n <= 0 means the default page size.
func (s *Service) Recent(ctx context.Context, user string, n int) ([]domain.ChatMessage, error) {
	if s.repo == nil {
		return nil, domain.ErrStoreDisabled
	}
	if n <= 0 {
		n = defaultLimit
	}
	if n > maxLimit {
		n = maxLimit
	}

	msgs, err := s.repo.Recent(ctx, user, n)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return msgs, nil
}
