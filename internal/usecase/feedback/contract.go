package feedback

import (
	"context"

	"github.com/neurostack/copilot/internal/domain"
)

// Repository persists feedback entries and usage counters.
type Repository interface {
	Record(ctx context.Context, fb domain.Feedback) error
	Analytics(ctx context.Context) (domain.Analytics, error)
}
