package history

import (
	"context"

	"github.com/neurostack/copilot/internal/domain"
)

// Repository reads recorded exchanges for a user.
type Repository interface {
	Recent(ctx context.Context, user string, n int) ([]domain.ChatMessage, error)
}
