package generation

import "context"

// Request describes one streaming generation call to a backend.
type Request struct {
	Prompt        string
	Temperature   float64
	ContextWindow int
}

// Provider streams text fragments for a prompt and returns once the backend
// signals completion. Implementations must stop promptly when ctx is
// cancelled or emit returns an error, and must classify failures with the
// domain.ErrGeneration* sentinels.
type Provider interface {
	Stream(ctx context.Context, req Request, emit func(token string) error) error
	// Name identifies the provider in logs and metrics.
	Name() string
}
