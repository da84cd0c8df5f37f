package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/neurostack/copilot/internal/domain"
	"github.com/neurostack/copilot/internal/usecase/generation"
)

// Generator streams chat completions from an OpenAI-compatible API. The SDK
// handles the server-sent-event framing, including the [DONE] sentinel.
type Generator struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// GeneratorConfig holds the chat-completion provider settings.
type GeneratorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewGenerator creates an OpenAI-compatible streaming generation provider.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Generator{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

// Name implements generation.Provider.
func (g *Generator) Name() string { return "openai" }

// Stream implements generation.Provider.
func (g *Generator) Stream(ctx context.Context, req generation.Request, emit func(token string) error) error {
	stream, err := g.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: float32(req.Temperature),
		Stream:      true,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	})
	if err != nil {
		return classifyStreamError(err)
	}
	defer stream.Close()

	g.logger.Debug("generation stream opened", zap.String("model", g.model))

	for {
		resp, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			return nil
		}
		if recvErr != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("recv: %w", ctx.Err())
			}
			return classifyStreamError(recvErr)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		token := resp.Choices[0].Delta.Content
		if token == "" {
			continue
		}
		if err := emit(token); err != nil {
			return err
		}
	}
}

// HealthCheck verifies API availability via ListModels.
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// classifyStreamError maps SDK errors onto the generation failure taxonomy.
func classifyStreamError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("chat stream: %w", domain.ErrGenerationTimeout)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden {
			return fmt.Errorf("chat stream: %s: %w", apiErr.Message, domain.ErrGenerationAuth)
		}
		return fmt.Errorf("chat stream: %s: %w", apiErr.Message, domain.ErrGenerationNetwork)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusUnauthorized || reqErr.HTTPStatusCode == http.StatusForbidden {
			return fmt.Errorf("chat stream: status %d: %w", reqErr.HTTPStatusCode, domain.ErrGenerationAuth)
		}
		return fmt.Errorf("chat stream: status %d: %w", reqErr.HTTPStatusCode, domain.ErrGenerationNetwork)
	}

	return fmt.Errorf("chat stream: %w: %w", domain.ErrGenerationNetwork, err)
}
