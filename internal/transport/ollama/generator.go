// Package ollama implements the generation provider contract against an
// Ollama-compatible model server. The wire format is POST /api/generate with
// stream=true; responses arrive as newline-delimited JSON events, optionally
// wrapped in SSE "data:" framing by proxies in front of the server.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/neurostack/copilot/internal/domain"
	"github.com/neurostack/copilot/internal/usecase/generation"
)

// doneSentinel is the explicit end-of-stream marker some gateways emit in
// SSE framing, distinct from a blank keep-alive line.
const doneSentinel = "[DONE]"

// Provider streams generations from an Ollama server.
type Provider struct {
	baseURL string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

// Config holds the Ollama provider settings.
type Config struct {
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// New creates an Ollama provider. The HTTP client carries no timeout of its
// own; the orchestrator bounds each request through the context.
func New(cfg Config) *Provider {
	return &Provider{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{},
		logger:  cfg.Logger,
	}
}

// Name implements generation.Provider.
func (p *Provider) Name() string { return "ollama" }

// generateRequest is the /api/generate request body.
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumCtx      int     `json:"num_ctx"`
}

// generateEvent is one streamed /api/generate response line.
type generateEvent struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

// Stream implements generation.Provider.
func (p *Provider) Stream(ctx context.Context, req generation.Request, emit func(token string) error) error {
	body, err := json.Marshal(generateRequest{
		Model:  p.model,
		Prompt: req.Prompt,
		Stream: true,
		Options: generateOptions{
			Temperature: req.Temperature,
			NumCtx:      req.ContextWindow,
		},
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("generate: %w", ctx.Err())
		}
		return fmt.Errorf("generate: %w: %w", domain.ErrGenerationNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("generate: status %d: %w", resp.StatusCode, domain.ErrGenerationAuth)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("generate: status %d: %s: %w", resp.StatusCode, bytes.TrimSpace(msg), domain.ErrGenerationNetwork)
	}

	p.logger.Debug("generation stream opened", zap.String("model", p.model))
	return p.readEvents(ctx, resp.Body, emit)
}

// readEvents consumes the stream line by line until done, the [DONE]
// sentinel, or EOF. EOF before a done marker means the server hung up
// mid-stream.
func (p *Provider) readEvents(ctx context.Context, body io.Reader, emit func(string) error) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			// SSE keep-alive separator, not end of stream.
			continue
		}
		// Unwrap SSE framing when present.
		line = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if line == doneSentinel {
			return nil
		}

		var ev generateEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return fmt.Errorf("decode event %q: %w: %w", truncate(line, 80), domain.ErrGenerationParse, err)
		}
		if ev.Error != "" {
			return fmt.Errorf("server error: %s: %w", ev.Error, domain.ErrGenerationNetwork)
		}
		if ev.Done {
			return nil
		}
		if strings.TrimSpace(ev.Response) == "" {
			continue
		}
		if err := emit(ev.Response); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("read stream: %w", ctx.Err())
		}
		return fmt.Errorf("read stream: %w: %w", domain.ErrGenerationNetwork, err)
	}
	return fmt.Errorf("stream ended without done marker: %w", domain.ErrGenerationParse)
}

// HealthCheck verifies the server answers its version endpoint.
func (p *Provider) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/version", http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("version: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("version: status %d", resp.StatusCode)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
