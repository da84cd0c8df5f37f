// Package sdk is a minimal HTTP client for the copilot API: the streaming
// query endpoint plus chat history, feedback, analytics and readiness.
package sdk

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Chunk is one supporting document returned with an answer.
type Chunk struct {
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Score    float64 `json:"score"`
	Source   string  `json:"source,omitempty"`
}

// Event is one element of the query stream. Exactly one field group is set:
// Token for incremental fragments, Answer/Chunks for the two terminal events.
type Event struct {
	Token  string
	Answer string
	Chunks []Chunk

	// Terminal marks the answer and chunks events.
	Terminal bool
}

// Feedback is a verdict on a received answer.
type Feedback struct {
	Query   string `json:"query"`
	Answer  string `json:"answer"`
	Helpful bool   `json:"helpful"`
	Comment string `json:"comment,omitempty"`
}

// ChatMessage is one recorded query/answer exchange.
type ChatMessage struct {
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// Analytics mirrors the server's analytics report.
type Analytics struct {
	QueriesToday      int64 `json:"queries_today"`
	QueriesTotal      int64 `json:"queries_total"`
	FeedbackHelpful   int64 `json:"feedback_helpful"`
	FeedbackUnhelpful int64 `json:"feedback_unhelpful"`
	FeedbackTotal     int64 `json:"feedback_total"`
}

// Client talks to a copilot API server.
type Client struct {
	baseURL string
	apiKey  string
	user    string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithUser sets the caller identity used for server-side chat history.
func WithUser(user string) Option {
	return func(c *Client) { c.user = user }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a copilot client. The default HTTP client carries no timeout;
// bound query lifetimes with the context instead, since streams can run for
// the full generation window.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Query streams the response for one query, calling handler once per event.
// The stream ends with an answer event and a chunks event, both Terminal.
// Returning an error from handler stops the stream.
func (c *Client) Query(ctx context.Context, query string, handler func(Event) error) error {
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return fmt.Errorf("marshal query: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/rag/query", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("query request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var wire struct {
			Token  *string `json:"token"`
			Answer *string `json:"answer"`
			Chunks []Chunk `json:"chunks"`
		}
		if err := json.Unmarshal([]byte(line), &wire); err != nil {
			return fmt.Errorf("decode stream line: %w", err)
		}

		var ev Event
		switch {
		case wire.Token != nil:
			ev = Event{Token: *wire.Token}
		case wire.Answer != nil:
			ev = Event{Answer: *wire.Answer, Terminal: true}
		default:
			ev = Event{Chunks: wire.Chunks, Terminal: true}
		}
		if err := handler(ev); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return nil
}

// Ask runs a query and returns the final answer with its supporting chunks,
// discarding intermediate tokens.
func (c *Client) Ask(ctx context.Context, query string) (string, []Chunk, error) {
	var answer string
	var chunks []Chunk
	err := c.Query(ctx, query, func(ev Event) error {
		if ev.Answer != "" {
			answer = ev.Answer
		}
		if ev.Chunks != nil {
			chunks = ev.Chunks
		}
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	return answer, chunks, nil
}

// SendFeedback records a verdict on an answer.
func (c *Client) SendFeedback(ctx context.Context, fb Feedback) error {
	body, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/feedback", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("feedback request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return apiError(resp)
	}
	return nil
}

// History fetches the caller's recorded exchanges in chronological order.
// The client must be configured WithUser. limit <= 0 uses the server default.
func (c *Client) History(ctx context.Context, limit int) ([]ChatMessage, error) {
	path := "/rag/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("history request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var body struct {
		Messages []ChatMessage `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return body.Messages, nil
}

// Analytics fetches the usage and feedback counters.
func (c *Client) Analytics(ctx context.Context) (Analytics, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/analytics", nil)
	if err != nil {
		return Analytics{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Analytics{}, fmt.Errorf("analytics request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Analytics{}, apiError(resp)
	}

	var a Analytics
	if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
		return Analytics{}, fmt.Errorf("decode analytics: %w", err)
	}
	return a, nil
}

// Ready reports whether the server has its index artifacts loaded.
func (c *Client) Ready(ctx context.Context) (bool, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/ready", nil)
	if err != nil {
		return false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("ready request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK, nil
}

// WaitForReady polls the readiness endpoint until the server answers ready
// or the timeout expires.
func (c *Client) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for server: %w", ctx.Err())
		case <-ticker.C:
			if ok, err := c.Ready(ctx); err == nil && ok {
				return nil
			}
		}
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if c.user != "" {
		req.Header.Set("X-User-ID", c.user)
	}
	return req, nil
}

// apiError decodes the server's JSON error body into a descriptive error.
func apiError(resp *http.Response) error {
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Message != "" {
		return fmt.Errorf("api error %d (%s): %s", resp.StatusCode, body.Code, body.Message)
	}
	return fmt.Errorf("api error %d", resp.StatusCode)
}
