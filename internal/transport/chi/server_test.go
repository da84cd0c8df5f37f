package chi

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/neurostack/copilot/internal/domain"
	feedbackuc "github.com/neurostack/copilot/internal/usecase/feedback"
	"github.com/neurostack/copilot/internal/usecase/generation"
	healthuc "github.com/neurostack/copilot/internal/usecase/health"
	historyuc "github.com/neurostack/copilot/internal/usecase/history"
	pipelineuc "github.com/neurostack/copilot/internal/usecase/pipeline"
)

type stubRetriever struct {
	results  []domain.FusedResult
	topScore float64
	err      error
}

func (s *stubRetriever) Retrieve(context.Context, string) ([]domain.FusedResult, float64, error) {
	return s.results, s.topScore, s.err
}

func (s *stubRetriever) Relevant(topScore float64) bool { return topScore > 0.008 }

type stubGenerator struct {
	tokens []string
}

func (s *stubGenerator) Generate(_ context.Context, _, _ string, emit func(string) error) generation.Outcome {
	for _, tok := range s.tokens {
		if emit(tok) != nil {
			return generation.Outcome{Aborted: true}
		}
	}
	return generation.Outcome{Answered: true}
}

type stubFeedbackRepo struct {
	recorded []domain.Feedback
}

func (s *stubFeedbackRepo) Record(_ context.Context, fb domain.Feedback) error {
	s.recorded = append(s.recorded, fb)
	return nil
}

func (s *stubFeedbackRepo) Analytics(context.Context) (domain.Analytics, error) {
	return domain.Analytics{QueriesTotal: 7, FeedbackTotal: 2}, nil
}

type stubHistoryRepo struct {
	messages []domain.ChatMessage
	lastUser string
	lastN    int
}

func (s *stubHistoryRepo) Recent(_ context.Context, user string, n int) ([]domain.ChatMessage, error) {
	s.lastUser = user
	s.lastN = n
	return s.messages, nil
}

type stubCorpus struct{ docs, dims int }

func (s *stubCorpus) Len() int        { return s.docs }
func (s *stubCorpus) Dimensions() int { return s.dims }

var streamResults = []domain.FusedResult{
	{Question: "How do I reset my password?", Answer: "Use the reset link.", Score: 0.0164, Source: "faq"},
}

func newTestRouter(t *testing.T, retr pipelineuc.Retriever, gen pipelineuc.Generator, repo feedbackuc.Repository) http.Handler {
	return newTestRouterWithHistory(t, retr, gen, repo, nil)
}

func newTestRouterWithHistory(t *testing.T, retr pipelineuc.Retriever, gen pipelineuc.Generator, repo feedbackuc.Repository, hist historyuc.Repository) http.Handler {
	t.Helper()
	logger := zap.NewNop()

	srv := NewServer(
		pipelineuc.New(retr, gen, nil, nil, logger),
		feedbackuc.New(repo, logger),
		historyuc.New(hist, logger),
		healthuc.New(&stubCorpus{docs: 3, dims: 2}, nil, nil, nil),
		logger,
	)
	r := chirouter.NewRouter()
	srv.RegisterRoutes(r)
	return r
}

func decodeLines(t *testing.T, body string) (tokens []string, answer string, chunks []domain.FusedResult, answers, chunkEvents int) {
	t.Helper()
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var ev struct {
			Token  *string              `json:"token"`
			Answer *string              `json:"answer"`
			Chunks []domain.FusedResult `json:"chunks"`
		}
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("bad line %q: %v", line, err)
		}
		switch {
		case ev.Token != nil:
			tokens = append(tokens, *ev.Token)
		case ev.Answer != nil:
			answer = *ev.Answer
			answers++
		default:
			chunks = ev.Chunks
			chunkEvents++
		}
	}
	return tokens, answer, chunks, answers, chunkEvents
}

func TestQueryStream_NDJSON(t *testing.T) {
	router := newTestRouter(t,
		&stubRetriever{results: streamResults, topScore: 0.0164},
		&stubGenerator{tokens: []string{"Use ", "the ", "link."}},
		nil)

	req := httptest.NewRequest(http.MethodPost, "/rag/query",
		strings.NewReader(`{"query":"how do I reset my password"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("content type = %q", ct)
	}

	tokens, answer, chunks, answers, chunkEvents := decodeLines(t, rec.Body.String())
	if strings.Join(tokens, "") != "Use the link." {
		t.Errorf("tokens = %v", tokens)
	}
	if answer != "Use the link." {
		t.Errorf("answer = %q", answer)
	}
	if answers != 1 || chunkEvents != 1 {
		t.Errorf("terminal events: %d answers, %d chunks", answers, chunkEvents)
	}
	if len(chunks) != 1 || chunks[0].Question != streamResults[0].Question {
		t.Errorf("chunks = %+v", chunks)
	}
}

func TestQueryStream_SSE(t *testing.T) {
	router := newTestRouter(t,
		&stubRetriever{results: streamResults, topScore: 0.0164},
		&stubGenerator{tokens: []string{"hi"}},
		nil)

	req := httptest.NewRequest(http.MethodPost, "/rag/query", strings.NewReader(`{"query":"reset"}`))
	req.Header.Set("Accept", "text/event-stream")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "data: ") {
		t.Errorf("body not SSE framed: %q", body)
	}
	if strings.Count(body, "data: ") != 3 { // token + answer + chunks
		t.Errorf("expected 3 frames, body: %q", body)
	}
}

func TestQueryStream_RejectedQuery(t *testing.T) {
	router := newTestRouter(t,
		&stubRetriever{results: nil, topScore: 0.001},
		&stubGenerator{tokens: []string{"never"}},
		nil)

	req := httptest.NewRequest(http.MethodPost, "/rag/query", strings.NewReader(`{"query":"off topic"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	tokens, answer, chunks, _, chunkEvents := decodeLines(t, rec.Body.String())
	if len(tokens) != 0 {
		t.Errorf("unexpected tokens: %v", tokens)
	}
	if answer != pipelineuc.RefusalAnswer {
		t.Errorf("answer = %q", answer)
	}
	if chunkEvents != 1 || len(chunks) != 0 {
		t.Errorf("chunks = %+v (%d events)", chunks, chunkEvents)
	}
	// Empty chunk lists must encode as [], not null.
	if !strings.Contains(rec.Body.String(), `"chunks":[]`) {
		t.Errorf("chunks not encoded as empty array: %s", rec.Body.String())
	}
}

func TestQueryStream_EmptyQuery(t *testing.T) {
	router := newTestRouter(t, &stubRetriever{}, &stubGenerator{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/rag/query", strings.NewReader(`{"query":"  "}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestQueryStream_EmbeddingFailureIs502(t *testing.T) {
	router := newTestRouter(t,
		&stubRetriever{err: domain.ErrEmbeddingProviderError},
		&stubGenerator{},
		nil)

	req := httptest.NewRequest(http.MethodPost, "/rag/query", strings.NewReader(`{"query":"q"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != "embedding_provider_error" {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestFeedback(t *testing.T) {
	repo := &stubFeedbackRepo{}
	router := newTestRouter(t, &stubRetriever{}, &stubGenerator{}, repo)

	req := httptest.NewRequest(http.MethodPost, "/feedback",
		strings.NewReader(`{"query":"reset password","answer":"use the link","helpful":true}`))
	req.Header.Set(userHeader, "alice")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(repo.recorded) != 1 || repo.recorded[0].User != "alice" || !repo.recorded[0].Helpful {
		t.Errorf("recorded = %+v", repo.recorded)
	}
}

func TestFeedback_StoreDisabled(t *testing.T) {
	router := newTestRouter(t, &stubRetriever{}, &stubGenerator{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/feedback", strings.NewReader(`{"query":"q"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestFeedback_MissingQuery(t *testing.T) {
	router := newTestRouter(t, &stubRetriever{}, &stubGenerator{}, &stubFeedbackRepo{})

	req := httptest.NewRequest(http.MethodPost, "/feedback", strings.NewReader(`{"answer":"a"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAnalytics(t *testing.T) {
	router := newTestRouter(t, &stubRetriever{}, &stubGenerator{}, &stubFeedbackRepo{})

	req := httptest.NewRequest(http.MethodGet, "/analytics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var a domain.Analytics
	if err := json.Unmarshal(rec.Body.Bytes(), &a); err != nil {
		t.Fatal(err)
	}
	if a.QueriesTotal != 7 {
		t.Errorf("queries_total = %d", a.QueriesTotal)
	}
}

func TestHistory(t *testing.T) {
	hist := &stubHistoryRepo{messages: []domain.ChatMessage{
		{Query: "how do I reset my password", Answer: "Use the reset link."},
		{Query: "is there an app", Answer: "Yes, iOS and Android."},
	}}
	router := newTestRouterWithHistory(t, &stubRetriever{}, &stubGenerator{}, nil, hist)

	req := httptest.NewRequest(http.MethodGet, "/rag/history", nil)
	req.Header.Set(userHeader, "alice")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Messages []domain.ChatMessage `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Messages) != 2 || resp.Messages[0].Query != "how do I reset my password" {
		t.Errorf("messages = %+v", resp.Messages)
	}
	if hist.lastUser != "alice" {
		t.Errorf("user = %q, want alice", hist.lastUser)
	}
}

func TestHistory_LimitParam(t *testing.T) {
	hist := &stubHistoryRepo{}
	router := newTestRouterWithHistory(t, &stubRetriever{}, &stubGenerator{}, nil, hist)

	req := httptest.NewRequest(http.MethodGet, "/rag/history?limit=5", nil)
	req.Header.Set(userHeader, "alice")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if hist.lastN != 5 {
		t.Errorf("limit = %d, want 5", hist.lastN)
	}
	// Empty histories must encode as [], not null.
	if !strings.Contains(rec.Body.String(), `"messages":[]`) {
		t.Errorf("messages not encoded as empty array: %s", rec.Body.String())
	}
}

func TestHistory_BadLimit(t *testing.T) {
	router := newTestRouterWithHistory(t, &stubRetriever{}, &stubGenerator{}, nil, &stubHistoryRepo{})

	req := httptest.NewRequest(http.MethodGet, "/rag/history?limit=zero", nil)
	req.Header.Set(userHeader, "alice")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHistory_MissingUser(t *testing.T) {
	router := newTestRouterWithHistory(t, &stubRetriever{}, &stubGenerator{}, nil, &stubHistoryRepo{})

	req := httptest.NewRequest(http.MethodGet, "/rag/history", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHistory_StoreDisabled(t *testing.T) {
	router := newTestRouter(t, &stubRetriever{}, &stubGenerator{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/rag/history", nil)
	req.Header.Set(userHeader, "alice")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestReady(t *testing.T) {
	router := newTestRouter(t, &stubRetriever{}, &stubGenerator{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, &stubRetriever{}, &stubGenerator{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var report healthuc.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.Status != healthuc.Healthy || report.Documents != 3 {
		t.Errorf("report = %+v", report)
	}
}
