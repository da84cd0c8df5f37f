// Package chi exposes the pipeline over HTTP. The query endpoint streams
// events as NDJSON lines, or SSE frames when the client asks for
// text/event-stream; everything else is plain JSON.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/neurostack/copilot/internal/domain"
	feedbackuc "github.com/neurostack/copilot/internal/usecase/feedback"
	healthuc "github.com/neurostack/copilot/internal/usecase/health"
	historyuc "github.com/neurostack/copilot/internal/usecase/history"
	pipelineuc "github.com/neurostack/copilot/internal/usecase/pipeline"
)

// userHeader carries the caller identity resolved by the upstream proxy.
const userHeader = "X-User-ID"

// errorResponse is the JSON error body.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Server wires usecase services to HTTP handlers.
type Server struct {
	pipeline *pipelineuc.Service
	feedback *feedbackuc.Service
	history  *historyuc.Service
	health   *healthuc.Service
	logger   *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	pipeline *pipelineuc.Service,
	feedback *feedbackuc.Service,
	history *historyuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	return &Server{
		pipeline: pipeline,
		feedback: feedback,
		history:  history,
		health:   health,
		logger:   logger,
	}
}

// RegisterRoutes mounts all endpoints on the router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/rag/query", s.QueryStream)
	r.Get("/rag/history", s.History)
	r.Post("/feedback", s.Feedback)
	r.Get("/analytics", s.Analytics)
	r.Get("/health", s.HealthCheck)
	r.Get("/ready", s.Ready)
	r.Get("/metrics", s.Metrics)
}

type queryRequest struct {
	Query string `json:"query"`
}

type tokenLine struct {
	Token string `json:"token"`
}

type answerLine struct {
	Answer string `json:"answer"`
}

type chunksLine struct {
	Chunks []domain.FusedResult `json:"chunks"`
}

// QueryStream handles POST /rag/query.
func (s *Server) QueryStream(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "Query is required")
		return
	}

	events, err := s.pipeline.Query(r.Context(), pipelineuc.Request{
		Query: req.Query,
		User:  r.Header.Get(userHeader),
	})
	if err != nil {
		s.logger.Warn("query failed before streaming", zap.Error(err))
		if errors.Is(err, domain.ErrEmbeddingProviderError) {
			writeError(w, http.StatusBadGateway, "embedding_provider_error", "embedding provider error")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	sse := strings.Contains(r.Header.Get("Accept"), "text/event-stream")
	if sse {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
	} else {
		w.Header().Set("Content-Type", "application/x-ndjson")
	}
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	for ev := range events {
		data, err := json.Marshal(eventPayload(ev))
		if err != nil {
			s.logger.Error("marshal stream event", zap.Error(err))
			return
		}
		if sse {
			_, err = w.Write(append(append([]byte("data: "), data...), '\n', '\n'))
		} else {
			_, err = w.Write(append(data, '\n'))
		}
		if err != nil {
			// Client gone; the pipeline notices via context cancellation.
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// eventPayload picks the wire shape for one stream event.
func eventPayload(ev domain.StreamEvent) any {
	switch ev.Kind {
	case domain.EventAnswer:
		return answerLine{Answer: ev.Answer}
	case domain.EventChunks:
		return chunksLine{Chunks: ev.Chunks}
	default:
		return tokenLine{Token: ev.Token}
	}
}

type historyResponse struct {
	Messages []domain.ChatMessage `json:"messages"`
}

// History handles GET /rag/history. The caller identity comes from the same
// header the pipeline uses when recording exchanges.
func (s *Server) History(w http.ResponseWriter, r *http.Request) {
	user := r.Header.Get(userHeader)
	if user == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", userHeader+" header is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "validation_failed", "limit must be a positive integer")
			return
		}
		limit = n
	}

	msgs, err := s.history.Recent(r.Context(), user, limit)
	if err != nil {
		if errors.Is(err, domain.ErrStoreDisabled) {
			writeError(w, http.StatusServiceUnavailable, "store_disabled", domain.ErrStoreDisabled.Error())
			return
		}
		s.logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}

	writeJSON(w, http.StatusOK, historyResponse{Messages: msgs})
}

type feedbackRequest struct {
	Query   string `json:"query"`
	Answer  string `json:"answer"`
	Helpful bool   `json:"helpful"`
	Comment string `json:"comment"`
}

// Feedback handles POST /feedback.
func (s *Server) Feedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	err := s.feedback.Record(r.Context(), domain.Feedback{
		User:    r.Header.Get(userHeader),
		Query:   req.Query,
		Answer:  req.Answer,
		Helpful: req.Helpful,
		Comment: req.Comment,
	})
	if err != nil {
		s.handleFeedbackError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Analytics handles GET /analytics.
func (s *Server) Analytics(w http.ResponseWriter, r *http.Request) {
	a, err := s.feedback.Analytics(r.Context())
	if err != nil {
		s.handleFeedbackError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// HealthCheck handles GET /health. Degraded backends are reported, not
// failed: the pipeline still answers (with fallbacks) while they are down.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.health.Check(r.Context()))
}

// Ready handles GET /ready. Ready means the index artifacts are loaded.
func (s *Server) Ready(w http.ResponseWriter, _ *http.Request) {
	if !s.health.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ready": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) handleFeedbackError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidFeedback):
		writeError(w, http.StatusBadRequest, "validation_failed", domain.ErrInvalidFeedback.Error())
	case errors.Is(err, domain.ErrStoreDisabled):
		writeError(w, http.StatusServiceUnavailable, "store_disabled", domain.ErrStoreDisabled.Error())
	default:
		s.logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}
