package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/neurostack/copilot/internal/config"
	"github.com/neurostack/copilot/internal/db"
	dbRedis "github.com/neurostack/copilot/internal/db/redis"
	"github.com/neurostack/copilot/internal/index/lexical"
	"github.com/neurostack/copilot/internal/index/vector"
	logpkg "github.com/neurostack/copilot/internal/logger"
	"github.com/neurostack/copilot/internal/metrics"
	"github.com/neurostack/copilot/internal/repository/corpus"
	feedbackrepo "github.com/neurostack/copilot/internal/repository/feedback"
	historyrepo "github.com/neurostack/copilot/internal/repository/history"
	chiTransport "github.com/neurostack/copilot/internal/transport/chi"
	"github.com/neurostack/copilot/internal/transport/ollama"
	"github.com/neurostack/copilot/internal/transport/openai"
	feedbackuc "github.com/neurostack/copilot/internal/usecase/feedback"
	"github.com/neurostack/copilot/internal/usecase/generation"
	healthuc "github.com/neurostack/copilot/internal/usecase/health"
	historyuc "github.com/neurostack/copilot/internal/usecase/history"
	pipelineuc "github.com/neurostack/copilot/internal/usecase/pipeline"
	"github.com/neurostack/copilot/internal/usecase/retrieval"
	"github.com/neurostack/copilot/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting copilot API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("generation_provider", cfg.Generation.Provider),
	)

	// Load index artifacts. Missing or inconsistent artifacts are fatal:
	// the service has nothing to retrieve from without them.
	corp, err := corpus.Load(cfg.Artifacts.VectorIndex, cfg.Artifacts.LexicalSnapshot)
	if err != nil {
		logger.Fatal("Failed to load index artifacts", zap.Error(err))
	}
	logger.Info("Index artifacts loaded",
		zap.Int("documents", corp.Len()),
		zap.Int("dimensions", corp.Dimensions()),
		zap.String("model", corp.Model()),
	)

	vectorIdx, err := vector.New(corp.Vectors(), corp.Dimensions())
	if err != nil {
		logger.Fatal("Failed to build vector index", zap.Error(err))
	}
	lexicalIdx := lexical.New(corp.Tokenized())

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	// Optional database store for feedback, counters and history
	var store db.Store
	if len(cfg.Database.Addrs) > 0 {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		defer store.Close()

		ctx := context.Background()
		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))
	} else {
		logger.Info("No database configured; feedback, analytics and history disabled")
	}

	embedder := openai.NewEmbedder(&openai.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	provider, genChecker := buildProvider(cfg.Generation, logger)
	logger.Info("Generation provider created",
		zap.String("provider", provider.Name()),
		zap.String("model", cfg.Generation.Model),
	)

	retrievalSvc := retrieval.New(embedder, vectorIdx, lexicalIdx, corp, retrieval.Params{
		TopK:      cfg.Retrieval.TopK,
		Alpha:     cfg.Retrieval.Alpha,
		Damping:   cfg.Retrieval.RRFDamping,
		Threshold: cfg.Retrieval.RelevanceThreshold,
	})

	orchestrator := generation.New(provider, generation.Options{
		Temperature:   cfg.Generation.Temperature,
		ContextWindow: cfg.Generation.ContextWindow,
		Timeout:       time.Duration(cfg.Generation.TimeoutSec) * time.Second,
	}, logger)

	// Pass nil interfaces (not typed nil pointers!) when the store is absent.
	var historyWriter pipelineuc.HistoryWriter
	var historyReader historyuc.Repository
	var usageCounter pipelineuc.UsageCounter
	var feedbackRepo feedbackuc.Repository
	var dbPinger healthuc.DBPinger
	if store != nil {
		fbStore := feedbackrepo.New(store, cfg.Database.KeyPrefix)
		feedbackRepo = fbStore
		usageCounter = fbStore
		histStore := historyrepo.New(store, cfg.Database.KeyPrefix,
			cfg.History.MaxMessages, time.Duration(cfg.History.TTLHours)*time.Hour)
		historyWriter = histStore
		historyReader = histStore
		dbPinger = store
	}

	pipelineSvc := pipelineuc.New(retrievalSvc, orchestrator, historyWriter, usageCounter, logger)
	feedbackSvc := feedbackuc.New(feedbackRepo, logger)
	historySvc := historyuc.New(historyReader, logger)
	healthSvc := healthuc.New(corp, dbPinger, embedder, genChecker)

	server := chiTransport.NewServer(pipelineSvc, feedbackSvc, historySvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.RegisterRoutes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildProvider picks the generation backend once at startup. Config
// validation already rejected unknown providers.
func buildProvider(cfg config.GenerationConfig, logger *zap.Logger) (generation.Provider, healthuc.BackendChecker) {
	switch cfg.Provider {
	case "openai":
		g := openai.NewGenerator(&openai.GeneratorConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Logger:  logger,
		})
		return g, g
	default:
		p := ollama.New(ollama.Config{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Logger:  logger,
		})
		return p, p
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
