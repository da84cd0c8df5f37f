package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval and generation Prometheus metrics.
var (
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "copilot",
			Name:      "queries_total",
			Help:      "Total pipeline queries by outcome",
		},
		[]string{"outcome"}, // "answered" / "rejected" / "fallback" / "aborted" / "error"
	)

	RetrievalDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "copilot",
			Name:      "retrieval_duration_seconds",
			Help:      "Hybrid retrieval duration in seconds (embed + search + fuse)",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	RetrievalTopScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "copilot",
			Name:      "retrieval_top_score",
			Help:      "Full-precision top fused score per query",
			Buckets:   []float64{0.002, 0.004, 0.008, 0.012, 0.016, 0.024, 0.032},
		},
	)

	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "copilot",
			Name:      "generation_requests_total",
			Help:      "Total generation backend requests",
		},
		[]string{"provider", "status"}, // "success" / "fallback" / "aborted"
	)

	GenerationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "copilot",
			Name:      "generation_request_duration_seconds",
			Help:      "Generation stream duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider"},
	)

	GenerationTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "copilot",
			Name:      "generation_tokens_total",
			Help:      "Total streamed generation tokens",
		},
		[]string{"provider"},
	)

	GenerationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "copilot",
			Name:      "generation_failures_total",
			Help:      "Total generation backend failures by kind",
		},
		[]string{"provider", "failure"},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(RetrievalDuration)
	prometheus.MustRegister(RetrievalTopScore)
	prometheus.MustRegister(GenerationRequestsTotal)
	prometheus.MustRegister(GenerationRequestDuration)
	prometheus.MustRegister(GenerationTokensTotal)
	prometheus.MustRegister(GenerationFailuresTotal)
	pipelineMetricsRegistered = true
}
