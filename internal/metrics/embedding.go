package metrics

import "github.com/prometheus/client_golang/prometheus"

// Query embedding metrics. Every request embeds exactly one short query, so
// calls, latency and tokens are tracked per provider and model only.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kfsearch",
			Name:      "embedding_requests_total",
			Help:      "Query embedding calls to the provider by outcome (success, error, canceled)",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kfsearch",
			Name:      "embedding_request_duration_seconds",
			Help:      "Provider latency for embedding one search query",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.2, 0.4, 0.8, 1.5, 3},
		},
		[]string{"provider", "model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kfsearch",
			Name:      "embedding_tokens_total",
			Help:      "Tokens billed for encoding search queries",
		},
		[]string{"provider", "model"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kfsearch",
			Name:      "embedding_errors_total",
			Help:      "Query embedding failures by kind (api_error, empty_response, dimension_mismatch)",
		},
		[]string{"provider", "model", "error_type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kfsearch",
			Name:      "embedding_cache_total",
			Help:      "Query embedding cache lookups per model by result (hit, miss)",
		},
		[]string{"model", "result"},
	)
)

var embMetricsRegistered bool

// RegisterEmbeddingMetrics registers the query embedding metrics. Safe to call twice.
func RegisterEmbeddingMetrics() {
	if embMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		EmbeddingTokensTotal,
		EmbeddingErrorsTotal,
		EmbeddingCacheTotal,
	)
	embMetricsRegistered = true
}
