package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resumeai_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resumeai_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// UsageDecisionsTotal counts guard outcomes: allowed, blocked, exhausted, rate_limited.
	UsageDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resumeai_usage_decisions_total",
			Help: "Total number of quota decisions taken before a generation.",
		},
		[]string{"kind", "outcome"},
	)

	UsagePeriodRolloversTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "resumeai_usage_period_rollovers_total",
			Help: "Total number of monthly quota periods reset on read.",
		},
	)

	GenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resumeai_generations_total",
			Help: "Total number of language-model generations.",
		},
		[]string{"document", "status"},
	)

	GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resumeai_generation_duration_seconds",
			Help:    "Language-model generation latency in seconds.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"document"},
	)

	GenerationTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resumeai_generation_tokens_total",
			Help: "Total number of tokens reported by the language-model provider.",
		},
		[]string{"document", "type"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		UsageDecisionsTotal,
		UsagePeriodRolloversTotal,
		GenerationsTotal,
		GenerationDuration,
		GenerationTokensTotal,
	)
}
