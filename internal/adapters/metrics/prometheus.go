package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "observa_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "observa_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	PromptCompilationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "observa_prompt_compilations_total",
		Help: "Total prompt template compilations",
	}, []string{"mode", "status"})

	PromptCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "observa_prompt_cache_hits_total",
		Help: "Prompt fetches served from the cache",
	})

	PromptCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "observa_prompt_cache_misses_total",
		Help: "Prompt fetches that went to storage",
	})

	PromptFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "observa_prompt_fallbacks_total",
		Help: "Prompt fetches resolved by caller-supplied fallback text",
	})

	RunsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "observa_dataset_runs_active",
		Help: "Number of dataset runs currently executing",
	})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "observa_dataset_runs_total",
		Help: "Total dataset runs by terminal status",
	}, []string{"status"})

	RunItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "observa_dataset_run_items_total",
		Help: "Total run items executed by result",
	}, []string{"result"})

	ScoresWrittenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "observa_scores_written_total",
		Help: "Total scores written",
	}, []string{"source"})

	EvaluatorFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "observa_evaluator_failures_total",
		Help: "Evaluator invocations that returned an error",
	}, []string{"evaluator"})

	AgentRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "observa_agent_request_duration_seconds",
		Help:    "Agent invocation duration",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"agent"})

	AgentRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "observa_agent_requests_total",
		Help: "Total agent invocations",
	}, []string{"agent", "status"})
)
