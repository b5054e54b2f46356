package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Run metrics
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_runs_total",
			Help: "Total number of analysis runs",
		},
		[]string{"status"}, // status: complete|error
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nexus_run_duration_seconds",
			Help:    "End-to-end analysis run duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	RunDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_run_decisions_total",
			Help: "Final decisions by signal",
		},
		[]string{"signal"}, // BUY|SELL|HOLD
	)

	// Agent metrics
	AgentCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_agent_calls_total",
			Help: "Total number of LLM invocations",
		},
		[]string{"model", "status"}, // status: success|error|rate_limited
	)

	AgentStepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nexus_agent_step_duration_seconds",
			Help:    "Per-agent step latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"agent"},
	)

	// Debate metrics
	DebateExchanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_debate_exchanges_total",
			Help: "Debate speaker turns by debate type",
		},
		[]string{"debate"}, // invest|risk
	)

	// Cache metrics
	LLMCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nexus_llm_cache_hits_total",
			Help: "LLM response cache hits",
		},
	)

	LLMCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nexus_llm_cache_misses_total",
			Help: "LLM response cache misses",
		},
	)

	DataCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_data_cache_hits_total",
			Help: "Data tool cache hits by tool",
		},
		[]string{"tool"},
	)

	DataCacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_data_cache_misses_total",
			Help: "Data tool cache misses by tool",
		},
		[]string{"tool"},
	)

	// Memory metrics
	MemoryQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_memory_queries_total",
			Help: "Memory store queries by kind",
		},
		[]string{"kind", "status"}, // kind: similar|mistakes|successes, status: ok|degraded
	)
)

var registerOnce sync.Once

// Init registers all metrics with Prometheus. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RunsTotal)
		prometheus.MustRegister(RunDuration)
		prometheus.MustRegister(RunDecisions)

		prometheus.MustRegister(AgentCalls)
		prometheus.MustRegister(AgentStepDuration)

		prometheus.MustRegister(DebateExchanges)

		prometheus.MustRegister(LLMCacheHits)
		prometheus.MustRegister(LLMCacheMisses)
		prometheus.MustRegister(DataCacheHits)
		prometheus.MustRegister(DataCacheMisses)

		prometheus.MustRegister(MemoryQueries)
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
