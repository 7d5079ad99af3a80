package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline Prometheus metrics.
var (
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "litmap",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	SourceRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "litmap",
			Name:      "source_requests_total",
			Help:      "Total number of article provider requests",
		},
		[]string{"source", "status"},
	)

	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "litmap",
			Name:      "searches_total",
			Help:      "Total number of searches by outcome",
		},
		[]string{"status"}, // "success" / "error" / "stale"
	)

	ReclusterizeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "litmap",
			Name:      "reclusterize_total",
			Help:      "Total number of reclusterize calls by outcome",
		},
		[]string{"status"}, // "success" / "error" / "superseded"
	)

	RefineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "litmap",
			Name:      "refine_requests_total",
			Help:      "Total number of label refinement completions",
		},
		[]string{"status"},
	)

	RefineCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "litmap",
			Name:      "refine_cache_total",
			Help:      "Refined label cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var registerOnce sync.Once

// RegisterPipelineMetrics registers pipeline and HTTP metrics. Safe to call more than once.
func RegisterPipelineMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(StageDuration)
		prometheus.MustRegister(SourceRequestsTotal)
		prometheus.MustRegister(SearchesTotal)
		prometheus.MustRegister(ReclusterizeTotal)
		prometheus.MustRegister(RefineRequestsTotal)
		prometheus.MustRegister(RefineCacheTotal)
		prometheus.MustRegister(httpRequestDuration)
		prometheus.MustRegister(httpRequestsTotal)
		prometheus.MustRegister(httpRequestsInFlight)
	})
}

// ObserveStage records the time elapsed since start for stage.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
