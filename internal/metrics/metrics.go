package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	JobExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentiment_job_executions_total",
			Help: "Total number of background job executions",
		},
		[]string{"job", "status"}, // status: success|error
	)

	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentiment_job_duration_seconds",
			Help:    "Background job execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"job"},
	)

	ProviderCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentiment_provider_calls_total",
			Help: "Total number of upstream provider calls",
		},
		[]string{"provider", "endpoint", "status"},
	)

	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentiment_provider_latency_seconds",
			Help:    "Upstream provider latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider", "endpoint"},
	)

	RecordsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentiment_records_ingested_total",
			Help: "Sentiment records written, by label",
		},
		[]string{"label"},
	)

	PatternsDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentiment_patterns_detected_total",
			Help: "Patterns detected, by classification",
		},
		[]string{"classification"},
	)

	SignalsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentiment_signals_emitted_total",
			Help: "Trading signals emitted, by type",
		},
		[]string{"signal_type"},
	)

	AnalysisCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentiment_analysis_cache_total",
			Help: "Analysis cache lookups",
		},
		[]string{"result"}, // result: hit|miss
	)
)

var registerOnce sync.Once

// Init registers all collectors with the default registry. Safe to call more
// than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			JobExecutions,
			JobDuration,
			ProviderCalls,
			ProviderLatency,
			RecordsIngested,
			PatternsDetected,
			SignalsEmitted,
			AnalysisCache,
		)
	})
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func RecordJobExecution(job string, duration time.Duration, err error) {
	JobExecutions.WithLabelValues(job, status(err)).Inc()
	JobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

func RecordProviderCall(provider, endpoint string, latency time.Duration, err error) {
	ProviderCalls.WithLabelValues(provider, endpoint, status(err)).Inc()
	ProviderLatency.WithLabelValues(provider, endpoint).Observe(latency.Seconds())
}

func RecordCacheLookup(hit bool) {
	if hit {
		AnalysisCache.WithLabelValues("hit").Inc()
		return
	}
	AnalysisCache.WithLabelValues("miss").Inc()
}
