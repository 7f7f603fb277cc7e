// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	ArticlesScraped   prometheus.Counter
	ArticlesNew       prometheus.Counter
	ArticlesDuplicate prometheus.Counter
	FetcherErrors     *prometheus.CounterVec
	CollectionRuns    *prometheus.CounterVec
	CollectionLatency prometheus.Histogram
	HighRiskAlerts    prometheus.Counter

	// Extraction metrics
	EventsExtracted    prometheus.Counter
	ExtractionErrors   *prometheus.CounterVec
	LLMCallLatency     prometheus.Histogram
	LLMCacheHits       prometheus.Counter
	CircuitBreakerOpen prometheus.Gauge

	// Scoring metrics
	SignalsComputed *prometheus.CounterVec
	SurgesDetected  prometheus.Counter
	SimulationRuns  prometheus.Counter
	ScoringLatency  prometheus.Histogram

	// Queue metrics
	MessagesPublished *prometheus.CounterVec
	MessagesConsumed  *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
	UptimeSeconds     prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "conflict_signal"
	}

	return &Metrics{
		// Ingestion metrics
		ArticlesScraped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "articles_scraped_total",
			Help:      "Total number of articles fetched from all sources",
		}),
		ArticlesNew: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "articles_new_total",
			Help:      "Total number of new articles persisted",
		}),
		ArticlesDuplicate: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "articles_duplicate_total",
			Help:      "Total number of articles dropped by the dedup gate",
		}),
		FetcherErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "fetcher_errors_total",
			Help:      "Total number of fetcher failures by source",
		}, []string{"source"}),
		CollectionRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "collection_runs_total",
			Help:      "Total number of collection runs by status",
		}, []string{"status"}),
		CollectionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "collection_duration_seconds",
			Help:      "Collection run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}),
		HighRiskAlerts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "high_risk_alerts_total",
			Help:      "Total number of high-risk alert batches written",
		}),

		// Extraction metrics
		EventsExtracted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "events_extracted_total",
			Help:      "Total number of structured events extracted",
		}),
		ExtractionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "errors_total",
			Help:      "Total number of extraction failures by kind",
		}, []string{"kind"}),
		LLMCallLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "llm_call_latency_seconds",
			Help:      "Model call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		LLMCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "llm_cache_hits_total",
			Help:      "Total number of extractions served from the response cache",
		}),
		CircuitBreakerOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "circuit_breaker_open",
			Help:      "1 when the model circuit breaker is open",
		}),

		// Scoring metrics
		SignalsComputed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "signals_computed_total",
			Help:      "Total number of risk signals computed by level",
		}, []string{"level"}),
		SurgesDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "surges_detected_total",
			Help:      "Total number of surge detections",
		}),
		SimulationRuns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "simulation_runs_total",
			Help:      "Total number of simulation passes",
		}),
		ScoringLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "latency_seconds",
			Help:      "Per-event scoring latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Queue metrics
		MessagesPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "messages_published_total",
			Help:      "Total number of messages published by queue",
		}, []string{"queue"}),
		MessagesConsumed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "messages_consumed_total",
			Help:      "Total number of messages delivered by queue",
		}, []string{"queue"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_collection_timestamp",
			Help:      "Unix timestamp of the last successful collection run",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordArticleScraped increments the articles fetched counter.
func RecordArticleScraped() {
	DefaultMetrics.ArticlesScraped.Inc()
}

// RecordArticleNew increments the articles persisted counter.
func RecordArticleNew() {
	DefaultMetrics.ArticlesNew.Inc()
}

// RecordArticleDuplicate increments the dedup drop counter.
func RecordArticleDuplicate() {
	DefaultMetrics.ArticlesDuplicate.Inc()
}

// RecordFetcherError records a fetcher failure.
func RecordFetcherError(source string) {
	DefaultMetrics.FetcherErrors.WithLabelValues(source).Inc()
}

// RecordCollectionRun records a completed collection run.
func RecordCollectionRun(status string, durationSeconds float64) {
	DefaultMetrics.CollectionRuns.WithLabelValues(status).Inc()
	DefaultMetrics.CollectionLatency.Observe(durationSeconds)
	if status == "success" || status == "partial" {
		DefaultMetrics.LastSuccessfulRun.SetToCurrentTime()
	}
}

// RecordHighRiskAlert increments the alert batch counter.
func RecordHighRiskAlert() {
	DefaultMetrics.HighRiskAlerts.Inc()
}

// RecordEventExtracted increments the extracted events counter.
func RecordEventExtracted() {
	DefaultMetrics.EventsExtracted.Inc()
}

// RecordExtractionError records an extraction failure.
func RecordExtractionError(kind string) {
	DefaultMetrics.ExtractionErrors.WithLabelValues(kind).Inc()
}

// RecordLLMCall records model call latency.
func RecordLLMCall(seconds float64) {
	DefaultMetrics.LLMCallLatency.Observe(seconds)
}

// RecordCacheHit increments the response cache hit counter.
func RecordCacheHit() {
	DefaultMetrics.LLMCacheHits.Inc()
}

// SetCircuitBreakerOpen updates the breaker state gauge.
func SetCircuitBreakerOpen(open bool) {
	if open {
		DefaultMetrics.CircuitBreakerOpen.Set(1)
	} else {
		DefaultMetrics.CircuitBreakerOpen.Set(0)
	}
}

// RecordSignalComputed records a scored signal and its latency.
func RecordSignalComputed(level string, seconds float64) {
	DefaultMetrics.SignalsComputed.WithLabelValues(level).Inc()
	DefaultMetrics.ScoringLatency.Observe(seconds)
}

// RecordSurgeDetected increments the surge counter.
func RecordSurgeDetected() {
	DefaultMetrics.SurgesDetected.Inc()
}

// RecordSimulationRun increments the simulation counter.
func RecordSimulationRun() {
	DefaultMetrics.SimulationRuns.Inc()
}

// RecordMessagePublished records a bus publish.
func RecordMessagePublished(queue string) {
	DefaultMetrics.MessagesPublished.WithLabelValues(queue).Inc()
}

// RecordMessageConsumed records a bus delivery.
func RecordMessageConsumed(queue string) {
	DefaultMetrics.MessagesConsumed.WithLabelValues(queue).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
