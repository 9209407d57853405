package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// Search metrics
	SearchesTotal     *prometheus.CounterVec
	SearchDuration    *prometheus.HistogramVec
	ListingsExtracted *prometheus.CounterVec

	// Deduplication metrics
	CanonicalListings prometheus.Counter
	DuplicatesRemoved prometheus.Counter

	// Locator metrics
	LocatorAttempts *prometheus.CounterVec
	LocatorDuration *prometheus.HistogramVec

	// Application metrics
	FieldsMapped    *prometheus.CounterVec
	FieldsFilled    *prometheus.CounterVec
	ReviewDecisions *prometheus.CounterVec

	// Claude API metrics
	ClaudeRequestsTotal   *prometheus.CounterVec
	ClaudeRequestDuration *prometheus.HistogramVec
	ClaudeCacheHits       prometheus.Counter
	ClaudeCacheMisses     prometheus.Counter

	// Vision backend metrics
	VisionRequestsTotal   *prometheus.CounterVec
	VisionRequestDuration *prometheus.HistogramVec

	// System metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
}

// NewMetrics creates a metrics instance backed by its own registry, so
// multiple instances can coexist in tests
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "jobreach"
	}

	registry := prometheus.NewRegistry()
	auto := promauto.With(registry)

	m := &Metrics{
		registry: registry,

		// Search metrics
		SearchesTotal: auto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "searches_total",
				Help:      "Total number of per-source searches",
			},
			[]string{"source", "status"},
		),
		SearchDuration: auto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_duration_seconds",
				Help:      "Per-source search duration in seconds",
				Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 90, 120},
			},
			[]string{"source"},
		),
		ListingsExtracted: auto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "listings_extracted_total",
				Help:      "Total number of raw listings extracted",
			},
			[]string{"source", "simulated"},
		),

		// Deduplication metrics
		CanonicalListings: auto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "canonical_listings_total",
				Help:      "Total number of canonical listings produced",
			},
		),
		DuplicatesRemoved: auto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "duplicates_removed_total",
				Help:      "Total number of raw listings merged away as duplicates",
			},
		),

		// Locator metrics
		LocatorAttempts: auto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "locator_attempts_total",
				Help:      "Total number of element location attempts",
			},
			[]string{"phase", "status"},
		),
		LocatorDuration: auto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "locator_duration_seconds",
				Help:      "Element location duration in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
			},
			[]string{"phase"},
		),

		// Application metrics
		FieldsMapped: auto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fields_mapped_total",
				Help:      "Total number of discovered fields mapped to profile attributes",
			},
			[]string{"method"},
		),
		FieldsFilled: auto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fields_filled_total",
				Help:      "Total number of form fields filled",
			},
			[]string{"kind", "status"},
		),
		ReviewDecisions: auto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "review_decisions_total",
				Help:      "Total number of human review decisions",
			},
			[]string{"stage", "decision"},
		),

		// Claude API metrics
		ClaudeRequestsTotal: auto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "claude_requests_total",
				Help:      "Total number of Claude API requests",
			},
			[]string{"model", "status"},
		),
		ClaudeRequestDuration: auto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "claude_request_duration_seconds",
				Help:      "Claude API request duration in seconds",
				Buckets:   []float64{.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"model"},
		),
		ClaudeCacheHits: auto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "claude_cache_hits_total",
				Help:      "Total number of Claude cache hits",
			},
		),
		ClaudeCacheMisses: auto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "claude_cache_misses_total",
				Help:      "Total number of Claude cache misses",
			},
		),

		// Vision backend metrics
		VisionRequestsTotal: auto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "vision_requests_total",
				Help:      "Total number of vision model requests",
			},
			[]string{"operation", "status"},
		),
		VisionRequestDuration: auto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "vision_request_duration_seconds",
				Help:      "Vision model request duration in seconds",
				Buckets:   []float64{.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"operation"},
		),

		// System metrics
		DBConnectionsActive: auto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections_active",
				Help:      "Number of active database connections",
			},
		),
		DBConnectionsIdle: auto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections_idle",
				Help:      "Number of idle database connections",
			},
		),
	}

	return m
}

// Handler returns an HTTP handler serving this instance's metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordSearch records the outcome of one per-source search
func (m *Metrics) RecordSearch(source string, success bool, duration time.Duration) {
	m.SearchesTotal.WithLabelValues(source, statusLabel(success)).Inc()
	m.SearchDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordListings records extracted listing counts per source
func (m *Metrics) RecordListings(source string, simulated bool, count int) {
	m.ListingsExtracted.WithLabelValues(source, strconv.FormatBool(simulated)).Add(float64(count))
}

// RecordDedup records one deduplication pass
func (m *Metrics) RecordDedup(unique, removed int) {
	m.CanonicalListings.Add(float64(unique))
	m.DuplicatesRemoved.Add(float64(removed))
}

// RecordLocate records one element location attempt
func (m *Metrics) RecordLocate(phase string, success bool, duration time.Duration) {
	m.LocatorAttempts.WithLabelValues(phase, statusLabel(success)).Inc()
	m.LocatorDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// RecordMapping records one field mapping by the method that produced it
func (m *Metrics) RecordMapping(method string) {
	m.FieldsMapped.WithLabelValues(method).Inc()
}

// RecordFill records one form field fill attempt
func (m *Metrics) RecordFill(kind string, success bool) {
	m.FieldsFilled.WithLabelValues(kind, statusLabel(success)).Inc()
}

// RecordReview records one human review decision
func (m *Metrics) RecordReview(stage string, approved bool) {
	decision := "rejected"
	if approved {
		decision = "approved"
	}
	m.ReviewDecisions.WithLabelValues(stage, decision).Inc()
}

// RecordClaudeRequest records one Claude API request
func (m *Metrics) RecordClaudeRequest(model string, success bool, duration time.Duration) {
	m.ClaudeRequestsTotal.WithLabelValues(model, statusLabel(success)).Inc()
	m.ClaudeRequestDuration.WithLabelValues(model).Observe(duration.Seconds())
}

// RecordClaudeCache records one cache lookup outcome
func (m *Metrics) RecordClaudeCache(hit bool) {
	if hit {
		m.ClaudeCacheHits.Inc()
	} else {
		m.ClaudeCacheMisses.Inc()
	}
}

// RecordVision records one vision model request
func (m *Metrics) RecordVision(operation string, success bool, duration time.Duration) {
	m.VisionRequestsTotal.WithLabelValues(operation, statusLabel(success)).Inc()
	m.VisionRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateDBStats updates connection pool gauges
func (m *Metrics) UpdateDBStats(active, idle int) {
	m.DBConnectionsActive.Set(float64(active))
	m.DBConnectionsIdle.Set(float64(idle))
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
