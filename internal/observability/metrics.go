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
	// Parsing metrics
	TransactionsParsed  *prometheus.CounterVec
	ParseErrors         *prometheus.CounterVec
	EntriesAssembled    *prometheus.CounterVec
	ParseDuration       *prometheus.HistogramVec
	ProtocolResolutions *prometheus.CounterVec

	// Gains metrics
	GainEventsEmitted prometheus.Counter
	ScopesMatched     prometheus.Counter
	ScopeFailures     prometheus.Counter
	MatchDuration     prometheus.Histogram

	// Price resolver metrics
	PriceCacheHits   prometheus.Counter
	PriceCacheMisses prometheus.Counter
	PriceLookbacks   prometheus.Counter

	// Ingest metrics
	TransactionsIngested prometheus.Counter
	IngestErrors         prometheus.Counter
	WSReconnects         prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulParse prometheus.Gauge
	LastSuccessfulMatch prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "chainledger"
	}

	return &Metrics{
		TransactionsParsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "parse",
			Name:      "transactions_total",
			Help:      "Total number of transactions parsed by final status",
		}, []string{"status"}),
		ParseErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "parse",
			Name:      "errors_total",
			Help:      "Total number of parse errors by error type",
		}, []string{"error_type"}),
		EntriesAssembled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "entries_assembled_total",
			Help:      "Total number of journal entries assembled by entry type",
		}, []string{"entry_type"}),
		ParseDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "parse",
			Name:      "duration_seconds",
			Help:      "Wallet parse duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"chain"}),
		ProtocolResolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "parse",
			Name:      "protocol_resolutions_total",
			Help:      "Total number of protocol resolutions by protocol",
		}, []string{"protocol"}),

		GainEventsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gains",
			Name:      "events_emitted_total",
			Help:      "Total number of realized gain events emitted",
		}),
		ScopesMatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gains",
			Name:      "scopes_matched_total",
			Help:      "Total number of lot scopes matched",
		}),
		ScopeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gains",
			Name:      "scope_failures_total",
			Help:      "Total number of scopes halted by balance failures",
		}),
		MatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gains",
			Name:      "match_duration_seconds",
			Help:      "Full matching run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),

		PriceCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "cache_hits_total",
			Help:      "Total number of price cache hits",
		}),
		PriceCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "cache_misses_total",
			Help:      "Total number of price cache misses",
		}),
		PriceLookbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "lookbacks_total",
			Help:      "Total number of hourly lookback fallbacks",
		}),

		TransactionsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "transactions_total",
			Help:      "Total number of raw transactions ingested",
		}),
		IngestErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "errors_total",
			Help:      "Total number of ingest errors",
		}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "ws_reconnects_total",
			Help:      "Total number of WebSocket reconnects",
		}),

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

		LastSuccessfulParse: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_parse_timestamp",
			Help:      "Unix timestamp of last successful wallet parse",
		}),
		LastSuccessfulMatch: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_match_timestamp",
			Help:      "Unix timestamp of last successful gains match",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTransactionParsed increments the parsed transactions counter.
func RecordTransactionParsed(status string) {
	DefaultMetrics.TransactionsParsed.WithLabelValues(status).Inc()
}

// RecordParseError increments the parse error counter for an error type.
func RecordParseError(errorType string) {
	DefaultMetrics.ParseErrors.WithLabelValues(errorType).Inc()
}

// RecordEntryAssembled increments the assembled entries counter.
func RecordEntryAssembled(entryType string) {
	DefaultMetrics.EntriesAssembled.WithLabelValues(entryType).Inc()
}

// RecordProtocolResolution increments the resolution counter for a protocol.
func RecordProtocolResolution(protocol string) {
	DefaultMetrics.ProtocolResolutions.WithLabelValues(protocol).Inc()
}

// RecordMatchRun records a full gains matching run.
func RecordMatchRun(events, scopes, failures int, seconds float64) {
	DefaultMetrics.GainEventsEmitted.Add(float64(events))
	DefaultMetrics.ScopesMatched.Add(float64(scopes))
	DefaultMetrics.ScopeFailures.Add(float64(failures))
	DefaultMetrics.MatchDuration.Observe(seconds)
}

// RecordPriceCacheHit increments the price cache hit counter.
func RecordPriceCacheHit() {
	DefaultMetrics.PriceCacheHits.Inc()
}

// RecordPriceCacheMiss increments the price cache miss counter.
func RecordPriceCacheMiss() {
	DefaultMetrics.PriceCacheMisses.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
