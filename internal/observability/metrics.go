// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	ListingsLoaded     prometheus.Gauge
	ListingsSkipped    prometheus.Counter
	ListingsDuplicate  prometheus.Counter
	ListingsMissing    *prometheus.GaugeVec
	LoadErrors         prometheus.Counter
	ListingsImported   prometheus.Counter
	LastSuccessfulLoad prometheus.Gauge

	// Analytics metrics
	RecomputesTotal   *prometheus.CounterVec
	RecomputeDuration prometheus.Histogram
	SubsetSize        *prometheus.GaugeVec

	// API metrics
	HTTPRequests     *prometheus.CounterVec
	WSSessions       prometheus.Gauge
	WSMessages       *prometheus.CounterVec
	WSMessageLatency prometheus.Histogram

	// Reporting metrics
	ReportsGenerated prometheus.Counter
	SnapshotsStored  prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with the default registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith creates a new Metrics instance registered with reg.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "car_market_lab"
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Ingestion metrics
		ListingsLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "listings_loaded",
			Help:      "Number of listings in the loaded collection",
		}),
		ListingsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "listings_skipped_total",
			Help:      "Total number of malformed or URL-less records skipped",
		}),
		ListingsDuplicate: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "listings_duplicate_total",
			Help:      "Total number of records dropped as duplicate URLs",
		}),
		ListingsMissing: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "listings_missing_field",
			Help:      "Number of loaded listings without a usable value, by field",
		}, []string{"field"}),
		LoadErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "load_errors_total",
			Help:      "Total number of failed collection loads",
		}),
		ListingsImported: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "listings_imported_total",
			Help:      "Total number of listings newly written to storage",
		}),
		LastSuccessfulLoad: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_load_timestamp",
			Help:      "Unix timestamp of last successful collection load",
		}),

		// Analytics metrics
		RecomputesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "recomputes_total",
			Help:      "Total number of recomputations by status",
		}, []string{"status"}),
		RecomputeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "recompute_duration_seconds",
			Help:      "Recomputation duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		SubsetSize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "subset_size",
			Help:      "Listings matched by the last recomputation, by filter set index",
		}, []string{"set"}),

		// API metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		WSSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "ws_sessions",
			Help:      "Number of open websocket sessions",
		}),
		WSMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "ws_messages_total",
			Help:      "Total number of websocket messages by type and status",
		}, []string{"type", "status"}),
		WSMessageLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "ws_message_latency_seconds",
			Help:      "WebSocket message processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Reporting metrics
		ReportsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporting",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),
		SnapshotsStored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporting",
			Name:      "snapshots_stored_total",
			Help:      "Total number of metrics snapshots stored",
		}),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// LoadStats is the subset of ingestion statistics exported as metrics.
type LoadStats struct {
	Accepted   int
	Skipped    int
	Duplicates int
	Missing    map[string]int // keyed by field name
}

// RecordLoad records the outcome of a collection load.
func (m *Metrics) RecordLoad(stats LoadStats, err error) {
	if err != nil {
		m.LoadErrors.Inc()
	}
	m.ListingsLoaded.Set(float64(stats.Accepted))
	m.ListingsSkipped.Add(float64(stats.Skipped))
	m.ListingsDuplicate.Add(float64(stats.Duplicates))
	for field, n := range stats.Missing {
		m.ListingsMissing.WithLabelValues(field).Set(float64(n))
	}
	if err == nil {
		m.LastSuccessfulLoad.SetToCurrentTime()
	}
}

// RecordRecompute records one recomputation and the size of every filtered subset.
func (m *Metrics) RecordRecompute(d time.Duration, subsetSizes []int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.RecomputesTotal.WithLabelValues(status).Inc()
	m.RecomputeDuration.Observe(d.Seconds())
	for i, n := range subsetSizes {
		m.SubsetSize.WithLabelValues(setLabel(i)).Set(float64(n))
	}
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordWSMessage records a processed websocket message.
func (m *Metrics) RecordWSMessage(msgType string, seconds float64, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.WSMessages.WithLabelValues(msgType, status).Inc()
	m.WSMessageLatency.Observe(seconds)
}

func setLabel(i int) string {
	if i == 0 {
		return "primary"
	}
	return "comparison_" + strconv.Itoa(i)
}

// RecordLoad records a collection load on DefaultMetrics.
func RecordLoad(stats LoadStats, err error) {
	DefaultMetrics.RecordLoad(stats, err)
}

// RecordRecompute records a recomputation on DefaultMetrics.
func RecordRecompute(d time.Duration, subsetSizes []int, err error) {
	DefaultMetrics.RecordRecompute(d, subsetSizes, err)
}

// RecordDBQuery records database query metrics on DefaultMetrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.RecordDBQuery(database, operation, seconds, err)
}

// RecordImported increments the imported listings counter.
func RecordImported(n int) {
	DefaultMetrics.ListingsImported.Add(float64(n))
}

// RecordReportGenerated increments the reports generated counter.
func RecordReportGenerated() {
	DefaultMetrics.ReportsGenerated.Inc()
}

// RecordSnapshotsStored increments the snapshots stored counter.
func RecordSnapshotsStored(n int) {
	DefaultMetrics.SnapshotsStored.Add(float64(n))
}
