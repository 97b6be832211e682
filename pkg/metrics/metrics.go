// Package metrics holds the Prometheus collectors for Strata.
//
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"

	OutcomeCommit    = "commit"
	OutcomeRollback  = "rollback"
	OutcomeCancelled = "cancelled"
)

// Metrics holds all Prometheus metrics for a store and its HTTP surface.
type Metrics struct {
	transactionsTotal   *prometheus.CounterVec
	operationsTotal     *prometheus.CounterVec
	operationDuration   *prometheus.HistogramVec
	migrationsTotal     *prometheus.CounterVec
	recordsTotal        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. A nil reg means
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		transactionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strata_transactions_total",
				Help: "Total number of transactions by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),

		operationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strata_operations_total",
				Help: "Total number of record operations",
			},
			[]string{"op", "status"},
		),

		operationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "strata_operation_duration_seconds",
				Help:    "Record operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),

		migrationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strata_migrations_total",
				Help: "Total number of records migrated on read",
			},
			[]string{"type"},
		),

		recordsTotal: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "strata_records_total",
				Help: "Number of entries counted by the last stats run",
			},
		),

		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strata_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "strata_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
	}
}

// RecordTransaction records the end of a transaction.
func (m *Metrics) RecordTransaction(writable bool, outcome string) {
	if m == nil {
		return
	}
	mode := "read"
	if writable {
		mode = "write"
	}
	m.transactionsTotal.WithLabelValues(mode, outcome).Inc()
}

// RecordOperation records a record operation such as insert or select.
func (m *Metrics) RecordOperation(op string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.operationsTotal.WithLabelValues(op, status).Inc()
	m.operationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordMigration records a record rewritten under a new fields version.
func (m *Metrics) RecordMigration(typeName string) {
	if m == nil {
		return
	}
	m.migrationsTotal.WithLabelValues(typeName).Inc()
}

// SetRecords updates the entry count gauge.
func (m *Metrics) SetRecords(n int) {
	if m == nil {
		return
	}
	m.recordsTotal.Set(float64(n))
}

// InstrumentHandler instruments an HTTP handler.
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	if m == nil {
		return handler
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(rw, r)
		m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(rw.statusCode)).Inc()
		m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// responseWriter captures the status code written by a handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
