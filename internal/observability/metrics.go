// Package observability exposes prometheus metrics for the engine's hot
// paths: HTTP traffic, postings, and report cache behaviour.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the engine's collectors behind one registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	EntriesPosted    prometheus.Counter
	EntriesVoided    prometheus.Counter
	EntriesReversed  prometheus.Counter
	PostingRejected  *prometheus.CounterVec
	StatementRows    prometheus.Counter
	IntegrityFailure prometheus.Counter
}

// New builds the metrics set on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerline_http_requests_total",
			Help: "HTTP requests by method, route pattern, and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledgerline_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		EntriesPosted: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerline_journal_entries_posted_total",
			Help: "Journal entries successfully posted.",
		}),
		EntriesVoided: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerline_journal_entries_voided_total",
			Help: "Journal entries voided.",
		}),
		EntriesReversed: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerline_journal_entries_reversed_total",
			Help: "Reversing entries created.",
		}),
		PostingRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerline_postings_rejected_total",
			Help: "Postings rejected by reason.",
		}, []string{"reason"}),
		StatementRows: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerline_bank_statement_rows_imported_total",
			Help: "Bank statement rows imported.",
		}),
		IntegrityFailure: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledgerline_integrity_check_failures_total",
			Help: "Trial balance integrity check failures.",
		}),
	}
}

// Handler serves the scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware instruments request counts and latency. Route patterns rather
// than raw paths keep the label cardinality bounded.
func (m *Metrics) Middleware(routePattern func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			route := routePattern(r)
			m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
			m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}
