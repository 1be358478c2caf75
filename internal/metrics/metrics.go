// Package metrics exposes Prometheus instruments for sync runs and reads.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/domain"
)

const namespace = "category"

// Metrics groups every instrument. A nil *Metrics is valid and records nothing.
type Metrics struct {
	syncRuns     *prometheus.CounterVec
	syncRecords  *prometheus.CounterVec
	syncDuration prometheus.Histogram
	queries      *prometheus.CounterVec
}

// New creates the instruments and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Category sync runs by outcome.",
		}, []string{"outcome"}),
		syncRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_records_total",
			Help:      "Records processed by category syncs, by result.",
		}, []string{"result"}),
		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Wall time of category sync runs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_requests_total",
			Help:      "Category read requests by operation.",
		}, []string{"operation"}),
	}

	reg.MustRegister(m.syncRuns, m.syncRecords, m.syncDuration, m.queries)
	return m
}

// NewRegistry returns a registry preloaded with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// ObserveSync records one sync run.
func (m *Metrics) ObserveSync(outcome string, report domain.SyncReport, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(outcome).Inc()
	m.syncDuration.Observe(elapsed.Seconds())
	if report.DryRun {
		return
	}
	m.syncRecords.WithLabelValues("success").Add(float64(report.Success))
	m.syncRecords.WithLabelValues("error").Add(float64(report.Errors))
}

// ObserveQuery counts one read request.
func (m *Metrics) ObserveQuery(operation string) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(operation).Inc()
}
