// Package metrics exposes Prometheus instruments for project lifecycle
// operations and the HTTP API. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	registry *prometheus.Registry

	ProjectsCreated    prometheus.Counter
	ProjectsDeleted    prometheus.Counter
	Generations        *prometheus.CounterVec
	GeneratedItems     prometheus.Histogram
	DroppedItems       prometheus.Counter
	ItemUpdates        *prometheus.CounterVec
	EvidenceUploads    prometheus.Counter
	EvidenceBytes      prometheus.Counter
	ValidationErrors   *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
	LockWait           prometheus.Histogram
	HTTPRequests       *prometheus.CounterVec
	HTTPRequestLatency *prometheus.HistogramVec
	ProjectsTotal      prometheus.Gauge
	ItemsByStatus      *prometheus.GaugeVec
}

// New creates a Metrics instance registered on a fresh registry that also
// carries the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry registers all metrics on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		ProjectsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "grc_projects_created_total",
			Help: "Total number of projects created",
		}),
		ProjectsDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "grc_projects_deleted_total",
			Help: "Total number of projects deleted",
		}),
		Generations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "grc_checklist_generations_total",
			Help: "Checklist generations by trigger (create, pack_change)",
		}, []string{"trigger"}),
		GeneratedItems: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "grc_checklist_items",
			Help:    "Number of items in a generated checklist",
			Buckets: []float64{0, 5, 10, 25, 50, 100, 250, 500},
		}),
		DroppedItems: f.NewCounter(prometheus.CounterOpts{
			Name: "grc_checklist_items_dropped_total",
			Help: "Items removed from checklists by regeneration",
		}),
		ItemUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "grc_checklist_item_updates_total",
			Help: "Checklist item edits by resulting status",
		}, []string{"status"}),
		EvidenceUploads: f.NewCounter(prometheus.CounterOpts{
			Name: "grc_evidence_uploads_total",
			Help: "Total number of evidence files uploaded",
		}),
		EvidenceBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "grc_evidence_bytes_total",
			Help: "Total bytes of evidence uploaded",
		}),
		ValidationErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "grc_validation_errors_total",
			Help: "Rejected requests by validation error kind",
		}, []string{"kind"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grc_operation_duration_seconds",
			Help:    "Duration of project service operations",
			Buckets: durationBuckets,
		}, []string{"operation"}),
		LockWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "grc_project_lock_wait_seconds",
			Help:    "Time spent waiting for a per-project lock",
			Buckets: durationBuckets,
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "grc_http_requests_total",
			Help: "HTTP requests by route pattern, method and status code",
		}, []string{"route", "method", "code"}),
		HTTPRequestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grc_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: durationBuckets,
		}, []string{"route", "method"}),
		ProjectsTotal: f.NewGauge(prometheus.GaugeOpts{
			Name: "grc_projects",
			Help: "Number of stored projects at the last status snapshot",
		}),
		ItemsByStatus: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "grc_checklist_items_by_status",
			Help: "Checklist items across all projects by status at the last status snapshot",
		}, []string{"status"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// IncProjectCreated records a successful project creation.
func (m *Metrics) IncProjectCreated() {
	if m == nil {
		return
	}
	m.ProjectsCreated.Inc()
}

// IncProjectDeleted records a successful project deletion.
func (m *Metrics) IncProjectDeleted() {
	if m == nil {
		return
	}
	m.ProjectsDeleted.Inc()
}

// ObserveGeneration records a checklist generation.
func (m *Metrics) ObserveGeneration(trigger string, items, dropped int) {
	if m == nil {
		return
	}
	m.Generations.WithLabelValues(trigger).Inc()
	m.GeneratedItems.Observe(float64(items))
	m.DroppedItems.Add(float64(dropped))
}

// IncItemUpdate records a checklist item edit.
func (m *Metrics) IncItemUpdate(status string) {
	if m == nil {
		return
	}
	m.ItemUpdates.WithLabelValues(status).Inc()
}

// ObserveEvidence records an evidence upload.
func (m *Metrics) ObserveEvidence(size int64) {
	if m == nil {
		return
	}
	m.EvidenceUploads.Inc()
	m.EvidenceBytes.Add(float64(size))
}

// IncValidationError records a rejected request.
func (m *Metrics) IncValidationError(kind string) {
	if m == nil {
		return
	}
	m.ValidationErrors.WithLabelValues(kind).Inc()
}

// ObserveOperation records the duration of a service operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveLockWait records how long a caller waited for a project lock.
func (m *Metrics) ObserveLockWait(d time.Duration) {
	if m == nil {
		return
	}
	m.LockWait.Observe(d.Seconds())
}

// ObserveHTTP records a served request.
func (m *Metrics) ObserveHTTP(route, method, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, code).Inc()
	m.HTTPRequestLatency.WithLabelValues(route, method).Observe(d.Seconds())
}

// SetStatusSnapshot publishes the latest project and item totals.
func (m *Metrics) SetStatusSnapshot(projects int, byStatus map[string]int) {
	if m == nil {
		return
	}
	m.ProjectsTotal.Set(float64(projects))
	for status, n := range byStatus {
		m.ItemsByStatus.WithLabelValues(status).Set(float64(n))
	}
}
