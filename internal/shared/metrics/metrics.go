package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Execution metrics
	ExecutionsTotal   *prometheus.CounterVec
	ExecutionDuration *prometheus.HistogramVec
	SandboxHealth     *prometheus.GaugeVec

	// Collaboration metrics
	CollabMessagesTotal *prometheus.CounterVec
	CollabDroppedTotal  prometheus.Counter
	CollabCollaborators prometheus.Gauge

	// File sync metrics
	SyncUploadsTotal   *prometheus.CounterVec
	SyncDeletesTotal   *prometheus.CounterVec
	SyncUploadDuration prometheus.Histogram
}

// New creates a new Metrics instance registered on the default registry.
func New(namespace string) *Metrics {
	return NewWith(namespace, prometheus.DefaultRegisterer)
}

// NewWith creates a new Metrics instance registered on the given registerer.
// Tests use this with a fresh registry to avoid duplicate registration.
func NewWith(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "ecode"
	}
	factory := promauto.With(reg)

	return &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),

		// Execution metrics
		ExecutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "exec",
				Name:      "runs_total",
				Help:      "Total number of code executions",
			},
			[]string{"language", "mode", "status"},
		),
		ExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "exec",
				Name:      "run_duration_seconds",
				Help:      "Code execution duration in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"language", "mode"},
		),
		SandboxHealth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "exec",
				Name:      "sandbox_health",
				Help:      "Sandbox backend health (1=healthy, 0=unhealthy)",
			},
			[]string{"mode"},
		),

		// Collaboration metrics
		CollabMessagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "collab",
				Name:      "messages_total",
				Help:      "Total number of collaboration messages",
			},
			[]string{"direction", "type"}, // direction: in, out
		),
		CollabDroppedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "collab",
				Name:      "dropped_total",
				Help:      "Outbound messages dropped due to a full send queue",
			},
		),
		CollabCollaborators: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "collab",
				Name:      "collaborators",
				Help:      "Current number of known collaborators",
			},
		),

		// File sync metrics
		SyncUploadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "uploads_total",
				Help:      "Total number of file uploads",
			},
			[]string{"status"}, // ok, error
		),
		SyncDeletesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "deletes_total",
				Help:      "Total number of file deletions",
			},
			[]string{"status"},
		),
		SyncUploadDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "upload_duration_seconds",
				Help:      "File upload duration in seconds",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
	}
}

// --- Convenience methods ---

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	statusStr := statusCodeToString(status)
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordExecution records a code execution.
func (m *Metrics) RecordExecution(language, mode, status string, duration time.Duration) {
	m.ExecutionsTotal.WithLabelValues(language, mode, status).Inc()
	m.ExecutionDuration.WithLabelValues(language, mode).Observe(duration.Seconds())
}

// SetSandboxHealth sets the health status of a sandbox backend.
func (m *Metrics) SetSandboxHealth(mode string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.SandboxHealth.WithLabelValues(mode).Set(value)
}

// RecordCollabMessage records a collaboration message.
func (m *Metrics) RecordCollabMessage(direction, msgType string) {
	m.CollabMessagesTotal.WithLabelValues(direction, msgType).Inc()
}

// RecordCollabDrop records an outbound message dropped on a full queue.
func (m *Metrics) RecordCollabDrop() {
	m.CollabDroppedTotal.Inc()
}

// SetCollaborators sets the current collaborator count.
func (m *Metrics) SetCollaborators(n int) {
	m.CollabCollaborators.Set(float64(n))
}

// RecordSyncUpload records a file upload.
func (m *Metrics) RecordSyncUpload(ok bool, duration time.Duration) {
	m.SyncUploadsTotal.WithLabelValues(boolToStatus(ok)).Inc()
	m.SyncUploadDuration.Observe(duration.Seconds())
}

// RecordSyncDelete records a file deletion.
func (m *Metrics) RecordSyncDelete(ok bool) {
	m.SyncDeletesTotal.WithLabelValues(boolToStatus(ok)).Inc()
}

func boolToStatus(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

// statusCodeToString converts an HTTP status code to a string category.
func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
