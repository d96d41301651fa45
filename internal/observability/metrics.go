// Package observability exposes Prometheus metrics for the editing engine.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HendryAvila/docsmith/internal/docerr"
)

const namespace = "docsmith"

// Operation names used as the "op" label.
const (
	OpUpload   = "upload"
	OpAnalyze  = "analyze"
	OpApply    = "apply"
	OpDownload = "download"
	OpDescribe = "describe"
	OpDiscard  = "discard"
)

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	SuggestionsTotal  *prometheus.CounterVec
	AppliedTotal      prometheus.Counter
	ConflictsTotal    prometheus.Counter
	OpenDocuments     prometheus.Gauge
	ArtifactsSwept    prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		OperationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Engine operations by name and outcome code",
		}, []string{"op", "code"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Engine operation latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"op"}),
		SuggestionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestions_generated_total",
			Help:      "Suggestions produced by analyze, by rule",
		}, []string{"rule"}),
		AppliedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestions_applied_total",
			Help:      "Suggestions written into documents",
		}),
		ConflictsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestion_conflicts_total",
			Help:      "Accepted suggestions skipped as conflicts",
		}),
		OpenDocuments: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_documents",
			Help:      "Documents currently held in memory",
		}),
		ArtifactsSwept: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_swept_total",
			Help:      "Artifacts removed by the retention sweep",
		}),
	}
}

// ObserveOperation records one call of op. A nil err is recorded as "ok".
func (m *Metrics) ObserveOperation(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	code := "ok"
	if err != nil {
		code = string(docerr.CodeOf(err))
	}
	m.OperationsTotal.WithLabelValues(op, code).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// ObserveSuggestions counts generated suggestions per rule.
func (m *Metrics) ObserveSuggestions(byRule map[string]int) {
	if m == nil {
		return
	}
	for rule, n := range byRule {
		m.SuggestionsTotal.WithLabelValues(rule).Add(float64(n))
	}
}

// ObserveApply counts the outcome of one apply.
func (m *Metrics) ObserveApply(applied, conflicts int) {
	if m == nil {
		return
	}
	m.AppliedTotal.Add(float64(applied))
	m.ConflictsTotal.Add(float64(conflicts))
}

// SetOpenDocuments publishes the session count.
func (m *Metrics) SetOpenDocuments(n int) {
	if m == nil {
		return
	}
	m.OpenDocuments.Set(float64(n))
}

// ObserveSweep is shaped to plug into artifacts.Sweeper.OnSweep.
func (m *Metrics) ObserveSweep(removed int64, err error) {
	if m == nil || err != nil {
		return
	}
	m.ArtifactsSwept.Add(float64(removed))
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
