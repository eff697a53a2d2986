// Package metrics exposes Prometheus instrumentation for the server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "compset"

// Outcome label values
const (
	OutcomeSuccess = "success"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"

	// Unit import batches discarded from the queue at shutdown
	OutcomeDropped = "dropped"
)

// Metrics holds every collector on a private registry
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	AnalysisTotal         *prometheus.CounterVec
	AnalysisDuration      *prometheus.HistogramVec
	RelationshipMutations *prometheus.CounterVec
	UnitImportBatches     *prometheus.CounterVec
	UnitImportUnits       prometheus.Counter
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		AnalysisTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_requests_total",
			Help:      "Filtered analyses by mode and outcome.",
		}, []string{"mode", "outcome"}),
		AnalysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Time to compute a filtered analysis.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"mode"}),
		RelationshipMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relationship_mutations_total",
			Help:      "Relationship create and toggle operations.",
		}, []string{"action", "outcome"}),
		UnitImportBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unit_import_batches_total",
			Help:      "Unit import batches processed.",
		}, []string{"outcome"}),
		UnitImportUnits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unit_import_units_total",
			Help:      "Units written by import batches.",
		}),
	}

	m.registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{Namespace: namespace}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AnalysisTotal,
		m.AnalysisDuration,
		m.RelationshipMutations,
		m.UnitImportBatches,
		m.UnitImportUnits,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Middleware records request counts and latency per matched route
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// ObserveAnalysis records one analysis run
func (m *Metrics) ObserveAnalysis(mode, outcome string, elapsed time.Duration) {
	m.AnalysisTotal.WithLabelValues(mode, outcome).Inc()
	if outcome == OutcomeSuccess {
		m.AnalysisDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	}
}

// RelationshipMutation records a create or toggle
func (m *Metrics) RelationshipMutation(action, outcome string) {
	m.RelationshipMutations.WithLabelValues(action, outcome).Inc()
}

// UnitImport records a processed import batch
func (m *Metrics) UnitImport(outcome string, units int) {
	m.UnitImportBatches.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		m.UnitImportUnits.Add(float64(units))
	}
}
