// Package metrics exposes prometheus collectors for backend traffic,
// HTTP handling and the export, import and print flows.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "carehub"

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Metrics holds every collector. Build one per process with New.
type Metrics struct {
	reg *prometheus.Registry

	BackendRequests *prometheus.CounterVec
	BackendDuration *prometheus.HistogramVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	Exports         *prometheus.CounterVec
	Imports         *prometheus.CounterVec
	Prints          *prometheus.CounterVec
	Controllers     prometheus.GaugeFunc
}

// New registers the collectors on a fresh registry. liveControllers, when
// not nil, reports the number of per-session list controllers.
func New(liveControllers func() int) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		reg: reg,
		BackendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Backend API requests by resource, operation and status.",
		}, []string{"resource", "op", "status"}),
		BackendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Backend API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource", "op"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Exports by resource, format, scope and outcome.",
		}, []string{"resource", "format", "scope", "outcome"}),
		Imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Imports by resource and outcome.",
		}, []string{"resource", "outcome"}),
		Prints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prints_total",
			Help:      "Print flows by resource and outcome.",
		}, []string{"resource", "outcome"}),
	}
	reg.MustRegister(m.BackendRequests, m.BackendDuration, m.HTTPRequests, m.HTTPDuration, m.Exports, m.Imports, m.Prints)

	if liveControllers != nil {
		m.Controllers = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "list_controllers",
			Help:      "Live per-session list controllers.",
		}, func() float64 { return float64(liveControllers()) })
		reg.MustRegister(m.Controllers)
	}
	return m
}

// ObserveRequest records one backend call.
func (m *Metrics) ObserveRequest(resource, op string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BackendRequests.WithLabelValues(resource, op, statusLabel(status)).Inc()
	m.BackendDuration.WithLabelValues(resource, op).Observe(elapsed.Seconds())
}

// Export counts one export attempt.
func (m *Metrics) Export(resource, format, scope, outcome string) {
	if m == nil {
		return
	}
	m.Exports.WithLabelValues(resource, format, scope, outcome).Inc()
}

// Import counts one import attempt.
func (m *Metrics) Import(resource, outcome string) {
	if m == nil {
		return
	}
	m.Imports.WithLabelValues(resource, outcome).Inc()
}

// Print counts one print flow.
func (m *Metrics) Print(resource, outcome string) {
	if m == nil {
		return
	}
	m.Prints.WithLabelValues(resource, outcome).Inc()
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Gatherer exposes the registry, for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.reg }

// Middleware records HTTP metrics labelled with the chi route pattern so
// ids in paths do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// statusLabel maps a status to its class; 0 means the request never got
// an answer.
func statusLabel(status int) string {
	if status <= 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
