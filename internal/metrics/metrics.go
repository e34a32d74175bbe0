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

// Metrics holds the application collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	RequestDuration *prometheus.HistogramVec
	Intakes         *prometheus.CounterVec
	VersionRetries  prometheus.Counter
	Alerts          *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "baymax_http_request_duration_seconds",
			Help:    "HTTP request latency by route, method and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		Intakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "baymax_intakes_total",
			Help: "Recorded intake mutations by slot and action.",
		}, []string{"time_of_day", "action"}),
		VersionRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "baymax_version_conflict_retries_total",
			Help: "Medicine writes retried after a version conflict.",
		}),
		Alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "baymax_low_stock_alerts_total",
			Help: "Low-stock alerts by delivery result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestDuration,
		m.Intakes,
		m.VersionRetries,
		m.Alerts,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveIntake counts a take or undo.
func (m *Metrics) ObserveIntake(timeOfDay string, taken bool) {
	action := "undo"
	if taken {
		action = "take"
	}
	m.Intakes.WithLabelValues(timeOfDay, action).Inc()
}

// Middleware records request latency labelled by the matched chi route
// pattern, so ids in the path do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestDuration.
			WithLabelValues(route, r.Method, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
