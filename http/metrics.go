package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds a private Prometheus registry with the HTTP request metrics.
type Metrics struct {
	reg      *prometheus.Registry
	inflight prometheus.Gauge
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	uploaded prometheus.Counter
}

// NewMetrics creates a Metrics instance with a fresh registry and registers collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	inflight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cloudpad",
		Subsystem: "http",
		Name:      "inflight_requests",
		Help:      "Current number of inflight HTTP requests.",
	})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cloudpad",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests processed, partitioned by route, status code and method.",
	}, []string{"route", "code", "method"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cloudpad",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Histogram of latencies for HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "code", "method"})
	uploaded := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cloudpad",
		Subsystem: "files",
		Name:      "uploaded_bytes_total",
		Help:      "Total bytes stored by successful uploads.",
	})

	reg.MustRegister(inflight, requests, latency, uploaded)

	return &Metrics{
		reg:      reg,
		inflight: inflight,
		requests: requests,
		latency:  latency,
		uploaded: uploaded,
	}
}

// Handler returns an http.Handler that serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Middleware records the inflight gauge, the request counter and the latency
// histogram. The route label is the matched chi pattern, which keeps keys
// and tokens out of label values.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.inflight.Inc()
		defer m.inflight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}

		code := strconv.Itoa(status)
		m.requests.WithLabelValues(route, code, r.Method).Inc()
		m.latency.WithLabelValues(route, code, r.Method).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) observeUpload(size int64) {
	if m == nil || size <= 0 {
		return
	}
	m.uploaded.Add(float64(size))
}
