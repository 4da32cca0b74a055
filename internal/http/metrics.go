package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricsOnce sync.Once

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInflight        *prometheus.GaugeVec

	// Policy metrics
	checksTotal     *prometheus.CounterVec
	violationsTotal *prometheus.CounterVec
)

// RegisterMetrics initializes the collectors and returns the /metrics
// handler. Safe to call more than once; registration happens a single time.
func RegisterMetrics(reg prometheus.Registerer) http.Handler {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	metricsOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "passguard_http_requests_total",
			Help: "Total HTTP requests processed",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "passguard_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		httpInflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "passguard_http_inflight_requests",
			Help: "In-flight requests by method and path",
		}, []string{"method", "path"})

		checksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "passguard_checks_total",
			Help: "Password evaluations by decision",
		}, []string{"decision"}) // accept|warn|reject

		violationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "passguard_violations_total",
			Help: "Policy violations by rule",
		}, []string{"kind"})

		reg.MustRegister(httpRequestsTotal, httpRequestDuration, httpInflight, checksTotal, violationsTotal)
	})

	if g, ok := reg.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}

func observeRequest(method, path string, status int, dur time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, path, httpStatusLabel(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(dur.Seconds())
}

func observeInflight(method, path string, delta float64) {
	if httpInflight == nil {
		return
	}
	httpInflight.WithLabelValues(method, path).Add(delta)
}

func observeCheck(decision string, kinds []string) {
	if checksTotal == nil {
		return
	}
	checksTotal.WithLabelValues(decision).Inc()
	for _, k := range kinds {
		violationsTotal.WithLabelValues(k).Inc()
	}
}

func httpStatusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
