// Package metrics exposes Prometheus instrumentation for the threads API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/radutopala/threads/internal/response"
)

// Metrics holds the collectors registered for one server.
type Metrics struct {
	responses *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	results   *prometheus.CounterVec
	gatherer  prometheus.Gatherer
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "threads_http_responses_total",
			Help: "HTTP responses by route and status code.",
		}, []string{"route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "threads_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "threads_action_results_total",
			Help: "Recorded thread action results by action and status.",
		}, []string{"action", "status"}),
		gatherer: reg,
	}
	reg.MustRegister(m.responses, m.duration, m.results)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveResponse records one finished request.
func (m *Metrics) ObserveResponse(route string, code int, elapsed time.Duration) {
	m.responses.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObservePayload counts every named result in p by its status. Results
// without a usable status are counted as "none".
func (m *Metrics) ObservePayload(p response.Payload) {
	for name, v := range p {
		if name == response.StatusKey {
			continue
		}
		status := "none"
		if s, ok := response.RecordStatus(v); ok {
			status = strconv.Itoa(s)
		}
		m.results.WithLabelValues(name, status).Inc()
	}
}

// Gatherer returns the registry backing m.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.gatherer
}
