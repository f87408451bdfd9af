// Package monitor exports prometheus metrics for the HTTP surface and the
// auth issuer.
package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPRequestLabels identify one observed HTTP request.
type HTTPRequestLabels struct {
	Status string
	Route  string
	Method string
}

type MetricsService struct {
	registry            *prometheus.Registry
	httpRequestDuration *prometheus.SummaryVec
	sep10Challenges     *prometheus.CounterVec
	transfersCreated    prometheus.Counter
}

func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry: prometheus.NewRegistry(),
		httpRequestDuration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Namespace: "anchor",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration, sliced by status, route, and method.",
		}, []string{"status", "route", "method"}),
		sep10Challenges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anchor",
			Subsystem: "sep10",
			Name:      "challenges_total",
			Help:      "SEP-10 challenge operations, sliced by operation and outcome.",
		}, []string{"operation", "outcome"}),
		transfersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "anchor",
			Subsystem: "transfers",
			Name:      "created_total",
			Help:      "Transfers created since process start.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestDuration,
		m.sep10Challenges,
		m.transfersCreated,
	)
	return m
}

// Handler serves the metrics scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *MetricsService) ObserveHTTPRequestDuration(duration time.Duration, labels HTTPRequestLabels) {
	m.httpRequestDuration.With(prometheus.Labels{
		"status": labels.Status,
		"route":  labels.Route,
		"method": labels.Method,
	}).Observe(duration.Seconds())
}

func (m *MetricsService) IncSEP10(operation, outcome string) {
	m.sep10Challenges.With(prometheus.Labels{"operation": operation, "outcome": outcome}).Inc()
}

func (m *MetricsService) IncTransfersCreated() {
	m.transfersCreated.Inc()
}
