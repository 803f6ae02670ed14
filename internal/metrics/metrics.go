package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	reg *prometheus.Registry

	RequestsTotal        *prometheus.CounterVec
	RequestDuration      *prometheus.HistogramVec
	NotificationsEmitted *prometheus.CounterVec
	EventPublishFailures prometheus.Counter
	AuthFailures         *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		NotificationsEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_emitted_total",
				Help: "Notifications written as a side effect of appointment changes",
			},
			[]string{"type"},
		),
		EventPublishFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "event_publish_failures_total",
				Help: "Appointment events that could not be published",
			},
		),
		AuthFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_failures_total",
				Help: "Rejected requests by reason",
			},
			[]string{"reason"},
		),
	}
	m.reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.NotificationsEmitted,
		m.EventPublishFailures,
		m.AuthFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
