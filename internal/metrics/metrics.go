// Package metrics содержит Prometheus-метрики сервиса приёма заказов.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "flexylabel"

// Исходы обработки заказа.
const (
	OutcomeSent           = "sent"
	OutcomeRejected       = "rejected"
	OutcomeRenderFailed   = "render_failed"
	OutcomeDispatchFailed = "dispatch_failed"
	OutcomePartial        = "partial"
)

// Metrics хранит зарегистрированные метрики на собственном реестре.
type Metrics struct {
	registry *prometheus.Registry

	Submissions         *prometheus.CounterVec
	LinearMeters        prometheus.Counter
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New создаёт и регистрирует метрики.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Order form submissions by outcome.",
		}, []string{"outcome"}),
		LinearMeters: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "linear_meters_total",
			Help:      "Linear meters of web in dispatched orders.",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	registry.MustRegister(m.Submissions, m.LinearMeters, m.HTTPRequestsTotal, m.HTTPRequestDuration)

	return m
}

// RecordSubmission учитывает исход обработки заказа. Безопасен для nil.
func (m *Metrics) RecordSubmission(outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome).Inc()
}

// RecordLinearMeters добавляет погонные метры отправленного заказа. Безопасен для nil.
func (m *Metrics) RecordLinearMeters(v float64) {
	if m == nil || v <= 0 {
		return
	}
	m.LinearMeters.Add(v)
}

// Handler возвращает HTTP-обработчик для выдачи метрик.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
