// Package metrics holds the Prometheus collectors shared by the server and
// the worker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "flow"

// Dispatch and delivery outcomes.
const (
	ResultQueued    = "queued"
	ResultDropped   = "dropped"
	ResultFailed    = "failed"
	ResultDelivered = "delivered"
	ResultSkipped   = "skipped"
)

// Metrics is safe to use through a nil pointer; every recorder is then a
// no-op. Tests and command-line tools rely on that.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	notifications     *prometheus.CounterVec
	webhookDispatch   *prometheus.CounterVec
	webhookDeliveries *prometheus.CounterVec
	webhookDuration   prometheus.Histogram
	dashboardDegraded *prometheus.CounterVec
	jobRuns           *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_created_total",
			Help:      "In-app notifications persisted, by event type.",
		}, []string{"event_type"}),
		webhookDispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_dispatch_total",
			Help:      "Webhook fan-out hand-offs by dispatcher and result.",
		}, []string{"dispatcher", "result"}),
		webhookDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Individual webhook POSTs by event type and result.",
		}, []string{"event_type", "result"}),
		webhookDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_delivery_duration_seconds",
			Help:      "Latency of individual webhook POSTs.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		dashboardDegraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_degraded_metrics_total",
			Help:      "Dashboard sub-metrics reported as zero after a lookup failure.",
		}, []string{"metric"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Background job executions by task type and result.",
		}, []string{"task", "result"}),
	}

	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.notifications,
		m.webhookDispatch,
		m.webhookDeliveries,
		m.webhookDuration,
		m.dashboardDegraded,
		m.jobRuns,
	)
	return m
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) NotificationCreated(eventType string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(eventType).Inc()
}

func (m *Metrics) WebhookDispatched(dispatcher, result string) {
	if m == nil {
		return
	}
	m.webhookDispatch.WithLabelValues(dispatcher, result).Inc()
}

func (m *Metrics) WebhookDelivered(eventType, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.webhookDeliveries.WithLabelValues(eventType, result).Inc()
	m.webhookDuration.Observe(d.Seconds())
}

func (m *Metrics) DashboardDegraded(metric string) {
	if m == nil {
		return
	}
	m.dashboardDegraded.WithLabelValues(metric).Inc()
}

func (m *Metrics) JobRun(task string, err error) {
	if m == nil {
		return
	}
	result := ResultDelivered
	if err != nil {
		result = ResultFailed
	}
	m.jobRuns.WithLabelValues(task, result).Inc()
}
