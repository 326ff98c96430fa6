package gateway

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's prometheus collectors on a dedicated
// registry so tests never collide on the global default.
type Metrics struct {
	registry *prometheus.Registry

	replies       *prometheus.CounterVec
	replyDuration prometheus.Histogram
	requests      *prometheus.CounterVec
	wsConnections prometheus.Gauge
}

// NewMetrics creates and registers the gateway collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		replies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskagent_replies_total",
				Help: "Dispatched replies by transport.",
			},
			[]string{"transport"},
		),
		replyDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "deskagent_reply_duration_seconds",
				Help:    "End-to-end reply latency.",
				Buckets: prometheus.DefBuckets,
			},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deskagent_agent_requests_total",
				Help: "Agent endpoint requests by handler.",
			},
			[]string{"handler"},
		),
		wsConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "deskagent_ws_connections",
				Help: "Open websocket chat connections.",
			},
		),
	}
	m.registry.MustRegister(m.replies, m.replyDuration, m.requests, m.wsConnections)
	return m
}

// Handler serves the registry in prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveReply records one dispatched reply and its latency.
func (m *Metrics) ObserveReply(transport string, elapsed time.Duration) {
	m.replies.WithLabelValues(transport).Inc()
	m.replyDuration.Observe(elapsed.Seconds())
}

// CountRequest records one agent endpoint request.
func (m *Metrics) CountRequest(handler string) {
	m.requests.WithLabelValues(handler).Inc()
}

// WSOpened and WSClosed track the websocket connection gauge.
func (m *Metrics) WSOpened() { m.wsConnections.Inc() }

// WSClosed decrements the websocket connection gauge.
func (m *Metrics) WSClosed() { m.wsConnections.Dec() }
