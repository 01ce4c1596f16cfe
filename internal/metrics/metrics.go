// Package metrics bundles the Prometheus collectors of the hub sync layer.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry   *prometheus.Registry
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	refreshes  *prometheus.CounterVec
	reconnects *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	commands   *prometheus.CounterVec
	reloads    prometheus.Counter
	toasts     *prometheus.CounterVec
	subs       prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "multichat_hub_requests_total",
				Help: "Total count of requests issued to the hub API.",
			},
			[]string{"method", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "multichat_hub_request_duration_seconds",
				Help:    "Histogram of hub API request durations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "multichat_token_refreshes_total",
				Help: "Access token refresh attempts by result.",
			},
			[]string{"result"},
		),
		reconnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "multichat_socket_connects_total",
				Help: "Push channel connection attempts by channel and result.",
			},
			[]string{"channel", "result"},
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "multichat_socket_dropped_frames_total",
				Help: "Push frames dropped because they could not be decoded.",
			},
			[]string{"channel"},
		),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "multichat_board_commands_total",
				Help: "Optimistic board commands by result.",
			},
			[]string{"command", "result"},
		),
		reloads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "multichat_board_reloads_total",
			Help: "Full reloads of the chat board.",
		}),
		toasts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "multichat_notifications_total",
				Help: "Notifications surfaced to operators by kind.",
			},
			[]string{"kind"},
		),
		subs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "multichat_console_subscribers",
			Help: "Local console websocket subscribers.",
		}),
	}

	reg.MustRegister(
		m.requests, m.duration, m.refreshes, m.reconnects, m.dropped,
		m.commands, m.reloads, m.toasts, m.subs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) Refresh(ok bool) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result(ok)).Inc()
}

func (m *Metrics) Connect(channel string, ok bool) {
	if m == nil {
		return
	}
	m.reconnects.WithLabelValues(channel, result(ok)).Inc()
}

func (m *Metrics) DroppedFrame(channel string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(channel).Inc()
}

func (m *Metrics) Command(name string, ok bool) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(name, result(ok)).Inc()
}

func (m *Metrics) Reload() {
	if m == nil {
		return
	}
	m.reloads.Inc()
}

func (m *Metrics) Toast(kind string) {
	if m == nil {
		return
	}
	m.toasts.WithLabelValues(kind).Inc()
}

func (m *Metrics) Subscribers(n int) {
	if m == nil {
		return
	}
	m.subs.Set(float64(n))
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
