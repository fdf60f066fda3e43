package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus collectors of the realtime layer.
type Metrics struct {
	// clients is the number of open WebSocket connections.
	clients prometheus.Gauge
	// channels is the number of channels with at least one member.
	channels prometheus.Gauge
	// published counts events by name.
	published *prometheus.CounterVec
	// dropped counts events a slow client could not accept.
	dropped prometheus.Counter
	// editors is the number of (project, user, client) editing flags held.
	editors prometheus.Gauge
	// throttled counts inbound messages rejected by the rate limiter.
	throttled prometheus.Counter
}

// NewMetrics registers the realtime collectors with reg. A nil reg uses the
// default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		clients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "projectcolab",
			Subsystem: "realtime",
			Name:      "connected_clients",
			Help:      "Open WebSocket connections",
		}),
		channels: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "projectcolab",
			Subsystem: "realtime",
			Name:      "channels",
			Help:      "Project channels with at least one member",
		}),
		published: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "projectcolab",
			Subsystem: "realtime",
			Name:      "events_published_total",
			Help:      "Events published to project channels",
		}, []string{"event"}),
		dropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: "projectcolab",
			Subsystem: "realtime",
			Name:      "events_dropped_total",
			Help:      "Events dropped because a client send queue was full",
		}),
		editors: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "projectcolab",
			Subsystem: "presence",
			Name:      "active_editors",
			Help:      "Editing presence flags currently held",
		}),
		throttled: f.NewCounter(prometheus.CounterOpts{
			Namespace: "projectcolab",
			Subsystem: "realtime",
			Name:      "messages_throttled_total",
			Help:      "Inbound WebSocket messages rejected by the rate limiter",
		}),
	}
}

// The helpers below tolerate a nil *Metrics so components can run without
// instrumentation.

func (m *Metrics) setClients(n int) {
	if m != nil {
		m.clients.Set(float64(n))
	}
}

func (m *Metrics) setChannels(n int) {
	if m != nil {
		m.channels.Set(float64(n))
	}
}

func (m *Metrics) incPublished(event string) {
	if m != nil {
		m.published.WithLabelValues(event).Inc()
	}
}

func (m *Metrics) incDropped() {
	if m != nil {
		m.dropped.Inc()
	}
}

func (m *Metrics) setEditors(n int) {
	if m != nil {
		m.editors.Set(float64(n))
	}
}

func (m *Metrics) incThrottled() {
	if m != nil {
		m.throttled.Inc()
	}
}
