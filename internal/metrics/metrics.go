// Package metrics exposes relay counters for Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Relay collects relay metrics. A nil *Relay is valid and records nothing.
type Relay struct {
	// ConnectedClients is the number of open WebSocket connections.
	ConnectedClients prometheus.Gauge

	// Messages counts chat messages by kind (user|system).
	Messages *prometheus.CounterVec

	// TypingSignals counts typing frames by state (start|stop).
	TypingSignals *prometheus.CounterVec

	// Rejected counts refused frames by error code.
	Rejected *prometheus.CounterVec

	// DroppedEvents counts events not delivered to slow clients.
	DroppedEvents prometheus.Counter
}

// NewRelay creates the relay metrics and registers them with reg.
func NewRelay(reg prometheus.Registerer) *Relay {
	m := &Relay{
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "livechat",
			Name:      "connected_clients",
			Help:      "Number of connected chat clients.",
		}),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livechat",
			Name:      "messages_total",
			Help:      "Chat messages fanned out, by kind.",
		}, []string{"kind"}),
		TypingSignals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livechat",
			Name:      "typing_signals_total",
			Help:      "Typing presence signals received, by state.",
		}, []string{"state"}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livechat",
			Name:      "rejected_frames_total",
			Help:      "Client frames refused by the relay, by error code.",
		}, []string{"code"}),
		DroppedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "livechat",
			Name:      "dropped_events_total",
			Help:      "Events dropped because a client could not keep up.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.ConnectedClients, m.Messages, m.TypingSignals, m.Rejected, m.DroppedEvents)
	}
	return m
}

// ClientConnected records a new connection.
func (m *Relay) ClientConnected() {
	if m == nil {
		return
	}
	m.ConnectedClients.Inc()
}

// ClientDisconnected records a closed connection.
func (m *Relay) ClientDisconnected() {
	if m == nil {
		return
	}
	m.ConnectedClients.Dec()
}

// MessageSent records a fanned-out message.
func (m *Relay) MessageSent(kind string) {
	if m == nil {
		return
	}
	m.Messages.WithLabelValues(kind).Inc()
}

// Typing records a typing signal.
func (m *Relay) Typing(start bool) {
	if m == nil {
		return
	}
	state := "stop"
	if start {
		state = "start"
	}
	m.TypingSignals.WithLabelValues(state).Inc()
}

// FrameRejected records a refused frame.
func (m *Relay) FrameRejected(code string) {
	if m == nil {
		return
	}
	m.Rejected.WithLabelValues(code).Inc()
}

// EventsDropped records events lost to slow consumers.
func (m *Relay) EventsDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.DroppedEvents.Add(float64(n))
}
