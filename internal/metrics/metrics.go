// Package metrics holds the prometheus instrumentation for the chat server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_open_connections",
		Help: "Currently open websocket connections.",
	})

	EventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_inbound_events_total",
		Help: "Inbound client events by type.",
	}, []string{"type"})

	MessagesBroadcast = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_broadcast_total",
		Help: "Chat messages fanned out to a room.",
	})

	DroppedSends = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_dropped_sends_total",
		Help: "Per-recipient deliveries that failed and removed the recipient.",
	})
)

func init() {
	prometheus.MustRegister(OpenConnections, EventsTotal, MessagesBroadcast, DroppedSends)
}

// Handler exposes the prometheus registry, mounted at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
