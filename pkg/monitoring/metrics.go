package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Relay counters exported on the /metrics endpoint.
var (
	Connections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "matchmaker",
		Name:      "connections",
		Help:      "Number of open client connections.",
	})
	Sessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "matchmaker",
		Name:      "sessions",
		Help:      "Number of active sessions.",
	})
	MessagesRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "matchmaker",
		Name:      "messages_relayed_total",
		Help:      "Messages forwarded to session peers.",
	})
	MessagesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "matchmaker",
		Name:      "messages_dropped_total",
		Help:      "Inbound messages dropped due to bad JSON or an invalid key.",
	})
)
