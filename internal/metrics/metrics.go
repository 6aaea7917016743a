package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Inbound frames
	FramesRouted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_frames_routed_total",
			Help: "Inbound frames delivered to handlers",
		},
		[]string{"event"},
	)

	FramesDiscarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_frames_discarded_total",
			Help: "Inbound frames dropped before reaching handlers",
		},
		[]string{"reason"}, // "malformed", "unknown_type", "stale"
	)

	// Outbound frames
	FramesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_frames_sent_total",
			Help: "Outbound frames written to the transport",
		},
		[]string{"type"},
	)

	SendsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_sends_dropped_total",
			Help: "Outbound frames dropped because the session was not connected",
		},
		[]string{"type"},
	)

	// Connection lifecycle
	ReconnectAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatsync_reconnect_attempts_total",
			Help: "Scheduled reconnection attempts",
		},
	)

	ConnectionStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chatsync_connection_status",
			Help: "1 for the current connection status, 0 otherwise",
		},
		[]string{"status"},
	)

	MessagesReconciled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_messages_reconciled_total",
			Help: "Inbound messages by reconciliation outcome",
		},
		[]string{"outcome"},
	)
)

// SetStatus flips the connection status gauge to status.
func SetStatus(status string) {
	for _, s := range []string{"disconnected", "connecting", "connected"} {
		v := 0.0
		if s == status {
			v = 1
		}
		ConnectionStatus.WithLabelValues(s).Set(v)
	}
}
