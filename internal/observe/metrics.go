package observe

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	onlineClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_online_clients",
		Help: "Number of registered clients",
	})

	connectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_connections_total",
			Help: "Total connection attempts by handshake result",
		},
		[]string{"result"}, // accepted|rejected|failed
	)

	messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total routed chat messages by kind",
		},
		[]string{"kind"}, // broadcast|whisper
	)

	droppedMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_dropped_messages_total",
			Help: "Total messages dropped before delivery by reason",
		},
		[]string{"reason"}, // malformed|no_target|overflow
	)

	writeErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_write_errors_total",
		Help: "Total failed writes to recipient connections",
	})
)

func init() {
	prometheus.MustRegister(
		onlineClients,
		connectionsTotal,
		messagesTotal,
		droppedMessagesTotal,
		writeErrorsTotal,
	)
}

func AddOnline(delta float64)     { onlineClients.Add(delta) }
func IncConnection(result string) { connectionsTotal.WithLabelValues(result).Inc() }
func IncMessage(kind string)      { messagesTotal.WithLabelValues(kind).Inc() }
func IncDropped(reason string)    { droppedMessagesTotal.WithLabelValues(reason).Inc() }
func IncWriteError()              { writeErrorsTotal.Inc() }
