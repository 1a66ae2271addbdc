package metrics

import "github.com/prometheus/client_golang/prometheus"

var metricsNamespace = "gamechat"

var (
	// SessionsGauge tracks currently connected sessions.
	SessionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "sessions",
	})

	// ChannelsGauge tracks live channels in the directory.
	ChannelsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "channels",
	})

	// PacketsEnqueuedCount counts payloads handed to session queues, by packet type.
	PacketsEnqueuedCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "packets_enqueued_count",
	}, []string{"type"})

	// PacketsDroppedCount counts payloads dropped on full session queues.
	PacketsDroppedCount = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "packets_dropped_count",
	})

	// BroadcastsCount counts channel-wide fan-out passes.
	BroadcastsCount = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "broadcasts_count",
	})
)

var (
	PacketsEnqueuedMessage prometheus.Counter
	PacketsEnqueuedSystem  prometheus.Counter
)

func init() {
	prometheus.MustRegister(SessionsGauge)
	prometheus.MustRegister(ChannelsGauge)
	prometheus.MustRegister(PacketsEnqueuedCount)
	prometheus.MustRegister(PacketsDroppedCount)
	prometheus.MustRegister(BroadcastsCount)

	PacketsEnqueuedMessage = PacketsEnqueuedCount.WithLabelValues("message")
	PacketsEnqueuedSystem = PacketsEnqueuedCount.WithLabelValues("system")
}
