package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveSessions   prometheus.Gauge
	TurnEvents       *prometheus.CounterVec
	CapabilityErrors *prometheus.CounterVec
	WSMessages       *prometheus.CounterVec
	ReplyLatency     prometheus.Histogram

	latency *latencyWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of active practice sessions.",
		}),
		TurnEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_events_total",
			Help:      "Turn-taking state machine events by type.",
		}, []string{"event"}),
		CapabilityErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capability_errors_total",
			Help:      "Platform capability errors by capability and kind.",
		}, []string{"capability", "kind"}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		ReplyLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reply_latency_ms",
			Help:      "Latency from end of user utterance to reply text in milliseconds.",
			Buckets:   []float64{100, 250, 500, 750, 1000, 1500, 2500, 5000},
		}),
		latency: newLatencyWindow(256),
	}
}

// ObserveReplyLatency records one utterance-to-reply duration in both the
// Prometheus histogram and the rolling analytics window.
func (m *Metrics) ObserveReplyLatency(d time.Duration) {
	ms := float64(d.Milliseconds())
	m.ReplyLatency.Observe(ms)
	m.latency.Observe("utterance_to_reply", ms)
}

// ObserveStage records a named pipeline stage duration in the rolling window.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.latency.Observe(stage, float64(d.Milliseconds()))
}

// LatencySnapshot exposes the rolling window for the analytics report.
func (m *Metrics) LatencySnapshot() LatencySnapshot {
	return m.latency.Snapshot()
}

// MeanReplyLatency returns the windowed mean utterance-to-reply latency.
func (m *Metrics) MeanReplyLatency() time.Duration {
	return m.latency.Mean("utterance_to_reply")
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
