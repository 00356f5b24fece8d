package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ClientMetrics records what the document workspace does: user actions,
// registry size and subscription health.
type ClientMetrics struct {
	service string

	actionTotal        *prometheus.CounterVec
	actionDuration     *prometheus.HistogramVec
	snapshotSize       prometheus.Gauge
	subscriptionErrors prometheus.Counter
}

func NewClientMetrics(service string) *ClientMetrics {
	actionTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workspace",
			Name:      "actions_total",
			Help:      "Total workspace actions by outcome.",
		},
		[]string{"service", "action", "outcome"},
	)
	actionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "workspace",
			Name:      "action_duration_seconds",
			Help:      "Workspace action duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"service", "action"},
	)
	snapshotSize := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "documents",
			Help:      "Number of documents in the latest registry snapshot.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	subscriptionErrors := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "subscription_errors_total",
			Help:      "Total errors reported by the registry subscription.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	return &ClientMetrics{
		service:            service,
		actionTotal:        actionTotal,
		actionDuration:     actionDuration,
		snapshotSize:       snapshotSize,
		subscriptionErrors: subscriptionErrors,
	}
}

func (m *ClientMetrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.actionTotal,
		m.actionDuration,
		m.snapshotSize,
		m.subscriptionErrors,
	}
}

func (m *ClientMetrics) RecordAction(action, outcome string, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.actionTotal.WithLabelValues(m.service, action, outcome).Inc()
	if duration > 0 {
		m.actionDuration.WithLabelValues(m.service, action).Observe(duration.Seconds())
	}
}

func (m *ClientMetrics) ObserveSnapshot(size int) {
	m.snapshotSize.Set(float64(size))
}

func (m *ClientMetrics) RecordSubscriptionError() {
	m.subscriptionErrors.Inc()
}
