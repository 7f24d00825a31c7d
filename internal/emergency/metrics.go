package emergency

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the emergency workflow.
type Metrics struct {
	TriggersTotal    *prometheus.CounterVec
	AlertsTotal      *prometheus.CounterVec
	DispatchDuration prometheus.Histogram
	ChannelOutcomes  *prometheus.CounterVec
	ResolverSource   *prometheus.CounterVec
	LifecycleTotal   *prometheus.CounterVec
}

// NewMetrics registers and returns workflow metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TriggersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_triggers_total",
			Help: "Total trigger requests by outcome.",
		}, []string{"outcome"}),
		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_alerts_total",
			Help: "Total alerts created by alert type.",
		}, []string{"type"}),
		DispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "beacon_dispatch_duration_seconds",
			Help:    "Duration of a full notification fan-out in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s .. ~51s
		}),
		ChannelOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_channel_outcomes_total",
			Help: "Per-channel send outcomes.",
		}, []string{"channel", "outcome"}),
		ResolverSource: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_location_source_total",
			Help: "Which fallback source produced the resolved location.",
		}, []string{"source"}),
		LifecycleTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_alert_lifecycle_total",
			Help: "Alert lifecycle transitions, including rejected conflicts.",
		}, []string{"transition"}),
	}

	reg.MustRegister(
		m.TriggersTotal,
		m.AlertsTotal,
		m.DispatchDuration,
		m.ChannelOutcomes,
		m.ResolverSource,
		m.LifecycleTotal,
	)
	return m
}
