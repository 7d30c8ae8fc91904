package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	AlertsScheduledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chimehook_alerts_scheduled_total",
			Help: "Total number of alert requests accepted, by mode.",
		},
		[]string{"mode"}, // immediate | deferred
	)

	DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chimehook_deliveries_total",
			Help: "Total number of webhook delivery attempts by outcome.",
		},
		[]string{"outcome"}, // delivered | failed | invalid_url | corrupt
	)

	DrainCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chimehook_drain_cycles_total",
			Help: "Total number of drain cycles executed.",
		},
	)

	DrainedAlertsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chimehook_drained_alerts_total",
			Help: "Total number of due alerts removed from the store.",
		},
	)

	DeadLettersTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chimehook_dead_letters_total",
			Help: "Total number of failed deliveries published to the dead-letter topic.",
		},
	)

	ScheduledBacklog = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chimehook_scheduled_backlog",
			Help: "Number of alerts currently waiting in the durable store.",
		},
	)
)

func MustRegister(reg *prometheus.Registry) {
	reg.MustRegister(
		AlertsScheduledTotal,
		DeliveriesTotal,
		DrainCyclesTotal,
		DrainedAlertsTotal,
		DeadLettersTotal,
		ScheduledBacklog,
	)
}
