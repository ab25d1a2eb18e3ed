package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MonitorCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sunwatch_monitor_cycles_total",
		Help: "Total number of completed monitor scheduling cycles.",
	})

	MonitorCycleFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sunwatch_monitor_cycle_failures_total",
		Help: "Total number of monitor cycles that failed to resolve and fell back to the poll interval.",
	})

	MonitorActivePeriod = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sunwatch_monitor_active_period",
		Help: "1 while a sun-event period is active, 0 otherwise.",
	})

	PeriodTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sunwatch_period_transitions_total",
		Help: "Period boundary transitions observed by the monitor, labelled by period type and edge.",
	}, []string{"period_type", "edge"})
)
