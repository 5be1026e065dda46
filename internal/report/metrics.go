package report

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recalculation outcomes.
const (
	outcomeOK        = "ok"
	outcomeWarning   = "warning"
	outcomeFault     = "fault"
	outcomeCancelled = "cancelled"
)

var (
	recalculationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "raket",
			Name:      "tax_recalculations_total",
			Help:      "Total number of tax recalculations by outcome",
		},
		[]string{"outcome"},
	)
	recalculationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "raket",
			Name:      "tax_recalculation_duration_seconds",
			Help:      "Duration of tax recalculations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
	reportsBuilt = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "raket",
			Name:      "reports_built_total",
			Help:      "Total number of annual reports built",
		},
	)
	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "raket",
			Name:      "tax_decisions_total",
			Help:      "Total number of tax decision steps by trigger and result",
		},
		[]string{"trigger", "result"},
	)
)
