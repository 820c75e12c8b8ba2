package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for traffic budget monitoring.
type Metrics struct {
	// Check outcomes
	checks        *prometheus.CounterVec
	checkDuration prometheus.Histogram

	// Cycle usage
	cycleBytes   *prometheus.GaugeVec
	limitBytes   prometheus.Gauge
	usagePercent prometheus.Gauge

	// Enforcement
	blocked            prometheus.Gauge
	warnings           *prometheus.CounterVec
	enforcementActions *prometheus.CounterVec
}

// New creates a Metrics instance registered with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		checks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trafficward_checks_total",
				Help: "Total number of budget checks performed",
			},
			[]string{"result"},
		),

		checkDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "trafficward_check_duration_seconds",
				Help:    "Duration of budget checks in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to 2s
			},
		),

		cycleBytes: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trafficward_cycle_bytes",
				Help: "Bytes counted this billing cycle by direction",
			},
			[]string{"direction"},
		),

		limitBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "trafficward_limit_bytes",
				Help: "Configured monthly traffic limit in bytes",
			},
		),

		usagePercent: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "trafficward_usage_percentage",
				Help: "Billable usage as percentage of the monthly limit",
			},
		),

		blocked: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "trafficward_blocked",
				Help: "Whether enforcement is active (1) or not (0)",
			},
		),

		warnings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trafficward_warnings_total",
				Help: "Total number of threshold warnings issued",
			},
			[]string{"decile"},
		),

		enforcementActions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trafficward_enforcement_actions_total",
				Help: "Total number of enforcement actions taken",
			},
			[]string{"action"},
		),
	}
}

// RecordCheck records a completed budget check.
func (m *Metrics) RecordCheck(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.checks.WithLabelValues(result).Inc()
}

// RecordCheckDuration records how long a budget check took.
func (m *Metrics) RecordCheckDuration(seconds float64) {
	m.checkDuration.Observe(seconds)
}

// UpdateUsage updates the cycle gauges after a check.
func (m *Metrics) UpdateUsage(rx, tx, billable, limit uint64, percent float64) {
	m.cycleBytes.WithLabelValues("rx").Set(float64(rx))
	m.cycleBytes.WithLabelValues("tx").Set(float64(tx))
	m.cycleBytes.WithLabelValues("billable").Set(float64(billable))
	m.limitBytes.Set(float64(limit))
	m.usagePercent.Set(percent)
}

// UpdateBlocked updates the enforcement state gauge.
func (m *Metrics) UpdateBlocked(blocked bool) {
	if blocked {
		m.blocked.Set(1)
	} else {
		m.blocked.Set(0)
	}
}

// RecordWarning records an issued threshold warning.
func (m *Metrics) RecordWarning(decile int) {
	m.warnings.WithLabelValues(strconv.Itoa(decile)).Inc()
}

// RecordEnforcementAction records a block or unblock.
func (m *Metrics) RecordEnforcementAction(action string) {
	m.enforcementActions.WithLabelValues(action).Inc()
}
