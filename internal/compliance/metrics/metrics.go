package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for compliance checks and the violation
// lifecycle.
type Metrics struct {
	// Check outcomes by check type and outcome
	CheckOutcome *prometheus.CounterVec

	// Full check latency including the ledger write
	CheckLatency *prometheus.HistogramVec

	// Per-rule evaluation latency
	RuleLatency *prometheus.HistogramVec

	// Detected violations by category and severity
	ViolationsDetected *prometheus.CounterVec

	ViolationsResolved prometheus.Counter

	// Open violations past their escalation window, set by the scanner
	OverdueViolations *prometheus.GaugeVec
}

// New creates a new Metrics instance with all compliance metrics registered.
func New() *Metrics {
	return &Metrics{
		CheckOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerguard_compliance_checks_total",
			Help: "Total compliance checks by type and outcome",
		}, []string{"check_type", "outcome"}), // outcome: PASSED, FAILED, EVALUATION_ERROR

		CheckLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledgerguard_compliance_check_duration_seconds",
			Help:    "Duration of a compliance check including the ledger write",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"check_type"}),

		RuleLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledgerguard_compliance_rule_duration_seconds",
			Help:    "Duration of a single rule evaluation",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"rule"}),

		ViolationsDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerguard_compliance_violations_detected_total",
			Help: "Total violations detected by category and severity",
		}, []string{"category", "severity"}),

		ViolationsResolved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgerguard_compliance_violations_resolved_total",
			Help: "Total violations resolved",
		}),

		OverdueViolations: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ledgerguard_compliance_overdue_violations",
			Help: "Open violations past their escalation window by severity",
		}, []string{"severity"}),
	}
}

// ObserveCheck records a finished check.
func (m *Metrics) ObserveCheck(checkType, outcome string, d time.Duration) {
	if m != nil {
		m.CheckOutcome.WithLabelValues(checkType, outcome).Inc()
		m.CheckLatency.WithLabelValues(checkType).Observe(d.Seconds())
	}
}

// ObserveRule records one rule evaluation.
func (m *Metrics) ObserveRule(rule string, d time.Duration) {
	if m != nil {
		m.RuleLatency.WithLabelValues(rule).Observe(d.Seconds())
	}
}

// IncrementDetected records a detected violation.
func (m *Metrics) IncrementDetected(category, severity string) {
	if m != nil {
		m.ViolationsDetected.WithLabelValues(category, severity).Inc()
	}
}

// IncrementResolved records a resolution.
func (m *Metrics) IncrementResolved() {
	if m != nil {
		m.ViolationsResolved.Inc()
	}
}

// SetOverdue replaces the overdue gauge with counts by severity.
func (m *Metrics) SetOverdue(bySeverity map[string]int) {
	if m == nil {
		return
	}
	m.OverdueViolations.Reset()
	for sev, n := range bySeverity {
		m.OverdueViolations.WithLabelValues(sev).Set(float64(n))
	}
}
