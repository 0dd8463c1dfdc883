package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the hash-chain ledger.
type Metrics struct {
	AppendLatency     prometheus.Histogram
	EntriesAppended   prometheus.Counter
	AppendConflicts   prometheus.Counter
	IntegrityFailures *prometheus.CounterVec
	EntriesShipped    prometheus.Counter
	ShipFailures      prometheus.Counter
}

// New creates a new Metrics instance with all ledger metrics registered.
func New() *Metrics {
	return &Metrics{
		AppendLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledgerguard_ledger_append_duration_seconds",
			Help:    "Duration of ledger appends including lock wait and persistence",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		EntriesAppended: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgerguard_ledger_entries_appended_total",
			Help: "Total ledger entries committed",
		}),
		AppendConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgerguard_ledger_append_conflicts_total",
			Help: "Appends rejected because the expected predecessor was no longer head",
		}),
		IntegrityFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerguard_ledger_integrity_failures_total",
			Help: "Digest or linkage mismatches detected in stored entries",
		}, []string{"source"}), // source: "append", "verify"
		EntriesShipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgerguard_ledger_entries_shipped_total",
			Help: "Ledger entries published to the downstream topic",
		}),
		ShipFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgerguard_ledger_ship_failures_total",
			Help: "Failed attempts to publish ledger entries downstream",
		}),
	}
}

func (m *Metrics) ObserveAppend(d time.Duration, entries int) {
	if m != nil {
		m.AppendLatency.Observe(d.Seconds())
		m.EntriesAppended.Add(float64(entries))
	}
}

func (m *Metrics) IncrementConflict() {
	if m != nil {
		m.AppendConflicts.Inc()
	}
}

func (m *Metrics) IncrementIntegrityFailure(source string) {
	if m != nil {
		m.IntegrityFailures.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) AddShipped(n int) {
	if m != nil {
		m.EntriesShipped.Add(float64(n))
	}
}

func (m *Metrics) IncrementShipFailure() {
	if m != nil {
		m.ShipFailures.Inc()
	}
}
