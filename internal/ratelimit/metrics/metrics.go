package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RejectedTotal   *prometheus.CounterVec
	StoreErrors     prometheus.Counter
	DegradedCircuit prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		RejectedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgerguard_ratelimit_rejected_total",
			Help: "Requests rejected because the caller's budget was spent",
		}, []string{"class"}),
		StoreErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgerguard_ratelimit_store_errors_total",
			Help: "Errors returned by the shared rate limit store",
		}),
		DegradedCircuit: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "ledgerguard_ratelimit_degraded",
			Help: "1 while rate limiting runs on the in-process fallback",
		}),
	}
}

func (m *Metrics) IncrementRejected(class string) {
	if m == nil {
		return
	}
	m.RejectedTotal.WithLabelValues(class).Inc()
}

func (m *Metrics) IncrementStoreErrors() {
	if m == nil {
		return
	}
	m.StoreErrors.Inc()
}

func (m *Metrics) SetDegraded(degraded bool) {
	if m == nil {
		return
	}
	if degraded {
		m.DegradedCircuit.Set(1)
		return
	}
	m.DegradedCircuit.Set(0)
}
