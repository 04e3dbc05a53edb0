package authz

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts guard decisions.
type Metrics struct {
	decisions *prometheus.CounterVec
}

// NewMetrics registers the authz collectors.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bizops_authz_decisions_total",
		Help: "Authorization decisions partitioned by action and outcome.",
	}, []string{"action", "outcome"})
	registerer.MustRegister(decisions)
	return &Metrics{decisions: decisions}
}

func (m *Metrics) observe(action Action, outcome string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(string(action), outcome).Inc()
}
