package identity

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeProcessed = "processed"
	outcomeDuplicate = "duplicate"
	outcomeRejected  = "rejected"
	outcomeFailed    = "failed"
)

// Metrics counts webhook deliveries by outcome.
type Metrics struct {
	deliveries *prometheus.CounterVec
}

// NewMetrics registers the identity collectors.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bizops_webhook_deliveries_total",
		Help: "Identity webhook deliveries partitioned by event type and outcome.",
	}, []string{"event_type", "outcome"})
	registerer.MustRegister(deliveries)
	return &Metrics{deliveries: deliveries}
}

func (m *Metrics) observe(eventType, outcome string) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.deliveries.WithLabelValues(eventType, outcome).Inc()
}
