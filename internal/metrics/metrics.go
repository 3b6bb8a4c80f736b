package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the protocol operations and the store's transaction
// retry loop.
type Metrics struct {
	Ops       *prometheus.CounterVec
	TxRetries prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Ops: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cafe",
			Name:      "pos_operations_total",
			Help:      "Protocol operations by name and outcome.",
		}, []string{"op", "outcome"}),
		TxRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cafe",
			Name:      "store_tx_retries_total",
			Help:      "Serialization-failure retries in the document store.",
		}),
	}
}

// Observe records one finished operation.
func (m *Metrics) Observe(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Ops.WithLabelValues(op, outcome).Inc()
}
