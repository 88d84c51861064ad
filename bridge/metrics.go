package bridge

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	bridgeerr "goswapbridge/errors"
)

const metricsNamespace = "swapbridge"

type Metrics struct {
	// Operations counts engine calls by operation and result. Result is "ok"
	// or the registered error code.
	Operations *prometheus.CounterVec
	// Settlements counts accepted settlements by authorization path and
	// outcome.
	Settlements *prometheus.CounterVec
}

// NewMetrics creates the engine counters and registers them with reg when
// reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "operations_total",
			Help:      "Number of engine operations by result.",
		}, []string{"op", "result"}),
		Settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "settlements_total",
			Help:      "Number of accepted settlements by path and outcome.",
		}, []string{"path", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.Operations, m.Settlements)
	}
	return m
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return strconv.FormatUint(uint64(bridgeerr.Code(err)), 10)
}
