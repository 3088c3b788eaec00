package membership

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mesh-intelligence/roster/pkg/types"
)

// Outcome label values besides the business error kinds.
const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// Metrics holds the prometheus collectors for manager operations. A nil
// *Metrics records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics creates the manager collectors and registers them with reg.
// A nil reg leaves them unregistered, which is what most tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "membership_operations_total",
			Help: "Membership operations by operation and outcome.",
		}, []string{"op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "membership_operation_duration_seconds",
			Help:    "Membership operation latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.duration)
	}
	return m
}

// observe records one finished operation.
func (m *Metrics) observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, outcome(err)).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func outcome(err error) string {
	if err == nil {
		return outcomeOK
	}
	if kind := types.KindOf(err); kind != types.KindNone {
		return string(kind)
	}
	return outcomeError
}
