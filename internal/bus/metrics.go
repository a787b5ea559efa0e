package bus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	processed *prometheus.CounterVec
	retried   *prometheus.CounterVec
	panics    *prometheus.CounterVec
}

// NewMetrics registers job counters on reg. Pass prometheus.NewRegistry()
// in tests to avoid default-registry collisions.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		processed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "drydock_jobs_processed_total",
			Help: "Jobs processed, by type and outcome.",
		}, []string{"type", "outcome"}),
		retried: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "drydock_jobs_retried_total",
			Help: "Jobs handed back to the bus for redelivery.",
		}, []string{"type"}),
		panics: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "drydock_jobs_panics_total",
			Help: "Handler panics recovered by the worker pool.",
		}, []string{"type"}),
	}
}

const (
	outcomeOK        = "ok"
	outcomeTerminal  = "terminal"
	outcomeExhausted = "exhausted"
	outcomeDropped   = "dropped"
)
