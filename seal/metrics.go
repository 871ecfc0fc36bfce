package seal

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	validations      *prometheus.CounterVec
	resolverFailures prometheus.Counter
}

// newMetrics registers the collectors on reg. nil reg leaves them unregistered
func newMetrics(reg prometheus.Registerer) *metrics {
	ret := &metrics{
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seal",
			Name:      "validations_total",
			Help:      "Seal validations by close method and resulting status.",
		}, []string{"method", "status"}),
		resolverFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seal",
			Name:      "resolver_failures_total",
			Help:      "Seal validations aborted by chain data resolver failures.",
		}),
	}
	if reg != nil {
		reg.MustRegister(ret.validations, ret.resolverFailures)
	}
	return ret
}
