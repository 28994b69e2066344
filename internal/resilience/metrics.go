package resilience

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

var (
	guardedCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobshield_guarded_calls_total",
		Help: "Guarded external calls, labelled by call site and outcome",
	}, []string{"call", "outcome"})

	breakerStateGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "jobshield_circuit_breaker_state",
		Help: "Current state of circuit breakers (0=closed, 0.5=half-open, 1=open)",
	}, []string{"breaker"})

	breakerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobshield_circuit_breaker_requests_total",
		Help: "Total operations executed through a circuit breaker",
	}, []string{"breaker"})

	breakerFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobshield_circuit_breaker_failures_total",
		Help: "Total breaker executions that resulted in an error",
	}, []string{"breaker"})

	breakerRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobshield_circuit_breaker_rejections_total",
		Help: "Total calls rejected because the breaker was open",
	}, []string{"breaker"})

	breakerStateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobshield_circuit_breaker_state_changes_total",
		Help: "Total circuit breaker state transitions",
	}, []string{"breaker", "from", "to"})
)

func recordCall(name string, kind Kind) {
	guardedCallsTotal.WithLabelValues(name, kind.String()).Inc()
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 0.5
	case gobreaker.StateOpen:
		return 1
	default:
		return -1
	}
}

func recordBreakerStateChange(name string, from, to gobreaker.State) {
	breakerStateTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
	breakerStateGauge.WithLabelValues(name).Set(breakerStateValue(to))
}

func recordBreakerRequest(name string) {
	breakerRequestsTotal.WithLabelValues(name).Inc()
}

func recordBreakerFailure(name string) {
	breakerFailuresTotal.WithLabelValues(name).Inc()
}

func recordBreakerRejection(name string) {
	breakerRejectionsTotal.WithLabelValues(name).Inc()
}
