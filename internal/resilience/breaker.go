package resilience

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/marek/jobshield/internal/observability"
)

// ErrOpen is returned without invoking the guarded call when the breaker has
// tripped. Callers treat it like any other stage failure.
var ErrOpen = errors.New("circuit breaker is open")

// Breaker wraps a gobreaker circuit breaker with logging and metrics
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker creates a named breaker that trips after failureThreshold
// consecutive failures and stays open for openFor before probing again.
func NewBreaker(name string, failureThreshold uint32, openFor time.Duration) *Breaker {
	if failureThreshold == 0 {
		failureThreshold = 5
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			observability.Logger().Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			recordBreakerStateChange(name, from, to)
		},
	}

	return &Breaker{name: name, cb: gobreaker.NewCircuitBreaker(settings)}
}

// Execute runs fn through the breaker. When the breaker is open the call is
// rejected with ErrOpen and fn never runs.
func (b *Breaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	recordBreakerRequest(b.name)

	value, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			recordBreakerRejection(b.name)
			return nil, ErrOpen
		}
		recordBreakerFailure(b.name)
	}
	return value, err
}

// State returns the breaker's current state name for stats reporting
func (b *Breaker) State() string {
	return b.cb.State().String()
}
