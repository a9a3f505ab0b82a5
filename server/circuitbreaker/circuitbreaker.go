// Package circuitbreaker guards the model backend with a two-step
// sony/gobreaker breaker and exports its state to Prometheus.
package circuitbreaker

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/teilomillet/studyscribe/config"
)

// ErrCircuitOpen is returned when the breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker wraps gobreaker's two-step breaker so callers can report
// the outcome of long-lived operations such as streams.
type CircuitBreaker struct {
	name   string
	cb     *gobreaker.TwoStepCircuitBreaker
	logger *zap.Logger

	stateGauge prometheus.Gauge
	tripsTotal prometheus.Counter
}

// NewCircuitBreaker creates a breaker named after the backend it guards.
// A nil registry skips metric registration.
func NewCircuitBreaker(name string, cfg config.CircuitBreakerConfig, logger *zap.Logger, registry *prometheus.Registry) *CircuitBreaker {
	b := &CircuitBreaker{
		name:   name,
		logger: logger,
		stateGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "studyscribe_circuit_breaker_state",
			Help:        "Current state of the circuit breaker (0=closed, 1=half-open, 2=open)",
			ConstLabels: prometheus.Labels{"name": name},
		}),
		tripsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "studyscribe_circuit_breaker_trips_total",
			Help:        "Total number of times the circuit breaker has tripped",
			ConstLabels: prometheus.Labels{"name": name},
		}),
	}

	if registry != nil {
		registry.MustRegister(b.stateGauge, b.tripsTotal)
	}

	threshold := cfg.FailureThreshold
	b.cb = gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: b.onStateChange,
	})

	return b
}

func (b *CircuitBreaker) onStateChange(name string, from, to gobreaker.State) {
	b.stateGauge.Set(float64(to))
	if to == gobreaker.StateOpen {
		b.tripsTotal.Inc()
	}
	b.logger.Warn("Circuit breaker state changed",
		zap.String("name", name),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)
}

// Allow reserves a slot for one call. The returned done func must be called
// exactly once with the call's error. Caller cancellation is not counted
// against the backend.
func (b *CircuitBreaker) Allow() (done func(err error), err error) {
	report, err := b.cb.Allow()
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}
	return func(callErr error) {
		report(callErr == nil || errors.Is(callErr, context.Canceled))
	}, nil
}

// Execute runs f under the breaker.
func (b *CircuitBreaker) Execute(f func() error) error {
	done, err := b.Allow()
	if err != nil {
		return err
	}
	err = f()
	done(err)
	return err
}

// State returns the current breaker state.
func (b *CircuitBreaker) State() gobreaker.State {
	return b.cb.State()
}

// Counts returns the breaker's counters for the current interval.
func (b *CircuitBreaker) Counts() gobreaker.Counts {
	return b.cb.Counts()
}

// Name returns the breaker name.
func (b *CircuitBreaker) Name() string {
	return b.name
}
