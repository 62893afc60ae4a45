package ai

import (
	"fmt"

	"atscore/internal/config"
	"atscore/internal/errors"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker guards calls of one result type. A nil breaker runs calls
// directly.
type CircuitBreaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// NewCircuitBreaker creates a breaker named after the guarded operation.
// It returns nil when the breaker is disabled.
func NewCircuitBreaker[T any](name string, cfg config.CircuitBreakerConfig, logger *errors.Logger) *CircuitBreaker[T] {
	if !cfg.Enabled {
		return nil
	}
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	settings := gobreaker.Settings{
		Name:        fmt.Sprintf("AI-%s", name),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
				"failure_threshold", cfg.FailureThreshold)
		},
	}

	return &CircuitBreaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// Execute runs fn under circuit breaker protection
func (b *CircuitBreaker[T]) Execute(fn func() (T, error)) (T, error) {
	if b == nil || b.cb == nil {
		return fn()
	}
	return b.cb.Execute(fn)
}

// GetStats returns circuit breaker statistics
func (b *CircuitBreaker[T]) GetStats() map[string]any {
	if b == nil || b.cb == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"counts":  b.cb.Counts(),
		"enabled": true,
	}
}

// IsHealthy reports whether the breaker is closed. A disabled breaker is healthy.
func (b *CircuitBreaker[T]) IsHealthy() bool {
	if b == nil || b.cb == nil {
		return true
	}
	return b.cb.State() == gobreaker.StateClosed
}
