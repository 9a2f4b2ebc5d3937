package ai

import (
	"context"

	"cvforge/internal/config"
	"cvforge/internal/errors"

	"github.com/sony/gobreaker/v2"
)

// Breaker guards calls returning T. A nil *Breaker passes every call
// through and always reports healthy.
type Breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// AICircuitBreaker guards the completion calls of one operation.
type AICircuitBreaker = Breaker[*Completion]

// ModelCircuitBreaker guards model availability checks.
type ModelCircuitBreaker = Breaker[*ModelInfo]

// tripRule decides when a breaker opens from its rolling counts.
type tripRule func(gobreaker.Counts) bool

func failureRatio(minRequests uint32, threshold float64) tripRule {
	return func(c gobreaker.Counts) bool {
		if c.Requests == 0 || c.Requests < minRequests {
			return false
		}
		return float64(c.TotalFailures)/float64(c.Requests) >= threshold
	}
}

func newBreaker[T any](name, operation string, cfg config.CircuitBreakerConfig, trip tripRule, logger *errors.Logger) *Breaker[T] {
	if !cfg.Enabled {
		return nil
	}
	if logger == nil {
		logger = errors.Discard()
	}
	return &Breaker[T]{cb: gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: trip,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				"name", name,
				"operation", operation,
				"from", from.String(),
				"to", to.String())
		},
	})}
}

// NewAICircuitBreaker returns the completion breaker configured for
// operation, or nil when the operation has its breaker disabled.
func NewAICircuitBreaker(operation string, cfg *config.OperationAIConfig, logger *errors.Logger) *AICircuitBreaker {
	cb := cfg.CircuitBreaker
	return newBreaker[*Completion]("AI-"+operation, operation, cb,
		failureRatio(cb.MinRequests, cb.FailureThreshold), logger)
}

// NewModelCircuitBreaker returns the model check breaker for operation. It
// trips later than the completion breaker: a failed availability check
// does not block resume work.
func NewModelCircuitBreaker(operation string, cfg *config.OperationAIConfig, logger *errors.Logger) *ModelCircuitBreaker {
	return newBreaker[*ModelInfo]("AI-Model-"+operation, operation, cfg.CircuitBreaker,
		failureRatio(5, 0.8), logger)
}

// Execute runs fn under the breaker.
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	if b == nil {
		return fn()
	}
	return b.cb.Execute(fn)
}

// GetStats reports the breaker name, state and counts.
func (b *Breaker[T]) GetStats() map[string]any {
	if b == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"enabled": true,
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"counts":  b.cb.Counts(),
	}
}

// IsHealthy reports whether the breaker is closed.
func (b *Breaker[T]) IsHealthy() bool {
	return b == nil || b.cb.State() == gobreaker.StateClosed
}

type breakerCompleter struct {
	next    Completer
	breaker *AICircuitBreaker
}

// WithCircuitBreaker returns next guarded by cb, or next itself when cb is nil.
func WithCircuitBreaker(next Completer, cb *AICircuitBreaker) Completer {
	if cb == nil {
		return next
	}
	return &breakerCompleter{next: next, breaker: cb}
}

func (b *breakerCompleter) Complete(ctx context.Context, req ChatRequest) (*Completion, error) {
	return b.breaker.Execute(func() (*Completion, error) {
		return b.next.Complete(ctx, req)
	})
}
