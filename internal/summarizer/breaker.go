package summarizer

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// breakerConfig holds circuit breaker tuning for model calls.
type breakerConfig struct {
	// maxFailures is the number of consecutive failures that trip the
	// circuit.
	maxFailures uint32

	// timeout is how long the circuit stays open before allowing a probe
	// request.
	timeout time.Duration
}

// newBreaker wraps model calls in a gobreaker circuit. A model that is
// down stops being hammered after a few consecutive failures; rollups in
// the meantime fail fast with ErrUnavailable and defer to the next catch-up
// pass.
func newBreaker(cfg breakerConfig) *gobreaker.CircuitBreaker {
	if cfg.maxFailures == 0 {
		cfg.maxFailures = 3
	}
	if cfg.timeout == 0 {
		cfg.timeout = 30 * time.Second
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "summarizer",
		MaxRequests: 1,
		Timeout:     cfg.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.maxFailures
		},
	})
}

// throughBreaker executes fn through the breaker and normalizes open-state
// rejections to ErrUnavailable.
func throughBreaker(ctx context.Context, cb *gobreaker.CircuitBreaker, fn func() (string, error)) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	result, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", ErrUnavailable
		}
		return "", err
	}
	return result.(string), nil
}
