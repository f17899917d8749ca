// Package liveness answers one question for the scheduler: has the user
// been active recently? Rollups never run concurrently with active use, so
// every probe is consumed fail-safe — an erroring or unreachable probe
// reads as "active" and the scheduler simply skips this invocation.
package liveness

import (
	"context"
	"time"
)

// Probe reports recent user activity.
type Probe interface {
	// Active reports whether the user has been active within the probe's
	// window. Implementations return an error when they cannot tell;
	// callers must then assume active.
	Active(ctx context.Context) (bool, error)

	// Close releases probe resources.
	Close() error
}

// DefaultWindow is how far back a probe looks for activity when not
// configured otherwise.
const DefaultWindow = 30 * time.Minute

// StaticProbe always reports a fixed answer. Used when no probe is
// configured (never active, rollups always admitted) and in tests.
type StaticProbe bool

// Active reports the fixed answer.
func (p StaticProbe) Active(ctx context.Context) (bool, error) {
	return bool(p), nil
}

// Close is a no-op.
func (p StaticProbe) Close() error { return nil }
