// Package autograd is the ergonomic entrypoint onto reverse-mode backward
// passes implemented by pkg/tensor, grounded in the teacher's
// pkg/autograd.Engine (timing instrumentation wrapped around a graph-wide
// Backward call) adapted to tensorgrad's single-tensor backward() trigger
// and wired to internal/telemetry instead of a bespoke duration field.
package autograd

import (
	"time"

	"github.com/Hirogava/tensorgrad/internal/telemetry"
	"github.com/Hirogava/tensorgrad/pkg/tensor"
)

// Engine runs backward passes with timing and logging around
// tensor.Tensor.Backward, the seams spec.md §4.3's "Backward trigger"
// leaves to the caller.
type Engine struct {
	lastDuration time.Duration
}

// NewEngine constructs an Engine ready to drive backward passes.
func NewEngine() *Engine {
	return &Engine{}
}

// LastDuration reports how long the most recent Backward call took.
func (e *Engine) LastDuration() time.Duration { return e.lastDuration }

// Backward runs t.Backward() (the no-argument, seed-with-1 entrypoint),
// recording its duration to internal/telemetry.BackwardDuration and
// logging failures at warn level.
func (e *Engine) Backward(t *tensor.Tensor) error {
	start := time.Now()
	err := t.Backward()
	e.lastDuration = time.Since(start)
	telemetry.BackwardDuration.Observe(e.lastDuration.Seconds())
	if err != nil {
		telemetry.Log.Warn().Err(err).Dur("duration", e.lastDuration).Msg("backward pass failed")
		return err
	}
	telemetry.Log.Debug().Dur("duration", e.lastDuration).Msg("backward pass complete")
	return nil
}
