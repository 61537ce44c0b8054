package retarget

import (
	"log/slog"

	"github.com/ayusman/vrmtrack/internal/rig"
	"github.com/ayusman/vrmtrack/internal/solver"
)

// Options is a serializable set of tuning overrides.
type Options struct {
	Bones         map[rig.BoneName]Tuning
	GazeSmoothing float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithBoneTuning overrides one bone's dampener and lerp. Lerp is clamped to
// [0,1] and a negative dampener to zero.
func WithBoneTuning(name rig.BoneName, t Tuning) Option {
	return func(e *Engine) {
		t.Lerp = clamp01(t.Lerp)
		if t.Dampener < 0 {
			t.Dampener = 0
		}
		e.tuning[name] = t
	}
}

// WithGazeSmoothing sets the per-frame gaze easing factor, clamped to [0,1].
func WithGazeSmoothing(f float64) Option {
	return func(e *Engine) {
		e.gazeSmoothing = clamp01(f)
	}
}

// WithOptions applies every override in o. A zero GazeSmoothing keeps the
// default.
func WithOptions(o Options) Option {
	return func(e *Engine) {
		for name, t := range o.Bones {
			WithBoneTuning(name, t)(e)
		}
		if o.GazeSmoothing > 0 {
			WithGazeSmoothing(o.GazeSmoothing)(e)
		}
	}
}

// WithSolver replaces the default kinematic solver.
func WithSolver(s solver.Solver) Option {
	return func(e *Engine) {
		e.solver = s
	}
}

// WithLogger sets the logger used for per-category warnings.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}
