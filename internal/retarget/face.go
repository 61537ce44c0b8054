package retarget

import (
	"math"

	"github.com/ayusman/vrmtrack/internal/rig"
	"github.com/ayusman/vrmtrack/internal/solver"
)

// Facial smoothing factors.
const (
	BlinkBlend  = 0.5
	MouthBlend  = 0.5
	DefaultGaze = 0.4
)

// Blink stabilization thresholds.
const (
	// BlinkMaxYaw is the head yaw, in radians, past which the far eye is
	// considered hidden.
	BlinkMaxYaw = 0.5
	// WinkThreshold is the minimum per-eye difference kept as a wink.
	WinkThreshold = 0.8
	// blinkFollow is how far the merged value moves from the lower eye
	// toward the higher.
	blinkFollow = 0.05
)

// SmoothingState holds the cross-frame state of an engine.
type SmoothingState struct {
	// Gaze is the smoothed pupil offset, stored as (pupil Y, pupil X).
	Gaze [2]float64
}

// UpdateGaze eases the stored gaze toward the new pupil offset by factor and
// returns the result.
func (s *SmoothingState) UpdateGaze(p solver.Pupil, factor float64) [2]float64 {
	s.Gaze[0] = lerp(s.Gaze[0], p.Y, factor)
	s.Gaze[1] = lerp(s.Gaze[1], p.X, factor)
	return s.Gaze
}

// StabilizeBlink suppresses false blinks from a single eye. Values are blink
// weights (1 shut). When the head is turned past BlinkMaxYaw the far eye is
// unreliable and the near eye drives both. Otherwise the eyes move together,
// following the more open one, unless they differ by at least WinkThreshold.
// The result depends only on its arguments.
func StabilizeBlink(eye solver.Eyes, headYaw float64) solver.Eyes {
	l, r := clamp01(eye.L), clamp01(eye.R)

	switch {
	case headYaw > BlinkMaxYaw:
		return solver.Eyes{L: r, R: r}
	case headYaw < -BlinkMaxYaw:
		return solver.Eyes{L: l, R: l}
	}

	if math.Abs(l-r) >= WinkThreshold {
		return solver.Eyes{L: l, R: r}
	}

	lo, hi := math.Min(l, r), math.Max(l, r)
	v := lerp(lo, hi, blinkFollow)
	return solver.Eyes{L: v, R: v}
}

var mouthShapes = []struct {
	preset rig.Expression
	weight func(solver.Mouth) float64
}{
	{rig.Aa, func(m solver.Mouth) float64 { return m.A }},
	{rig.Ih, func(m solver.Mouth) float64 { return m.I }},
	{rig.Ou, func(m solver.Mouth) float64 { return m.U }},
	{rig.Ee, func(m solver.Mouth) float64 { return m.E }},
	{rig.Oh, func(m solver.Mouth) float64 { return m.O }},
}

func (e *Engine) rigFace(face *solver.Face, h rig.Handle) {
	e.rotate(h, rig.Neck, face.Head)

	if cur, ok := h.Expression(rig.Blink); ok {
		eye := solver.Eyes{
			L: lerp(clamp01(1-face.Eye.L), cur, BlinkBlend),
			R: lerp(clamp01(1-face.Eye.R), cur, BlinkBlend),
		}
		eye = StabilizeBlink(eye, face.Head.Y)
		// One combined weight; the left eye drives it.
		h.SetExpression(rig.Blink, eye.L)
	}

	for _, shape := range mouthShapes {
		cur, ok := h.Expression(shape.preset)
		if !ok {
			continue
		}
		h.SetExpression(shape.preset, lerp(shape.weight(face.Mouth), cur, MouthBlend))
	}

	e.state.UpdateGaze(face.Pupil, e.gazeSmoothing)
}
