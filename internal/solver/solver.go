// Package solver turns raw landmark sets into per-joint rotation estimates
// and facial signals.
package solver

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/vrmtrack/internal/landmark"
)

var (
	// ErrInsufficientLandmarks is returned when a landmark set is missing or
	// shorter than the solver needs.
	ErrInsufficientLandmarks = errors.New("insufficient landmarks")
	// ErrNonFinite is returned when a landmark set contains NaN or Inf.
	ErrNonFinite = errors.New("non-finite landmark")
	// ErrDegenerate is returned when key landmarks coincide and no direction
	// can be derived from them.
	ErrDegenerate = errors.New("degenerate landmark geometry")
)

// Euler is a rotation in radians, applied in X, Y, Z order.
type Euler struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Finite reports whether all components are real numbers.
func (e Euler) Finite() bool {
	return finite(e.X) && finite(e.Y) && finite(e.Z)
}

// Hips carries the root rotation and an image-space position estimate.
type Hips struct {
	Rotation Euler  `json:"rotation"`
	Position r3.Vec `json:"position"`
}

// Pose is the solved body estimate. Left and Right are the subject's sides.
type Pose struct {
	Hips          Hips  `json:"hips"`
	Spine         Euler `json:"spine"`
	LeftUpperArm  Euler `json:"left_upper_arm"`
	LeftLowerArm  Euler `json:"left_lower_arm"`
	RightUpperArm Euler `json:"right_upper_arm"`
	RightLowerArm Euler `json:"right_lower_arm"`
	// Only Z is estimated for the hands; it is combined with the wrist
	// twist and swing from the hand solve.
	LeftHand  Euler `json:"left_hand"`
	RightHand Euler `json:"right_hand"`
}

// Finite reports whether every joint is finite.
func (p *Pose) Finite() bool {
	for _, e := range []Euler{
		p.Hips.Rotation, p.Spine,
		p.LeftUpperArm, p.LeftLowerArm, p.RightUpperArm, p.RightLowerArm,
		p.LeftHand, p.RightHand,
	} {
		if !e.Finite() {
			return false
		}
	}
	return finite(p.Hips.Position.X) && finite(p.Hips.Position.Y) && finite(p.Hips.Position.Z)
}

// Digit identifies a finger.
type Digit int

const (
	Thumb Digit = iota
	Index
	Middle
	Ring
	Little
	NumDigits
)

// Segment identifies a finger joint from the palm outward. For the thumb
// the proximal segment is the metacarpal.
type Segment int

const (
	Proximal Segment = iota
	Intermediate
	Distal
	NumSegments
)

// Hand is the solved estimate for one of the subject's hands.
type Hand struct {
	Side    landmark.Side                 `json:"side"`
	Wrist   Euler                         `json:"wrist"`
	Fingers [NumDigits][NumSegments]Euler `json:"fingers"`
}

// Joint returns the rotation of one finger joint.
func (h *Hand) Joint(d Digit, s Segment) Euler {
	return h.Fingers[d][s]
}

// Finite reports whether every joint is finite.
func (h *Hand) Finite() bool {
	if !h.Wrist.Finite() {
		return false
	}
	for _, digit := range h.Fingers {
		for _, e := range digit {
			if !e.Finite() {
				return false
			}
		}
	}
	return true
}

// Eyes holds per-eye openness, 1 open and 0 shut.
type Eyes struct {
	L float64 `json:"l"`
	R float64 `json:"r"`
}

// Mouth holds the five vowel shape weights in [0,1].
type Mouth struct {
	A float64 `json:"a"`
	I float64 `json:"i"`
	U float64 `json:"u"`
	E float64 `json:"e"`
	O float64 `json:"o"`
}

// Pupil is the iris offset in eye half-widths; X toward the subject's left,
// Y up.
type Pupil struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Face is the solved facial estimate.
type Face struct {
	Head  Euler `json:"head"`
	Eye   Eyes  `json:"eye"`
	Mouth Mouth `json:"mouth"`
	Pupil Pupil `json:"pupil"`
}

// Finite reports whether every signal is finite.
func (f *Face) Finite() bool {
	for _, v := range []float64{
		f.Eye.L, f.Eye.R,
		f.Mouth.A, f.Mouth.I, f.Mouth.U, f.Mouth.E, f.Mouth.O,
		f.Pupil.X, f.Pupil.Y,
	} {
		if !finite(v) {
			return false
		}
	}
	return f.Head.Finite()
}

// Solver converts landmark sets into solved estimates. Implementations must
// be pure functions of their input.
type Solver interface {
	// SolvePose uses 3D world landmarks, with 2D image landmarks as an
	// optional reference for the root position.
	SolvePose(world, image []landmark.Point3D) (*Pose, error)
	// SolveHand solves one hand; side is the subject's side after any
	// mirror swap.
	SolveHand(points []landmark.Point3D, side landmark.Side) (*Hand, error)
	SolveFace(points []landmark.Point3D) (*Face, error)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
