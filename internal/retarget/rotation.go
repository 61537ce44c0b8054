package retarget

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ayusman/vrmtrack/internal/rig"
	"github.com/ayusman/vrmtrack/internal/solver"
)

// Default tuning applied to bones without an explicit entry.
const (
	DefaultDampener = 1.0
	DefaultLerp     = 0.5
)

// Tuning attenuates and smooths one bone. Dampener scales the solved angles;
// Lerp is the fraction of the way the bone moves toward the target each
// frame.
type Tuning struct {
	Dampener float64 `json:"dampener" toml:"dampener"`
	Lerp     float64 `json:"lerp" toml:"lerp"`
}

// DefaultTuningValue is the tuning for bones absent from the table.
var DefaultTuningValue = Tuning{Dampener: DefaultDampener, Lerp: DefaultLerp}

var defaultTuning = map[rig.BoneName]Tuning{
	rig.Hips:          {Dampener: 0.7, Lerp: DefaultLerp},
	rig.Chest:         {Dampener: 0.225, Lerp: 0.3},
	rig.Spine:         {Dampener: 0.225, Lerp: 0.3},
	rig.LeftUpperArm:  {Dampener: 1, Lerp: 0.3},
	rig.LeftLowerArm:  {Dampener: 1, Lerp: 0.3},
	rig.RightUpperArm: {Dampener: 1, Lerp: 0.3},
	rig.RightLowerArm: {Dampener: 1, Lerp: 0.3},
	rig.Neck:          {Dampener: 0.7, Lerp: DefaultLerp},
}

// DefaultTuning returns a copy of the built-in per-bone tuning table.
func DefaultTuning() map[rig.BoneName]Tuning {
	out := make(map[rig.BoneName]Tuning, len(defaultTuning))
	for k, v := range defaultTuning {
		out[k] = v
	}
	return out
}

// CorrectSign converts a rotation into the bone-space convention of the
// given rig version. Legacy rigs face the opposite way, which flips the X and
// Z axes; Y is shared.
func CorrectSign(rot solver.Euler, v rig.Version) solver.Euler {
	if v == rig.Legacy {
		return solver.Euler{X: -rot.X, Y: rot.Y, Z: -rot.Z}
	}
	return rot
}

// RotateBone eases the named bone toward rot. It reports false if the rig
// has no such bone or the target is not finite.
func RotateBone(h rig.Handle, name rig.BoneName, rot solver.Euler, t Tuning) bool {
	b, ok := h.Bone(name)
	if !ok {
		return false
	}

	rot = CorrectSign(rot, h.Version())
	rot = solver.Euler{X: rot.X * t.Dampener, Y: rot.Y * t.Dampener, Z: rot.Z * t.Dampener}
	if !rot.Finite() {
		return false
	}

	target := mgl64.AnglesToQuat(rot.X, rot.Y, rot.Z, mgl64.XYZ)
	b.SetOrientation(slerp(b.Orientation(), target, t.Lerp))
	return true
}

// slerp interpolates along the shorter arc. amount is clamped to [0,1]; at 1
// the target is returned unchanged.
func slerp(from, to mgl64.Quat, amount float64) mgl64.Quat {
	switch {
	case amount >= 1:
		return to
	case amount <= 0:
		return from
	}
	if from.Dot(to) < 0 {
		to = to.Scale(-1)
	}
	return mgl64.QuatSlerp(from, to, amount)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
