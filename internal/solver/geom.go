package solver

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/vrmtrack/internal/landmark"
)

const eps = 1e-9

// body converts a tracker point into the subject's body frame: +X toward the
// subject's left, +Y up, +Z toward the camera. The tracker's mirrored image
// space has every axis flipped relative to that.
func body(p landmark.Point3D) r3.Vec {
	return r3.Vec{X: -p.X, Y: -p.Y, Z: -p.Z}
}

func mid(a, b r3.Vec) r3.Vec {
	return r3.Scale(0.5, r3.Add(a, b))
}

func unit(v r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n < eps {
		return r3.Vec{}
	}
	return r3.Scale(1/n, v)
}

// angleBetween returns the unsigned angle between two vectors, or 0 if
// either is zero length.
func angleBetween(a, b r3.Vec) float64 {
	na, nb := r3.Norm(a), r3.Norm(b)
	if na < eps || nb < eps {
		return 0
	}
	return math.Acos(clamp(r3.Dot(a, b)/(na*nb), -1, 1))
}

// yaw is the rotation about +Y that swings +X onto v's horizontal heading.
func yaw(v r3.Vec) float64 {
	return math.Atan2(-v.Z, v.X)
}

// roll is the elevation of v above the horizontal plane.
func roll(v r3.Vec) float64 {
	return math.Atan2(v.Y, math.Hypot(v.X, v.Z))
}

// limbRotation expresses a limb direction as the rotation that carries the
// limb's rest direction onto it. Left limbs rest along +X and right limbs
// along -X. Z raises the limb, Y swings it forward or back.
func limbRotation(d r3.Vec, side landmark.Side) Euler {
	s := side.Sign()
	along := s * d.X
	elevation := math.Atan2(d.Y, math.Hypot(along, d.Z))
	swing := math.Atan2(d.Z, along)
	return Euler{Y: -s * swing, Z: s * elevation}
}

// wrap folds an angle into [-pi, pi].
func wrap(a float64) float64 {
	return math.Remainder(a, 2*math.Pi)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// remap linearly maps v from [lo,hi] onto [0,1], clamped.
func remap(v, lo, hi float64) float64 {
	return clamp((v-lo)/(hi-lo), 0, 1)
}

type limits struct{ X, Y, Z float64 }

func (e Euler) clamp(l limits) Euler {
	return Euler{
		X: clamp(e.X, -l.X, l.X),
		Y: clamp(e.Y, -l.Y, l.Y),
		Z: clamp(e.Z, -l.Z, l.Z),
	}
}

func (e Euler) sub(o Euler) Euler {
	return Euler{X: wrap(e.X - o.X), Y: wrap(e.Y - o.Y), Z: wrap(e.Z - o.Z)}
}
