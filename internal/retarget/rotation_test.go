package retarget

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ayusman/vrmtrack/internal/rig"
	"github.com/ayusman/vrmtrack/internal/solver"
)

func orientation(t *testing.T, h rig.Handle, name rig.BoneName) mgl64.Quat {
	t.Helper()
	b, ok := h.Bone(name)
	if !ok {
		t.Fatalf("bone %s missing", name)
	}
	return b.Orientation()
}

func setOrientation(t *testing.T, h rig.Handle, name rig.BoneName, q mgl64.Quat) {
	t.Helper()
	b, ok := h.Bone(name)
	if !ok {
		t.Fatalf("bone %s missing", name)
	}
	b.SetOrientation(q)
}

func TestRotateBone_ZeroRotation(t *testing.T) {
	for name, tuning := range DefaultTuning() {
		t.Run(string(name), func(t *testing.T) {
			h := rig.NewHumanoid(rig.Current)
			RotateBone(h, name, solver.Euler{}, tuning)
			if got := orientation(t, h, name); got != mgl64.QuatIdent() {
				t.Errorf("expected identity to stay identity, got %v", got)
			}
		})
	}

	t.Run("full lerp snaps to identity", func(t *testing.T) {
		h := rig.NewHumanoid(rig.Current)
		setOrientation(t, h, rig.Head, mgl64.QuatRotate(1.2, mgl64.Vec3{0, 1, 0}))
		RotateBone(h, rig.Head, solver.Euler{}, Tuning{Dampener: 1, Lerp: 1})
		if got := orientation(t, h, rig.Head); got != mgl64.QuatIdent() {
			t.Errorf("expected exact identity, got %v", got)
		}
	})

	t.Run("partial lerp keeps part of the pose", func(t *testing.T) {
		h := rig.NewHumanoid(rig.Current)
		start := mgl64.QuatRotate(1.2, mgl64.Vec3{0, 1, 0})
		setOrientation(t, h, rig.Head, start)
		RotateBone(h, rig.Head, solver.Euler{}, Tuning{Dampener: 1, Lerp: 0.5})
		got := orientation(t, h, rig.Head)
		if got.ApproxEqualThreshold(mgl64.QuatIdent(), 1e-6) || got.ApproxEqualThreshold(start, 1e-6) {
			t.Errorf("expected a rotation between start and identity, got %v", got)
		}
	})
}

func TestRotateBone_SignCorrection(t *testing.T) {
	rot := solver.Euler{X: 0.3, Y: -0.4, Z: 0.7}

	for _, lerpAmount := range []float64{0.3, 0.5, 1} {
		legacy := rig.NewHumanoid(rig.Legacy)
		current := rig.NewHumanoid(rig.Current)
		tuning := Tuning{Dampener: 1, Lerp: lerpAmount}

		RotateBone(legacy, rig.LeftUpperArm, rot, tuning)
		RotateBone(current, rig.LeftUpperArm, rot, tuning)

		ql := orientation(t, legacy, rig.LeftUpperArm)
		qc := orientation(t, current, rig.LeftUpperArm)

		const within = 1e-12
		if math.Abs(ql.W-qc.W) > within || math.Abs(ql.V[1]-qc.V[1]) > within {
			t.Errorf("lerp %v: w and y should match, got %v vs %v", lerpAmount, ql, qc)
		}
		if math.Abs(ql.V[0]+qc.V[0]) > within || math.Abs(ql.V[2]+qc.V[2]) > within {
			t.Errorf("lerp %v: x and z should be negated, got %v vs %v", lerpAmount, ql, qc)
		}
	}
}

func TestRotateBone_Convergence(t *testing.T) {
	rot := solver.Euler{X: 0.2, Y: 1.1, Z: -0.6}
	target := mgl64.AnglesToQuat(rot.X, rot.Y, rot.Z, mgl64.XYZ)

	for _, lerpAmount := range []float64{0.05, 0.3, 0.5, 0.9, 1} {
		h := rig.NewHumanoid(rig.Current)
		tuning := Tuning{Dampener: 1, Lerp: lerpAmount}
		for i := 0; i < 1000; i++ {
			RotateBone(h, rig.Spine, rot, tuning)
		}
		got := orientation(t, h, rig.Spine)
		if !got.OrientationEqualThreshold(target, 1e-6) {
			t.Errorf("lerp %v: expected convergence to %v, got %v", lerpAmount, target, got)
		}
	}
}

func TestRotateBone_Dampener(t *testing.T) {
	h := rig.NewHumanoid(rig.Current)
	RotateBone(h, rig.Hips, solver.Euler{Y: 1.0}, Tuning{Dampener: 0.7, Lerp: 1})

	want := mgl64.QuatRotate(0.7, mgl64.Vec3{0, 1, 0})
	if got := orientation(t, h, rig.Hips); !got.ApproxEqualThreshold(want, 1e-9) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestRotateBone_Skips(t *testing.T) {
	t.Run("missing bone", func(t *testing.T) {
		h := rig.NewHumanoid(rig.Current, rig.WithBones(rig.Hips))
		if RotateBone(h, rig.Neck, solver.Euler{X: 1}, DefaultTuningValue) {
			t.Error("expected false for missing bone")
		}
	})

	t.Run("non-finite target", func(t *testing.T) {
		h := rig.NewHumanoid(rig.Current)
		if RotateBone(h, rig.Neck, solver.Euler{X: math.NaN()}, DefaultTuningValue) {
			t.Error("expected false for NaN target")
		}
		if got := orientation(t, h, rig.Neck); got != mgl64.QuatIdent() {
			t.Errorf("bone should be untouched, got %v", got)
		}
	})
}

func TestCorrectSign(t *testing.T) {
	in := solver.Euler{X: 1, Y: 2, Z: 3}
	if got := CorrectSign(in, rig.Current); got != in {
		t.Errorf("current: expected %+v, got %+v", in, got)
	}
	if got := CorrectSign(in, rig.Legacy); got != (solver.Euler{X: -1, Y: 2, Z: -3}) {
		t.Errorf("legacy: unexpected %+v", got)
	}
}
