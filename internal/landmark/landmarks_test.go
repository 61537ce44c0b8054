package landmark

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func TestNormalizeHand(t *testing.T) {
	t.Run("wrist at origin after normalization", func(t *testing.T) {
		points := make([]Point3D, NumHand)
		points[Wrist] = Point3D{X: 100.0, Y: 200.0, Z: 50.0}
		points[MiddleMCP] = Point3D{X: 130.0, Y: 240.0, Z: 50.0}
		for i := 1; i < NumHand; i++ {
			if i != MiddleMCP {
				points[i] = Point3D{
					X: 100.0 + float64(i)*10.0,
					Y: 200.0 + float64(i)*5.0,
					Z: 50.0 + float64(i)*2.0,
				}
			}
		}

		normalized := NormalizeHand(points)

		w := normalized[Wrist]
		if math.Abs(w.X) > epsilon || math.Abs(w.Y) > epsilon || math.Abs(w.Z) > epsilon {
			t.Errorf("expected wrist at origin, got %+v", w)
		}
	})

	t.Run("distance from wrist to middle MCP is 1.0", func(t *testing.T) {
		points := make([]Point3D, NumHand)
		points[Wrist] = Point3D{X: 0, Y: 0, Z: 0}
		// 3-4-5 triangle
		points[MiddleMCP] = Point3D{X: 3.0, Y: 4.0, Z: 0}

		normalized := NormalizeHand(points)

		d := Distance(normalized[Wrist], normalized[MiddleMCP])
		if math.Abs(d-1.0) > epsilon {
			t.Errorf("expected distance 1.0, got %f", d)
		}
	})

	t.Run("degenerate hand is not scaled", func(t *testing.T) {
		points := make([]Point3D, NumHand)
		for i := range points {
			points[i] = Point3D{X: 5, Y: 5, Z: 5}
		}

		normalized := NormalizeHand(points)

		for i, p := range normalized {
			if math.IsNaN(p.X) || p.X != 0 {
				t.Errorf("point %d: expected 0, got %f", i, p.X)
			}
		}
	})

	t.Run("short input", func(t *testing.T) {
		if got := NormalizeHand(make([]Point3D, 5)); got != nil {
			t.Errorf("expected nil, got %d points", len(got))
		}
	})
}

func TestFrame(t *testing.T) {
	t.Run("nil frame is empty", func(t *testing.T) {
		var f *Frame
		if !f.Empty() || f.HasFace() {
			t.Error("nil frame should be empty")
		}
	})

	t.Run("partial frame", func(t *testing.T) {
		f := &Frame{Face: NeutralFace()}
		if !f.HasFace() || f.HasPose() || f.HasLeftHand() || f.HasRightHand() {
			t.Errorf("unexpected categories: %+v", f)
		}
		if f.Empty() {
			t.Error("frame with face should not be empty")
		}
	})
}

func TestFinite(t *testing.T) {
	if !Finite(OpenHand(Left)) {
		t.Error("fixture hand should be finite")
	}
	if Finite([]Point3D{{X: math.NaN()}}) {
		t.Error("NaN should not be finite")
	}
	if Finite([]Point3D{{Z: math.Inf(-1)}}) {
		t.Error("Inf should not be finite")
	}
}

func TestFixtures(t *testing.T) {
	t.Run("pose sizes", func(t *testing.T) {
		f := TPose()
		if len(f.Pose3D) != NumPose || len(f.Pose2D) != NumPose {
			t.Errorf("expected %d points, got %d/%d", NumPose, len(f.Pose3D), len(f.Pose2D))
		}
	})

	t.Run("mirrored labels", func(t *testing.T) {
		// The subject's left shoulder is labelled right and sits at negative
		// tracker X after the mirror flip.
		f := TPose()
		if f.Pose3D[RightShoulder].X >= 0 || f.Pose3D[LeftShoulder].X <= 0 {
			t.Errorf("unexpected shoulder placement: %+v / %+v",
				f.Pose3D[RightShoulder], f.Pose3D[LeftShoulder])
		}
	})

	t.Run("face sizes", func(t *testing.T) {
		if n := len(NeutralFace()); n != NumFaceRefined {
			t.Errorf("expected %d points, got %d", NumFaceRefined, n)
		}
		if n := len(SyntheticFace(FaceParams{EyeOpen: 1})); n != NumFace {
			t.Errorf("expected %d points, got %d", NumFace, n)
		}
	})

	t.Run("closed eyes collapse the lids", func(t *testing.T) {
		face := ClosedEyesFace()
		if d := Distance(face[LeftEyeUpper], face[LeftEyeLower]); d > epsilon {
			t.Errorf("expected closed lid, got gap %f", d)
		}
	})

	t.Run("hands mirror", func(t *testing.T) {
		l, r := OpenHand(Left), OpenHand(Right)
		dl := l[MiddleTip].X - l[Wrist].X
		dr := r[MiddleTip].X - r[Wrist].X
		if math.Abs(dl+dr) > epsilon {
			t.Errorf("expected mirrored X extents, got %f and %f", dl, dr)
		}
	})
}
