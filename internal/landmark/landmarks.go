// Package landmark defines the per-frame landmark sets produced by the
// holistic tracker: face mesh, 3D and 2D body pose, and both hands.
package landmark

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist     = 0
	ThumbCMC  = 1
	ThumbMCP  = 2
	ThumbIP   = 3
	ThumbTip  = 4
	IndexMCP  = 5
	IndexPIP  = 6
	IndexDIP  = 7
	IndexTip  = 8
	MiddleMCP = 9
	MiddlePIP = 10
	MiddleDIP = 11
	MiddleTip = 12
	RingMCP   = 13
	RingPIP   = 14
	RingDIP   = 15
	RingTip   = 16
	PinkyMCP  = 17
	PinkyPIP  = 18
	PinkyDIP  = 19
	PinkyTip  = 20
	NumHand   = 21
)

// Pose landmark indices following MediaPipe BlazePose convention.
const (
	Nose          = 0
	LeftEye       = 2
	RightEye      = 5
	LeftEar       = 7
	RightEar      = 8
	LeftShoulder  = 11
	RightShoulder = 12
	LeftElbow     = 13
	RightElbow    = 14
	LeftWrist     = 15
	RightWrist    = 16
	LeftPinky     = 17
	RightPinky    = 18
	LeftIndex     = 19
	RightIndex    = 20
	LeftThumb     = 21
	RightThumb    = 22
	LeftHip       = 23
	RightHip      = 24
	LeftKnee      = 25
	RightKnee     = 26
	LeftAnkle     = 27
	RightAnkle    = 28
	NumPose       = 33
)

// Face mesh indices used by the face solver.
const (
	FaceTopLeft      = 21
	FaceTopRight     = 251
	FaceBottomRight  = 397
	FaceBottomLeft   = 172
	UpperInnerLip    = 13
	LowerInnerLip    = 14
	MouthCornerLeft  = 61
	MouthCornerRight = 291

	LeftEyeOuter  = 130
	LeftEyeInner  = 133
	LeftEyeUpper  = 159
	LeftEyeLower  = 145
	RightEyeOuter = 263
	RightEyeInner = 362
	RightEyeUpper = 386
	RightEyeLower = 374

	// Iris centres only exist when the face mesh is refined.
	LeftIris  = 468
	RightIris = 473

	NumFace        = 468
	NumFaceRefined = 478
)

// Point3D represents a 3D point in space with x, y, z coordinates.
// Visibility is the tracker's confidence that the point is in frame; 2D
// landmarks leave Z at zero.
type Point3D struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility,omitempty"`
}

// Frame is an immutable snapshot of every landmark set captured for one
// video frame. A nil field means the tracker produced nothing for that
// category this frame.
//
// LeftHand and RightHand carry the labels the tracker assigned. The camera
// view is mirrored, so consumers swap them before solving.
type Frame struct {
	Face      []Point3D `json:"face,omitempty"`
	Pose3D    []Point3D `json:"pose_world,omitempty"`
	Pose2D    []Point3D `json:"pose,omitempty"`
	LeftHand  []Point3D `json:"left_hand,omitempty"`
	RightHand []Point3D `json:"right_hand,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// HasFace reports whether the frame carries a face mesh.
func (f *Frame) HasFace() bool { return f != nil && len(f.Face) > 0 }

// HasPose reports whether the frame carries 3D pose landmarks.
func (f *Frame) HasPose() bool { return f != nil && len(f.Pose3D) > 0 }

// HasLeftHand reports whether the tracker labelled a left hand.
func (f *Frame) HasLeftHand() bool { return f != nil && len(f.LeftHand) > 0 }

// HasRightHand reports whether the tracker labelled a right hand.
func (f *Frame) HasRightHand() bool { return f != nil && len(f.RightHand) > 0 }

// Empty reports whether no category is present.
func (f *Frame) Empty() bool {
	return !f.HasFace() && !f.HasPose() && !f.HasLeftHand() && !f.HasRightHand()
}

// Distance calculates the Euclidean distance between two 3D points.
func Distance(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Finite reports whether every coordinate of every point is a real number.
func Finite(points []Point3D) bool {
	for _, p := range points {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z) ||
			math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) || math.IsInf(p.Z, 0) {
			return false
		}
	}
	return true
}

// NormalizeHand maps a hand into a wrist-centred frame where the wrist to
// middle knuckle distance is 1. A hand with no extent is only translated.
// It returns nil when points do not hold a full hand.
func NormalizeHand(points []Point3D) []Point3D {
	if len(points) < NumHand {
		return nil
	}

	origin := points[Wrist]
	scale := Distance(origin, points[MiddleMCP])
	if scale < 1e-10 {
		scale = 1
	}

	out := make([]Point3D, NumHand)
	for i, p := range points[:NumHand] {
		out[i] = Point3D{
			X:          (p.X - origin.X) / scale,
			Y:          (p.Y - origin.Y) / scale,
			Z:          (p.Z - origin.Z) / scale,
			Visibility: p.Visibility,
		}
	}
	return out
}
