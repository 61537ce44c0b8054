package solver

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/vrmtrack/internal/landmark"
)

// Joint limits, in radians.
var (
	hipLimits      = limits{X: 0, Y: math.Pi, Z: math.Pi / 4}
	spineLimits    = limits{X: math.Pi / 3, Y: math.Pi / 2, Z: math.Pi / 4}
	upperArmLimits = limits{X: 0, Y: 0.75 * math.Pi, Z: math.Pi / 2}
	lowerArmLimits = limits{X: 0, Y: 0.8 * math.Pi, Z: math.Pi / 2}
	handZLimits    = limits{X: 0, Y: 0, Z: math.Pi / 2}
	wristLimits    = limits{X: math.Pi / 2, Y: math.Pi / 2, Z: math.Pi / 2}
	headLimits     = limits{X: math.Pi / 3, Y: math.Pi / 2, Z: math.Pi / 3}
)

const maxCurl = math.Pi / 2

// Kinematic is a geometric Solver. It derives rotations directly from
// landmark directions with no learned model and no cross-frame state.
type Kinematic struct {
	// EyeClosed and EyeOpen bound the lid-gap to eye-width ratio mapped
	// onto openness 0 and 1.
	EyeClosed float64
	EyeOpen   float64
}

// NewKinematic returns a Kinematic solver with default thresholds.
func NewKinematic() *Kinematic {
	return &Kinematic{EyeClosed: 0.08, EyeOpen: 0.28}
}

var _ Solver = (*Kinematic)(nil)

func check(points []landmark.Point3D, n int) error {
	if len(points) < n {
		return ErrInsufficientLandmarks
	}
	if !landmark.Finite(points[:n]) {
		return ErrNonFinite
	}
	return nil
}

// SolvePose implements Solver.
//
// The view is mirrored, so the tracker's "left" body landmarks belong to the
// subject's right side.
func (k *Kinematic) SolvePose(world, image []landmark.Point3D) (*Pose, error) {
	if err := check(world, landmark.NumPose); err != nil {
		return nil, err
	}

	p := func(i int) r3.Vec { return body(world[i]) }

	hipL, hipR := p(landmark.RightHip), p(landmark.LeftHip)
	shL, shR := p(landmark.RightShoulder), p(landmark.LeftShoulder)

	hipLine := r3.Sub(hipL, hipR)
	shoulderLine := r3.Sub(shL, shR)
	if r3.Norm(hipLine) < eps || r3.Norm(shoulderLine) < eps {
		return nil, ErrDegenerate
	}
	torso := r3.Sub(mid(shL, shR), mid(hipL, hipR))

	pose := &Pose{}
	pose.Hips.Rotation = Euler{
		Y: yaw(hipLine),
		Z: roll(hipLine),
	}.clamp(hipLimits)
	pose.Hips.Position = hipPosition(image)

	pose.Spine = Euler{
		X: math.Atan2(torso.Z, torso.Y),
		Y: wrap(yaw(shoulderLine) - yaw(hipLine)),
		Z: wrap(roll(shoulderLine) - roll(hipLine)),
	}.clamp(spineLimits)

	pose.LeftUpperArm, pose.LeftLowerArm, pose.LeftHand = arm(
		shL, p(landmark.RightElbow), p(landmark.RightWrist), p(landmark.RightIndex), landmark.Left)
	pose.RightUpperArm, pose.RightLowerArm, pose.RightHand = arm(
		shR, p(landmark.LeftElbow), p(landmark.LeftWrist), p(landmark.LeftIndex), landmark.Right)

	return pose, nil
}

func arm(shoulder, elbow, wrist, index r3.Vec, side landmark.Side) (upper, lower, hand Euler) {
	u := limbRotation(r3.Sub(elbow, shoulder), side)
	l := limbRotation(r3.Sub(wrist, elbow), side)
	h := limbRotation(r3.Sub(index, wrist), side)

	upper = u.clamp(upperArmLimits)
	lower = l.sub(u).clamp(lowerArmLimits)
	hand = Euler{Z: wrap(h.Z - l.Z)}.clamp(handZLimits)
	return upper, lower, hand
}

// hipPosition estimates the root offset from the 2D hip midpoint relative to
// the image centre. It is zero when no image landmarks are available.
func hipPosition(image []landmark.Point3D) r3.Vec {
	if check(image, landmark.NumPose) != nil {
		return r3.Vec{}
	}
	l, r := image[landmark.LeftHip], image[landmark.RightHip]
	width := math.Abs(l.X - r.X)
	c := landmark.Point3D{X: (l.X + r.X) / 2, Y: (l.Y + r.Y) / 2}

	pos := r3.Vec{X: -(c.X - 0.5), Y: -(c.Y - 0.5)}
	// Apparent hip width shrinks as the subject steps back.
	if width > eps {
		pos.Z = clamp(0.2/width-1, -2, 2)
	}
	return pos
}

var digitChains = [NumDigits][5]int{
	Thumb:  {landmark.Wrist, landmark.ThumbCMC, landmark.ThumbMCP, landmark.ThumbIP, landmark.ThumbTip},
	Index:  {landmark.Wrist, landmark.IndexMCP, landmark.IndexPIP, landmark.IndexDIP, landmark.IndexTip},
	Middle: {landmark.Wrist, landmark.MiddleMCP, landmark.MiddlePIP, landmark.MiddleDIP, landmark.MiddleTip},
	Ring:   {landmark.Wrist, landmark.RingMCP, landmark.RingPIP, landmark.RingDIP, landmark.RingTip},
	Little: {landmark.Wrist, landmark.PinkyMCP, landmark.PinkyPIP, landmark.PinkyDIP, landmark.PinkyTip},
}

// SolveHand implements Solver.
func (k *Kinematic) SolveHand(points []landmark.Point3D, side landmark.Side) (*Hand, error) {
	if err := check(points, landmark.NumHand); err != nil {
		return nil, err
	}
	// Thresholds below assume a unit-sized hand.
	points = landmark.NormalizeHand(points)

	p := func(i int) r3.Vec { return body(points[i]) }
	s := side.Sign()

	forward := r3.Sub(p(landmark.MiddleMCP), p(landmark.Wrist))
	across := r3.Sub(p(landmark.IndexMCP), p(landmark.PinkyMCP))
	if r3.Norm(forward) < eps || r3.Norm(across) < eps {
		return nil, ErrDegenerate
	}
	// Palm normal, pointing out of the palm for either side.
	normal := unit(r3.Scale(s, r3.Cross(forward, across)))
	fwd := unit(forward)

	wrist := limbRotation(forward, side)
	wrist.X = math.Atan2(-normal.Z, -normal.Y)

	h := &Hand{Side: side, Wrist: wrist.clamp(wristLimits)}

	for d, chain := range digitChains {
		for seg := Proximal; seg < NumSegments; seg++ {
			a := r3.Sub(p(chain[seg+1]), p(chain[seg]))
			b := r3.Sub(p(chain[seg+2]), p(chain[seg+1]))

			var curl float64
			if seg == Proximal && Digit(d) != Thumb {
				// Knuckles fan out from the wrist, so measure the first
				// joint against the palm plane rather than the
				// wrist-to-knuckle line; sideways spread is ignored.
				curl = math.Atan2(r3.Dot(b, normal), r3.Dot(b, fwd))
			} else {
				curl = angleBetween(a, b)
			}
			curl = clamp(curl, 0, maxCurl)

			// Fingers fold about Z toward the palm; the thumb folds about Y
			// across it.
			if Digit(d) == Thumb {
				h.Fingers[d][seg] = Euler{Y: s * curl}
			} else {
				h.Fingers[d][seg] = Euler{Z: -s * curl}
			}
		}
	}
	return h, nil
}

// SolveFace implements Solver. Pupil offsets are only produced for refined
// meshes that carry iris landmarks.
func (k *Kinematic) SolveFace(points []landmark.Point3D) (*Face, error) {
	if err := check(points, landmark.NumFace); err != nil {
		return nil, err
	}

	p := func(i int) r3.Vec { return body(points[i]) }

	across := r3.Sub(p(landmark.FaceTopLeft), p(landmark.FaceTopRight))
	up := r3.Sub(
		mid(p(landmark.FaceTopLeft), p(landmark.FaceTopRight)),
		mid(p(landmark.FaceBottomLeft), p(landmark.FaceBottomRight)),
	)
	if r3.Norm(across) < eps || r3.Norm(up) < eps {
		return nil, ErrDegenerate
	}

	x := unit(across)
	n := unit(r3.Cross(across, up))

	f := &Face{}
	f.Head = Euler{
		X: math.Atan2(-n.Y, math.Hypot(n.X, n.Z)),
		Y: math.Atan2(n.X, n.Z),
		Z: math.Atan2(x.Y, math.Hypot(x.X, x.Z)),
	}.clamp(headLimits)

	f.Eye.L = k.eyeOpenness(points, landmark.LeftEyeOuter, landmark.LeftEyeInner, landmark.LeftEyeUpper, landmark.LeftEyeLower)
	f.Eye.R = k.eyeOpenness(points, landmark.RightEyeOuter, landmark.RightEyeInner, landmark.RightEyeUpper, landmark.RightEyeLower)

	f.Mouth = mouthShape(points)

	if len(points) >= landmark.NumFaceRefined && landmark.Finite(points[landmark.NumFace:landmark.NumFaceRefined]) {
		f.Pupil = pupil(points)
	}
	return f, nil
}

func (k *Kinematic) eyeOpenness(points []landmark.Point3D, outer, inner, upper, lower int) float64 {
	width := landmark.Distance(points[outer], points[inner])
	if width < eps {
		return 0
	}
	ratio := landmark.Distance(points[upper], points[lower]) / width
	return remap(ratio, k.EyeClosed, k.EyeOpen)
}

func mouthShape(points []landmark.Point3D) Mouth {
	innerEyes := landmark.Distance(points[landmark.LeftEyeInner], points[landmark.RightEyeInner])
	outerEyes := landmark.Distance(points[landmark.LeftEyeOuter], points[landmark.RightEyeOuter])
	if innerEyes < eps || outerEyes < eps {
		return Mouth{}
	}

	gap := landmark.Distance(points[landmark.UpperInnerLip], points[landmark.LowerInnerLip])
	width := landmark.Distance(points[landmark.MouthCornerLeft], points[landmark.MouthCornerRight])

	open := remap(gap/innerEyes, 0.05, 0.6)
	wide := remap(width/outerEyes, 0.55, 0.8)

	return Mouth{
		A: clamp(open*(1-0.5*wide), 0, 1),
		E: clamp(open*wide, 0, 1),
		I: clamp(wide*(1-open), 0, 1),
		O: clamp(open*(1-wide)*0.8, 0, 1),
		U: clamp((1-wide)*math.Min(open*4, 1)*(1-open)*0.6, 0, 1),
	}
}

func pupil(points []landmark.Point3D) Pupil {
	var sum r3.Vec
	for _, eye := range [][3]int{
		{landmark.LeftEyeOuter, landmark.LeftEyeInner, landmark.LeftIris},
		{landmark.RightEyeOuter, landmark.RightEyeInner, landmark.RightIris},
	} {
		outer, inner := body(points[eye[0]]), body(points[eye[1]])
		half := r3.Norm(r3.Sub(outer, inner)) / 2
		if half < eps {
			return Pupil{}
		}
		off := r3.Sub(body(points[eye[2]]), mid(outer, inner))
		sum = r3.Add(sum, r3.Scale(1/half, off))
	}
	return Pupil{
		X: clamp(sum.X/2, -1, 1),
		Y: clamp(sum.Y/2, -1, 1),
	}
}
