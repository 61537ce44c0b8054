package landmark

import "math"

// Synthetic landmark sets for tests and the mock detector.
//
// Fixtures are authored in the subject's body frame (+X toward the subject's
// left, +Y up, +Z toward the camera) and converted to the tracker's mirrored
// camera space, where every axis is flipped. Because the view is mirrored the
// tracker labels the subject's left side as "right".

// Side is the subject's anatomical side.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Right {
		return "right"
	}
	return "left"
}

// Sign is +1 for the left side and -1 for the right.
func (s Side) Sign() float64 {
	if s == Right {
		return -1
	}
	return 1
}

func fromBody(x, y, z, vis float64) Point3D {
	return Point3D{X: -x, Y: -y, Z: -z, Visibility: vis}
}

type joint struct {
	idx     int
	x, y, z float64
}

// left-side joints of a T-pose in metres, hip-centred; the right side mirrors X.
var tPoseJoints = []joint{
	{RightHip, 0.1, 0, 0},
	{RightShoulder, 0.18, 0.5, 0},
	{RightElbow, 0.45, 0.5, 0},
	{RightWrist, 0.7, 0.5, 0},
	{RightIndex, 0.8, 0.5, 0.01},
	{RightPinky, 0.78, 0.5, -0.03},
	{RightThumb, 0.75, 0.5, 0.04},
	{RightKnee, 0.1, -0.45, 0},
	{RightAnkle, 0.1, -0.9, 0},
	{RightEar, 0.07, 0.66, 0},
	{RightEye, 0.035, 0.68, 0.07},
}

var armsDownJoints = []joint{
	{RightElbow, 0.2, 0.22, 0},
	{RightWrist, 0.21, -0.05, 0},
	{RightIndex, 0.21, -0.15, 0.01},
	{RightPinky, 0.23, -0.13, -0.03},
	{RightThumb, 0.2, -0.12, 0.04},
}

// mirrored maps a tracker "right" pose index to its "left" counterpart.
var mirrored = map[int]int{
	RightHip:      LeftHip,
	RightShoulder: LeftShoulder,
	RightElbow:    LeftElbow,
	RightWrist:    LeftWrist,
	RightIndex:    LeftIndex,
	RightPinky:    LeftPinky,
	RightThumb:    LeftThumb,
	RightKnee:     LeftKnee,
	RightAnkle:    LeftAnkle,
	RightEar:      LeftEar,
	RightEye:      LeftEye,
}

func buildPose(overrides ...[]joint) []Point3D {
	body := make([][3]float64, NumPose)
	for i := range body {
		body[i] = [3]float64{0, 0.6, 0}
	}
	body[Nose] = [3]float64{0, 0.65, 0.09}

	for _, set := range append([][]joint{tPoseJoints}, overrides...) {
		for _, j := range set {
			body[j.idx] = [3]float64{j.x, j.y, j.z}
			body[mirrored[j.idx]] = [3]float64{-j.x, j.y, j.z}
		}
	}

	points := make([]Point3D, NumPose)
	for i, p := range body {
		points[i] = fromBody(p[0], p[1], p[2], 0.99)
	}
	return points
}

// to2D projects world pose landmarks into normalized image coordinates.
func to2D(world []Point3D) []Point3D {
	out := make([]Point3D, len(world))
	for i, p := range world {
		out[i] = Point3D{X: 0.5 + p.X*0.4, Y: 0.55 + p.Y*0.4, Visibility: p.Visibility}
	}
	return out
}

// TPose returns a frame with a full-body T-pose and no face or hands.
func TPose() *Frame {
	world := buildPose()
	return &Frame{Pose3D: world, Pose2D: to2D(world)}
}

// ArmsDown returns a frame with both arms hanging at the sides.
func ArmsDown() *Frame {
	world := buildPose(armsDownJoints)
	return &Frame{Pose3D: world, Pose2D: to2D(world)}
}

// left hand, palm down, fingers along +X, thumb toward the camera
var openHand = [NumHand][3]float64{
	Wrist:     {0, 0, 0},
	ThumbCMC:  {0.02, 0, 0.03},
	ThumbMCP:  {0.045, 0, 0.055},
	ThumbIP:   {0.07, 0, 0.07},
	ThumbTip:  {0.09, 0, 0.08},
	IndexMCP:  {0.09, 0, 0.025},
	IndexPIP:  {0.13, 0, 0.025},
	IndexDIP:  {0.155, 0, 0.025},
	IndexTip:  {0.175, 0, 0.025},
	MiddleMCP: {0.09, 0, 0},
	MiddlePIP: {0.135, 0, 0},
	MiddleDIP: {0.165, 0, 0},
	MiddleTip: {0.19, 0, 0},
	RingMCP:   {0.085, 0, -0.02},
	RingPIP:   {0.125, 0, -0.02},
	RingDIP:   {0.15, 0, -0.02},
	RingTip:   {0.17, 0, -0.02},
	PinkyMCP:  {0.075, 0, -0.04},
	PinkyPIP:  {0.105, 0, -0.04},
	PinkyDIP:  {0.125, 0, -0.04},
	PinkyTip:  {0.14, 0, -0.04},
}

func buildHand(side Side, pts [NumHand][3]float64) []Point3D {
	out := make([]Point3D, NumHand)
	for i, p := range pts {
		q := fromBody(p[0]*side.Sign(), p[1], p[2], 0)
		q.X += 0.5
		q.Y += 0.5
		out[i] = q
	}
	return out
}

// OpenHand returns a flat, palm-down hand for the subject's given side.
func OpenHand(side Side) []Point3D {
	return buildHand(side, openHand)
}

// Fist returns a hand with the four fingers curled under the palm.
func Fist(side Side) []Point3D {
	pts := openHand
	for _, chain := range [][4]int{
		{IndexMCP, IndexPIP, IndexDIP, IndexTip},
		{MiddleMCP, MiddlePIP, MiddleDIP, MiddleTip},
		{RingMCP, RingPIP, RingDIP, RingTip},
		{PinkyMCP, PinkyPIP, PinkyDIP, PinkyTip},
	} {
		mcp := pts[chain[0]]
		pts[chain[1]] = [3]float64{mcp[0], mcp[1] - 0.035, mcp[2]}
		pts[chain[2]] = [3]float64{mcp[0] - 0.025, mcp[1] - 0.035, mcp[2]}
		pts[chain[3]] = [3]float64{mcp[0] - 0.025, mcp[1] - 0.015, mcp[2]}
	}
	return buildHand(side, pts)
}

// FaceParams shapes a synthetic face mesh.
type FaceParams struct {
	Yaw       float64 // radians, positive turns toward the subject's left
	EyeOpen   float64 // 0 closed, 1 wide open
	MouthOpen float64 // 0 closed, 1 fully open
	// MouthWidth scales the mouth corners; 1 is a relaxed mouth.
	MouthWidth float64
	Pupil      [2]float64 // iris offset in eye half-widths
	Refined    bool       // include the ten iris landmarks
}

// NeutralFace returns a refined, front-facing mesh with open eyes and a
// closed mouth.
func NeutralFace() []Point3D {
	return SyntheticFace(FaceParams{EyeOpen: 1, MouthWidth: 1, Refined: true})
}

// ClosedEyesFace returns a refined front-facing mesh with both eyes shut.
func ClosedEyesFace() []Point3D {
	return SyntheticFace(FaceParams{EyeOpen: 0, MouthWidth: 1, Refined: true})
}

// SyntheticFace builds a face mesh in which only the indices the face solver
// reads are placed; every other vertex sits at the face centre.
func SyntheticFace(p FaceParams) []Point3D {
	n := NumFace
	if p.Refined {
		n = NumFaceRefined
	}
	body := make([][3]float64, n)

	lid := p.EyeOpen * 0.009 / 2
	gap := p.MouthOpen * 0.024 / 2
	mouth := 0.025 * p.MouthWidth

	set := func(i int, x, y, z float64) { body[i] = [3]float64{x, y, z} }
	set(FaceTopLeft, 0.07, 0.06, 0)
	set(FaceTopRight, -0.07, 0.06, 0)
	set(FaceBottomRight, -0.06, -0.08, 0)
	set(FaceBottomLeft, 0.06, -0.08, 0)

	for _, eye := range []struct {
		sign                       float64
		outer, inner, upper, lower int
		iris                       int
	}{
		{1, LeftEyeOuter, LeftEyeInner, LeftEyeUpper, LeftEyeLower, LeftIris},
		{-1, RightEyeOuter, RightEyeInner, RightEyeUpper, RightEyeLower, RightIris},
	} {
		set(eye.outer, eye.sign*0.05, 0.03, 0)
		set(eye.inner, eye.sign*0.02, 0.03, 0)
		set(eye.upper, eye.sign*0.035, 0.03+lid, 0.005)
		set(eye.lower, eye.sign*0.035, 0.03-lid, 0.005)
		if p.Refined {
			set(eye.iris, eye.sign*0.035+p.Pupil[0]*0.015, 0.03+p.Pupil[1]*0.015, 0.005)
		}
	}

	set(MouthCornerLeft, mouth, -0.05, 0)
	set(MouthCornerRight, -mouth, -0.05, 0)
	set(UpperInnerLip, 0, -0.05+gap, 0.01)
	set(LowerInnerLip, 0, -0.05-gap, 0.01)

	sin, cos := math.Sincos(p.Yaw)
	points := make([]Point3D, n)
	for i, b := range body {
		x := b[0]*cos + b[2]*sin
		z := -b[0]*sin + b[2]*cos
		q := fromBody(x, b[1], z, 0)
		q.X += 0.5
		q.Y += 0.4
		points[i] = q
	}
	return points
}
