// Package retarget drives a humanoid rig from tracked landmarks. Each frame
// is solved into joint rotations and facial signals, corrected for the rig's
// bone-space convention, attenuated and eased onto the rig's current pose.
package retarget

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ayusman/vrmtrack/internal/landmark"
	"github.com/ayusman/vrmtrack/internal/log"
	"github.com/ayusman/vrmtrack/internal/rig"
	"github.com/ayusman/vrmtrack/internal/solver"
)

var errNonFinite = errors.New("solver produced non-finite values")

// Part is a bit set of landmark categories.
type Part uint8

const (
	PartFace Part = 1 << iota
	PartPose
	PartLeftHand
	PartRightHand
)

func (p Part) String() string {
	switch p {
	case PartFace:
		return "face"
	case PartPose:
		return "pose"
	case PartLeftHand:
		return "left hand"
	case PartRightHand:
		return "right hand"
	}
	return fmt.Sprintf("parts(%#x)", uint8(p))
}

// Has reports whether every bit of q is set in p.
func (p Part) Has(q Part) bool { return p&q == q }

// Result reports what one Apply call did.
type Result struct {
	// Gaze is the smoothed (pupil Y, pupil X) offset for a look-at
	// controller to consume.
	Gaze [2]float64 `json:"gaze"`
	// Applied is true when a frame was retargeted onto a rig.
	Applied bool `json:"applied"`
	// Parts lists the categories written this frame.
	Parts Part `json:"parts"`
}

// Engine retargets landmark frames onto a rig. It is not safe for
// concurrent use; callers serialize Apply.
type Engine struct {
	solver        solver.Solver
	tuning        map[rig.BoneName]Tuning
	gazeSmoothing float64
	logger        *slog.Logger

	state  SmoothingState
	warned Part
}

// New creates an engine with the built-in tuning table.
func New(opts ...Option) *Engine {
	e := &Engine{
		solver:        solver.NewKinematic(),
		tuning:        DefaultTuning(),
		gazeSmoothing: DefaultGaze,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.L()
	}
	return e
}

// Tuning returns the effective tuning for a bone.
func (e *Engine) Tuning(name rig.BoneName) Tuning {
	if t, ok := e.tuning[name]; ok {
		return t
	}
	return DefaultTuningValue
}

// GazeSmoothing returns the per-frame gaze easing factor.
func (e *Engine) GazeSmoothing() float64 {
	return e.gazeSmoothing
}

// Gaze returns the smoothed gaze offset.
func (e *Engine) Gaze() [2]float64 {
	return e.state.Gaze
}

// Apply retargets one frame onto h. A nil frame or rig, or a rig of an
// unsupported version, is a no-op. Missing categories are skipped. Solver
// errors, non-finite estimates and panics skip only the affected category
// and are logged once per category.
func (e *Engine) Apply(frame *landmark.Frame, h rig.Handle) Result {
	if frame == nil || h == nil || !h.Version().Supported() {
		return Result{Gaze: e.state.Gaze}
	}

	res := Result{Applied: true}

	if frame.HasFace() {
		e.run(&res, PartFace, func() error {
			face, err := e.solver.SolveFace(frame.Face)
			if err != nil {
				return err
			}
			if !face.Finite() {
				return errNonFinite
			}
			e.rigFace(face, h)
			return nil
		})
	}

	var pose *solver.Pose
	if frame.HasPose() {
		e.run(&res, PartPose, func() error {
			p, err := e.solver.SolvePose(frame.Pose3D, frame.Pose2D)
			if err != nil {
				return err
			}
			if !p.Finite() {
				return errNonFinite
			}
			e.rigPose(p, h)
			pose = p
			return nil
		})
	}

	// The view is mirrored: the tracker's right hand is the subject's left.
	// Hands borrow the wrist roll from the pose, so they need one.
	if pose != nil {
		hands := []struct {
			part   Part
			points []landmark.Point3D
			side   landmark.Side
			wrist  solver.Euler
		}{
			{PartLeftHand, frame.RightHand, landmark.Left, pose.LeftHand},
			{PartRightHand, frame.LeftHand, landmark.Right, pose.RightHand},
		}
		for _, hand := range hands {
			if len(hand.points) == 0 {
				continue
			}
			e.run(&res, hand.part, func() error {
				solved, err := e.solver.SolveHand(hand.points, hand.side)
				if err != nil {
					return err
				}
				if !solved.Finite() {
					return errNonFinite
				}
				solved.Side = hand.side
				e.rigHand(solved, hand.wrist, h)
				return nil
			})
		}
	}

	res.Gaze = e.state.Gaze
	return res
}

// rigPose writes the torso and arms in order: hips, chest, spine, arms.
func (e *Engine) rigPose(pose *solver.Pose, h rig.Handle) {
	e.rotate(h, rig.Hips, pose.Hips.Rotation)
	e.rotate(h, rig.Chest, pose.Spine)
	e.rotate(h, rig.Spine, pose.Spine)

	e.rotate(h, rig.RightUpperArm, pose.RightUpperArm)
	e.rotate(h, rig.RightLowerArm, pose.RightLowerArm)
	e.rotate(h, rig.LeftUpperArm, pose.LeftUpperArm)
	e.rotate(h, rig.LeftLowerArm, pose.LeftLowerArm)
}

func (e *Engine) rotate(h rig.Handle, name rig.BoneName, rot solver.Euler) {
	RotateBone(h, name, rot, e.Tuning(name))
}

// run executes one category, converting errors and panics into a skipped
// category.
func (e *Engine) run(res *Result, part Part, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			e.warnOnce(part, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := fn(); err != nil {
		e.warnOnce(part, err)
		return
	}
	res.Parts |= part
}

func (e *Engine) warnOnce(part Part, err error) {
	if e.warned.Has(part) {
		return
	}
	e.warned |= part
	e.logger.Warn("skipping landmark category", "part", part.String(), "error", err)
}
