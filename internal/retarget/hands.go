package retarget

import (
	"github.com/ayusman/vrmtrack/internal/landmark"
	"github.com/ayusman/vrmtrack/internal/rig"
	"github.com/ayusman/vrmtrack/internal/solver"
)

type handBones struct {
	wrist   rig.BoneName
	fingers [solver.NumDigits][solver.NumSegments]rig.BoneName
}

var sideBones = map[landmark.Side]handBones{
	landmark.Left: {
		wrist: rig.LeftHand,
		fingers: [solver.NumDigits][solver.NumSegments]rig.BoneName{
			solver.Thumb:  {rig.LeftThumbMetacarpal, rig.LeftThumbProximal, rig.LeftThumbDistal},
			solver.Index:  {rig.LeftIndexProximal, rig.LeftIndexIntermediate, rig.LeftIndexDistal},
			solver.Middle: {rig.LeftMiddleProximal, rig.LeftMiddleIntermediate, rig.LeftMiddleDistal},
			solver.Ring:   {rig.LeftRingProximal, rig.LeftRingIntermediate, rig.LeftRingDistal},
			solver.Little: {rig.LeftLittleProximal, rig.LeftLittleIntermediate, rig.LeftLittleDistal},
		},
	},
	landmark.Right: {
		wrist: rig.RightHand,
		fingers: [solver.NumDigits][solver.NumSegments]rig.BoneName{
			solver.Thumb:  {rig.RightThumbMetacarpal, rig.RightThumbProximal, rig.RightThumbDistal},
			solver.Index:  {rig.RightIndexProximal, rig.RightIndexIntermediate, rig.RightIndexDistal},
			solver.Middle: {rig.RightMiddleProximal, rig.RightMiddleIntermediate, rig.RightMiddleDistal},
			solver.Ring:   {rig.RightRingProximal, rig.RightRingIntermediate, rig.RightRingDistal},
			solver.Little: {rig.RightLittleProximal, rig.RightLittleIntermediate, rig.RightLittleDistal},
		},
	},
}

// rigHand writes the wrist and every finger joint of one hand. The wrist
// takes its Z from the pose solve and its X and Y from the hand solve.
func (e *Engine) rigHand(hand *solver.Hand, poseWrist solver.Euler, h rig.Handle) {
	bones := sideBones[hand.Side]

	e.rotate(h, bones.wrist, solver.Euler{
		X: hand.Wrist.X,
		Y: hand.Wrist.Y,
		Z: poseWrist.Z,
	})

	for d := solver.Thumb; d < solver.NumDigits; d++ {
		for s := solver.Proximal; s < solver.NumSegments; s++ {
			e.rotate(h, bones.fingers[d][s], hand.Joint(d, s))
		}
	}
}
