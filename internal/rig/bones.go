package rig

import "fmt"

// BoneName identifies a normalized humanoid bone. Values follow the VRM 1.0
// humanoid naming; legacy rigs are mapped onto the same names by the loader.
type BoneName string

// Torso and head bones.
const (
	Hips       BoneName = "hips"
	Spine      BoneName = "spine"
	Chest      BoneName = "chest"
	UpperChest BoneName = "upperChest"
	Neck       BoneName = "neck"
	Head       BoneName = "head"
)

// Arm bones.
const (
	LeftShoulder  BoneName = "leftShoulder"
	LeftUpperArm  BoneName = "leftUpperArm"
	LeftLowerArm  BoneName = "leftLowerArm"
	LeftHand      BoneName = "leftHand"
	RightShoulder BoneName = "rightShoulder"
	RightUpperArm BoneName = "rightUpperArm"
	RightLowerArm BoneName = "rightLowerArm"
	RightHand     BoneName = "rightHand"
)

// Left finger bones.
const (
	LeftThumbMetacarpal    BoneName = "leftThumbMetacarpal"
	LeftThumbProximal      BoneName = "leftThumbProximal"
	LeftThumbDistal        BoneName = "leftThumbDistal"
	LeftIndexProximal      BoneName = "leftIndexProximal"
	LeftIndexIntermediate  BoneName = "leftIndexIntermediate"
	LeftIndexDistal        BoneName = "leftIndexDistal"
	LeftMiddleProximal     BoneName = "leftMiddleProximal"
	LeftMiddleIntermediate BoneName = "leftMiddleIntermediate"
	LeftMiddleDistal       BoneName = "leftMiddleDistal"
	LeftRingProximal       BoneName = "leftRingProximal"
	LeftRingIntermediate   BoneName = "leftRingIntermediate"
	LeftRingDistal         BoneName = "leftRingDistal"
	LeftLittleProximal     BoneName = "leftLittleProximal"
	LeftLittleIntermediate BoneName = "leftLittleIntermediate"
	LeftLittleDistal       BoneName = "leftLittleDistal"
)

// Right finger bones.
const (
	RightThumbMetacarpal    BoneName = "rightThumbMetacarpal"
	RightThumbProximal      BoneName = "rightThumbProximal"
	RightThumbDistal        BoneName = "rightThumbDistal"
	RightIndexProximal      BoneName = "rightIndexProximal"
	RightIndexIntermediate  BoneName = "rightIndexIntermediate"
	RightIndexDistal        BoneName = "rightIndexDistal"
	RightMiddleProximal     BoneName = "rightMiddleProximal"
	RightMiddleIntermediate BoneName = "rightMiddleIntermediate"
	RightMiddleDistal       BoneName = "rightMiddleDistal"
	RightRingProximal       BoneName = "rightRingProximal"
	RightRingIntermediate   BoneName = "rightRingIntermediate"
	RightRingDistal         BoneName = "rightRingDistal"
	RightLittleProximal     BoneName = "rightLittleProximal"
	RightLittleIntermediate BoneName = "rightLittleIntermediate"
	RightLittleDistal       BoneName = "rightLittleDistal"
)

var allBones = []BoneName{
	Hips, Spine, Chest, UpperChest, Neck, Head,
	LeftShoulder, LeftUpperArm, LeftLowerArm, LeftHand,
	RightShoulder, RightUpperArm, RightLowerArm, RightHand,
	LeftThumbMetacarpal, LeftThumbProximal, LeftThumbDistal,
	LeftIndexProximal, LeftIndexIntermediate, LeftIndexDistal,
	LeftMiddleProximal, LeftMiddleIntermediate, LeftMiddleDistal,
	LeftRingProximal, LeftRingIntermediate, LeftRingDistal,
	LeftLittleProximal, LeftLittleIntermediate, LeftLittleDistal,
	RightThumbMetacarpal, RightThumbProximal, RightThumbDistal,
	RightIndexProximal, RightIndexIntermediate, RightIndexDistal,
	RightMiddleProximal, RightMiddleIntermediate, RightMiddleDistal,
	RightRingProximal, RightRingIntermediate, RightRingDistal,
	RightLittleProximal, RightLittleIntermediate, RightLittleDistal,
}

var boneIndex = func() map[BoneName]struct{} {
	m := make(map[BoneName]struct{}, len(allBones))
	for _, b := range allBones {
		m[b] = struct{}{}
	}
	return m
}()

// AllBones returns every bone name the retargeter knows, torso first.
func AllBones() []BoneName {
	out := make([]BoneName, len(allBones))
	copy(out, allBones)
	return out
}

// ParseBoneName validates a bone name read from configuration or the API.
func ParseBoneName(s string) (BoneName, error) {
	b := BoneName(s)
	if _, ok := boneIndex[b]; !ok {
		return "", fmt.Errorf("unknown bone %q", s)
	}
	return b, nil
}

// IsFinger reports whether the bone belongs to a finger chain.
func (b BoneName) IsFinger() bool {
	switch b {
	case Hips, Spine, Chest, UpperChest, Neck, Head,
		LeftShoulder, LeftUpperArm, LeftLowerArm, LeftHand,
		RightShoulder, RightUpperArm, RightLowerArm, RightHand:
		return false
	}
	_, ok := boneIndex[b]
	return ok
}

func (b BoneName) String() string { return string(b) }
