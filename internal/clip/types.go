// Package clip provides pre-authored keyframe animations for a humanoid rig.
//
// Clips are loaded from JSON files and played back with spherical
// interpolation between keyframes.
package clip

import (
	"errors"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ayusman/vrmtrack/internal/rig"
)

var (
	// ErrNotFound is returned when a clip is not found.
	ErrNotFound = errors.New("clip not found")

	// ErrAlreadyPlaying is returned when trying to play while already playing.
	ErrAlreadyPlaying = errors.New("clip already playing")

	// ErrInvalidClip is returned when a clip file is malformed.
	ErrInvalidClip = errors.New("invalid clip data")
)

// Quat is a rotation in glTF component order: x, y, z, w.
type Quat [4]float64

// Mgl converts q to a normalized mathgl quaternion.
func (q Quat) Mgl() mgl64.Quat {
	return mgl64.Quat{W: q[3], V: mgl64.Vec3{q[0], q[1], q[2]}}.Normalize()
}

// FromMgl converts a mathgl quaternion to glTF order.
func FromMgl(q mgl64.Quat) Quat {
	return Quat{q.V[0], q.V[1], q.V[2], q.W}
}

// Keyframe is one sample of bone rotations and expression weights. Bones
// and expressions absent from a keyframe are left alone.
type Keyframe struct {
	Bones       map[rig.BoneName]Quat      `json:"bones"`
	Expressions map[rig.Expression]float64 `json:"expressions,omitempty"`
}

// ClipData is the raw JSON structure of a clip file.
type ClipData struct {
	// Description is a human-readable description of the clip.
	Description string `json:"description"`

	// Time contains timestamps for each keyframe in seconds.
	Time []float64 `json:"time"`

	// Frames contains the keyframe for each timestamp.
	Frames []Keyframe `json:"frames"`
}

// Clip is a loaded, playable animation.
type Clip struct {
	Name        string
	Description string
	Duration    time.Duration
	Keyframes   []Keyframe
	Timestamps  []float64
}

// Pose is a clip sampled at one instant.
type Pose struct {
	Bones       map[rig.BoneName]mgl64.Quat
	Expressions map[rig.Expression]float64
}

// ApplyTo writes the pose onto h. Rotations are authored for current rigs
// and mirrored for legacy ones. Missing bones and expressions are skipped.
func (p Pose) ApplyTo(h rig.Handle) {
	legacy := h.Version() == rig.Legacy
	for name, q := range p.Bones {
		b, ok := h.Bone(name)
		if !ok {
			continue
		}
		if legacy {
			q = mgl64.Quat{W: q.W, V: mgl64.Vec3{-q.V[0], q.V[1], -q.V[2]}}
		}
		b.SetOrientation(q)
	}
	for e, w := range p.Expressions {
		if _, ok := h.Expression(e); ok {
			h.SetExpression(e, w)
		}
	}
}

// PlaybackState represents the current state of clip playback.
type PlaybackState int

const (
	// StateStopped means no clip is playing.
	StateStopped PlaybackState = iota

	// StatePlaying means a clip is actively playing.
	StatePlaying

	// StatePaused means playback is temporarily paused.
	StatePaused
)

// String returns a human-readable state name.
func (s PlaybackState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// PlayerCallback is called for each interpolated pose during playback.
// Return false to stop playback early.
type PlayerCallback func(pose Pose, elapsed time.Duration) bool

// PlayerOptions configures clip playback.
type PlayerOptions struct {
	// FrameRate is the playback interpolation rate (default: 30 Hz).
	FrameRate float64

	// Loop causes the clip to repeat when finished.
	Loop bool

	// Speed multiplier (1.0 = normal, 2.0 = 2x speed).
	Speed float64
}

// DefaultPlayerOptions returns the default playback settings.
func DefaultPlayerOptions() PlayerOptions {
	return PlayerOptions{
		FrameRate: 30.0,
		Speed:     1.0,
	}
}
