// Package rig is the boundary between the retargeter and a loaded humanoid
// avatar: named bone lookup, expression weights and the rig version tag.
package rig

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// Bone is a normalized humanoid bone whose local orientation can be read and
// written.
type Bone interface {
	Orientation() mgl64.Quat
	SetOrientation(q mgl64.Quat)
}

// Handle is the capability a loaded avatar exposes. Lookups return false for
// bones or expressions the avatar does not have; callers treat that as a
// no-op.
type Handle interface {
	Bone(name BoneName) (Bone, bool)
	Expression(e Expression) (float64, bool)
	SetExpression(e Expression, weight float64)
	Version() Version
}

// State is a point-in-time copy of a rig's pose.
type State struct {
	Version     Version                 `json:"version"`
	Bones       map[BoneName]mgl64.Quat `json:"-"`
	Expressions map[Expression]float64  `json:"expressions"`
}

// Humanoid is an in-memory Handle. It is safe for one writer and any number
// of readers taking snapshots between frames.
type Humanoid struct {
	mu          sync.RWMutex
	version     Version
	bones       map[BoneName]*humanoidBone
	expressions map[Expression]float64
}

// HumanoidOption configures a Humanoid.
type HumanoidOption func(*Humanoid)

// WithBones restricts the humanoid to the given bones. Bones not listed are
// reported as absent.
func WithBones(names ...BoneName) HumanoidOption {
	return func(h *Humanoid) {
		h.bones = make(map[BoneName]*humanoidBone, len(names))
		for _, n := range names {
			h.bones[n] = &humanoidBone{h: h, q: mgl64.QuatIdent()}
		}
	}
}

// WithExpressions restricts the humanoid to the given expression presets.
func WithExpressions(exprs ...Expression) HumanoidOption {
	return func(h *Humanoid) {
		h.expressions = make(map[Expression]float64, len(exprs))
		for _, e := range exprs {
			h.expressions[e] = 0
		}
	}
}

// NewHumanoid creates a rig with every known bone at identity and every
// expression at zero, unless narrowed by options.
func NewHumanoid(version Version, opts ...HumanoidOption) *Humanoid {
	h := &Humanoid{version: version}
	WithBones(allBones...)(h)
	WithExpressions(allExpressions...)(h)
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Bone implements Handle.
func (h *Humanoid) Bone(name BoneName) (Bone, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	b, ok := h.bones[name]
	if !ok {
		return nil, false
	}
	return b, true
}

// Expression implements Handle.
func (h *Humanoid) Expression(e Expression) (float64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	w, ok := h.expressions[e]
	return w, ok
}

// SetExpression implements Handle. Unknown presets are ignored.
func (h *Humanoid) SetExpression(e Expression, weight float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.expressions[e]; ok {
		h.expressions[e] = weight
	}
}

// Version implements Handle.
func (h *Humanoid) Version() Version {
	return h.version
}

// Reset returns every bone to identity and every expression to zero.
func (h *Humanoid) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, b := range h.bones {
		b.q = mgl64.QuatIdent()
	}
	for e := range h.expressions {
		h.expressions[e] = 0
	}
}

// Snapshot copies the current pose.
func (h *Humanoid) Snapshot() State {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s := State{
		Version:     h.version,
		Bones:       make(map[BoneName]mgl64.Quat, len(h.bones)),
		Expressions: make(map[Expression]float64, len(h.expressions)),
	}
	for n, b := range h.bones {
		s.Bones[n] = b.q
	}
	for e, w := range h.expressions {
		s.Expressions[e] = w
	}
	return s
}

type humanoidBone struct {
	h *Humanoid
	q mgl64.Quat
}

func (b *humanoidBone) Orientation() mgl64.Quat {
	b.h.mu.RLock()
	defer b.h.mu.RUnlock()
	return b.q
}

func (b *humanoidBone) SetOrientation(q mgl64.Quat) {
	b.h.mu.Lock()
	defer b.h.mu.Unlock()
	b.q = q
}
