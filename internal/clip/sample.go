package clip

import (
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ayusman/vrmtrack/internal/rig"
)

// Sample returns the interpolated pose at elapsed. Times before the first
// keyframe or after the last clamp to the ends.
func (c *Clip) Sample(elapsed time.Duration) Pose {
	if len(c.Keyframes) == 0 {
		return Pose{}
	}
	if len(c.Keyframes) == 1 {
		return keyframePose(c.Keyframes[0])
	}

	t := c.Timestamps[0] + elapsed.Seconds()

	idx := sort.Search(len(c.Timestamps), func(i int) bool {
		return c.Timestamps[i] > t
	})

	if idx == 0 {
		return keyframePose(c.Keyframes[0])
	}
	if idx >= len(c.Timestamps) {
		return keyframePose(c.Keyframes[len(c.Keyframes)-1])
	}

	tPrev, tNext := c.Timestamps[idx-1], c.Timestamps[idx]
	var alpha float64
	if tNext > tPrev {
		alpha = (t - tPrev) / (tNext - tPrev)
	}

	return interpolate(c.Keyframes[idx-1], c.Keyframes[idx], alpha)
}

func keyframePose(k Keyframe) Pose {
	p := Pose{
		Bones:       make(map[rig.BoneName]mgl64.Quat, len(k.Bones)),
		Expressions: make(map[rig.Expression]float64, len(k.Expressions)),
	}
	for name, q := range k.Bones {
		p.Bones[name] = q.Mgl()
	}
	for e, w := range k.Expressions {
		p.Expressions[e] = w
	}
	return p
}

// interpolate blends two keyframes at alpha in [0,1]. A channel present in
// only one keyframe holds that keyframe's value.
func interpolate(a, b Keyframe, alpha float64) Pose {
	p := keyframePose(a)

	for name, qb := range b.Bones {
		qa, ok := p.Bones[name]
		if !ok {
			p.Bones[name] = qb.Mgl()
			continue
		}
		p.Bones[name] = slerp(qa, qb.Mgl(), alpha)
	}
	for e, wb := range b.Expressions {
		wa, ok := p.Expressions[e]
		if !ok {
			p.Expressions[e] = wb
			continue
		}
		p.Expressions[e] = wa + alpha*(wb-wa)
	}
	return p
}

func slerp(a, b mgl64.Quat, alpha float64) mgl64.Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl64.QuatSlerp(a, b, alpha)
}
