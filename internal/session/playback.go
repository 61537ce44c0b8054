package session

import (
	"context"
	"errors"
	"time"

	"github.com/ayusman/vrmtrack/internal/clip"
)

// PlayClip plays a named clip from the library onto the attached rig and
// blocks until it ends, is stopped or ctx is cancelled. Clips cannot play
// while tracking is running.
func (s *Session) PlayClip(ctx context.Context, name string, loop bool) error {
	c, err := s.prepareClip(name)
	if err != nil {
		return err
	}
	return s.playClip(ctx, c, loop)
}

// StartClip checks that name can be played, then plays it in the
// background. Playback errors after the start are logged.
func (s *Session) StartClip(ctx context.Context, name string, loop bool) error {
	c, err := s.prepareClip(name)
	if err != nil {
		return err
	}
	go func() {
		if err := s.playClip(ctx, c, loop); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("clip playback failed", "clip", c.Name, "error", err)
		}
	}()
	return nil
}

func (s *Session) prepareClip(name string) (*clip.Clip, error) {
	if s.cfg.Clips == nil {
		return nil, ErrNoClips
	}
	c, err := s.cfg.Clips.Get(name)
	if err != nil {
		return nil, err
	}
	if s.IsRunning() {
		return nil, ErrTrackingActive
	}
	if _, ok := s.Rig(); !ok {
		return nil, ErrNoRig
	}
	return c, nil
}

func (s *Session) playClip(ctx context.Context, c *clip.Clip, loop bool) error {
	opts := clip.DefaultPlayerOptions()
	opts.Loop = loop

	s.logger.Info("playing clip", "clip", c.Name, "loop", loop)
	return s.player.PlayWithOptions(ctx, c, s.applyPose, opts)
}

// applyPose writes one sampled clip pose. Playback ends as soon as
// tracking starts or the rig goes away.
func (s *Session) applyPose(p clip.Pose, _ time.Duration) bool {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	if s.accepting {
		return false
	}

	s.mu.Lock()
	h := s.rig
	s.mu.Unlock()
	if h == nil {
		return false
	}

	p.ApplyTo(h)
	return true
}

// StopClip halts clip playback.
func (s *Session) StopClip() {
	s.player.Stop()
}

// PauseClip holds the playing clip on its current pose. It reports false
// when no clip is playing.
func (s *Session) PauseClip() bool {
	if s.player.State() != clip.StatePlaying {
		return false
	}
	s.player.Pause()
	return true
}

// ResumeClip continues a paused clip. It reports false when no clip is
// paused.
func (s *Session) ResumeClip() bool {
	if s.player.State() != clip.StatePaused {
		return false
	}
	s.player.Resume()
	return true
}

// ClipPaused reports whether the current clip is paused.
func (s *Session) ClipPaused() bool {
	return s.player.State() == clip.StatePaused
}

// PlayingClip returns the name of the clip being played, or "".
func (s *Session) PlayingClip() string {
	if c := s.player.Current(); c != nil {
		return c.Name
	}
	return ""
}

// Clips returns the clip library, or nil.
func (s *Session) Clips() *clip.Library {
	return s.cfg.Clips
}
