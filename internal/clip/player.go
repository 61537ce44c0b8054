package clip

import (
	"context"
	"sync"
	"time"
)

// Player handles clip playback with keyframe interpolation.
type Player struct {
	mu       sync.RWMutex
	state    PlaybackState
	clip     *Clip
	startAt  time.Time
	pausedAt time.Duration
	stopCh   chan struct{}
}

// NewPlayer creates a new clip player.
func NewPlayer() *Player {
	return &Player{
		state:  StateStopped,
		stopCh: make(chan struct{}),
	}
}

// Play starts playback of a clip with default options. It blocks until
// playback completes or is stopped.
func (p *Player) Play(ctx context.Context, c *Clip, callback PlayerCallback) error {
	return p.PlayWithOptions(ctx, c, callback, DefaultPlayerOptions())
}

// PlayWithOptions starts playback with custom options.
func (p *Player) PlayWithOptions(ctx context.Context, c *Clip, callback PlayerCallback, opts PlayerOptions) error {
	if opts.FrameRate <= 0 {
		opts.FrameRate = DefaultPlayerOptions().FrameRate
	}
	if opts.Speed <= 0 {
		opts.Speed = 1
	}

	p.mu.Lock()
	if p.state != StateStopped {
		p.mu.Unlock()
		return ErrAlreadyPlaying
	}

	p.clip = c
	p.state = StatePlaying
	p.startAt = time.Now()
	p.pausedAt = 0
	p.stopCh = make(chan struct{})
	stopCh := p.stopCh
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		// A Stop followed by a new Play hands the player to that playback.
		if p.stopCh == stopCh {
			p.state = StateStopped
			p.clip = nil
		}
		p.mu.Unlock()
	}()

	ticker := time.NewTicker(time.Duration(float64(time.Second) / opts.FrameRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-stopCh:
			return nil

		case <-ticker.C:
			p.mu.Lock()
			if p.stopCh != stopCh || p.state == StateStopped {
				p.mu.Unlock()
				return nil
			}
			if p.state == StatePaused {
				p.mu.Unlock()
				continue
			}
			elapsed := time.Duration(float64(p.pausedAt+time.Since(p.startAt)) * opts.Speed)
			if elapsed >= c.Duration && opts.Loop {
				p.startAt = time.Now()
				p.pausedAt = 0
				elapsed = 0
			}
			p.mu.Unlock()

			if elapsed >= c.Duration {
				callback(c.Sample(c.Duration), c.Duration)
				return nil
			}
			if !callback(c.Sample(elapsed), elapsed) {
				return nil
			}
		}
	}
}

// Stop halts playback immediately.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StatePlaying || p.state == StatePaused {
		close(p.stopCh)
		p.state = StateStopped
	}
}

// Pause temporarily stops playback.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StatePlaying {
		p.pausedAt += time.Since(p.startAt)
		p.state = StatePaused
	}
}

// Resume continues paused playback.
func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StatePaused {
		p.startAt = time.Now()
		p.state = StatePlaying
	}
}

// State returns the current playback state.
func (p *Player) State() PlaybackState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Current returns the clip being played, if any.
func (p *Player) Current() *Clip {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.clip
}

// Elapsed returns how much unpaused time has passed in the current playback.
func (p *Player) Elapsed() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()

	switch p.state {
	case StateStopped:
		return 0
	case StatePaused:
		return p.pausedAt
	}
	return p.pausedAt + time.Since(p.startAt)
}
