package session

import (
	"context"
	"fmt"
	"time"

	"github.com/ayusman/vrmtrack/internal/capture"
)

// Start begins accepting frames. With a camera configured it also opens
// the device and starts the capture loop. Any clip playback is stopped;
// tracking owns the rig until Stop. Cancelling ctx stops the session.
func (s *Session) Start(ctx context.Context) error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if s.IsRunning() {
		return ErrAlreadyRunning
	}

	s.player.Stop()

	if cam := s.cfg.Camera; cam != nil {
		if err := cam.Open(); err != nil {
			return fmt.Errorf("failed to open camera: %w", err)
		}
		cam.SetFPS(s.cfg.IdleFPS)
	}

	stopCh := make(chan struct{})
	var done chan struct{}
	if s.cfg.Camera != nil {
		done = make(chan struct{})
	}

	s.applyMu.Lock()
	s.accepting = true
	s.applyMu.Unlock()

	s.mu.Lock()
	s.running = true
	s.stopCh = stopCh
	s.done = done
	s.mu.Unlock()

	if done != nil {
		go s.runLoop(stopCh, done)
	}

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-stopCh:
		}
	}()

	s.logger.Info("session started", "camera", s.cfg.Camera != nil, "detector", s.cfg.Detector != nil)
	return nil
}

// Stop ends the session. Once Stop returns no further frame is applied to
// the rig. Stopping a stopped session is a no-op.
func (s *Session) Stop() error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	stopCh, done := s.stopCh, s.done
	s.stopCh, s.done = nil, nil
	s.mu.Unlock()

	// Waits for an in-flight apply.
	s.applyMu.Lock()
	s.accepting = false
	s.applyMu.Unlock()

	close(stopCh)
	if done != nil {
		<-done
	}

	var firstErr error
	if s.cfg.Camera != nil {
		if err := s.cfg.Camera.Close(); err != nil {
			firstErr = fmt.Errorf("failed to close camera: %w", err)
		}
	}
	if s.cfg.Detector != nil {
		if err := s.cfg.Detector.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close detector: %w", err)
		}
	}

	st := s.Stats()
	s.logger.Info("session stopped",
		"processed", st.Processed,
		"dropped", st.Dropped,
		"skipped", st.Skipped,
	)
	return firstErr
}

// runLoop reads camera frames, gates detection on motion and hands the
// detected landmarks to HandleFrame. It starts at the idle frame rate,
// switches to the active rate on motion and falls back after IdleTimeout
// without motion.
func (s *Session) runLoop(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	cam := s.cfg.Camera
	gated := s.cfg.MotionThreshold > 0

	var motion *capture.MotionDetector
	if gated {
		motion = capture.NewMotionDetector(s.cfg.MotionThreshold)
		defer motion.Close()
	}

	activeMode := !gated
	lastMotionTime := time.Now()

	frameInterval := time.Second / time.Duration(s.cfg.IdleFPS)
	if activeMode {
		cam.SetFPS(s.cfg.ActiveFPS)
		frameInterval = time.Second / time.Duration(s.cfg.ActiveFPS)
	}

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}

		if !s.IsEnabled() {
			continue
		}

		frame, err := cam.ReadFrame()
		if err != nil {
			s.logger.Debug("failed to read frame", "error", err)
			continue
		}

		if s.cfg.Preview != nil {
			if err := s.cfg.Preview.Store(frame); err != nil {
				s.logger.Debug("failed to update preview", "error", err)
			}
		}

		if gated {
			moved, changePercent := motion.Detect(frame)
			if moved {
				lastMotionTime = time.Now()
				if !activeMode {
					activeMode = true
					cam.SetFPS(s.cfg.ActiveFPS)
					ticker.Reset(time.Second / time.Duration(s.cfg.ActiveFPS))
					s.logger.Debug("switched to active mode", "change_percent", changePercent)
				}
			} else if activeMode && time.Since(lastMotionTime) > s.cfg.IdleTimeout {
				activeMode = false
				cam.SetFPS(s.cfg.IdleFPS)
				ticker.Reset(time.Second / time.Duration(s.cfg.IdleFPS))
				s.logger.Debug("switched to idle mode")
			}
		}

		if !activeMode || s.cfg.Detector == nil {
			frame.Close()
			continue
		}

		lm, err := s.cfg.Detector.Detect(frame)
		frame.Close()
		if err != nil {
			if s.detectErrors.Add(1) == 1 {
				s.logger.Warn("landmark detection failed", "error", err)
			} else {
				s.logger.Debug("landmark detection failed", "error", err)
			}
			continue
		}

		s.HandleFrame(lm)
	}
}
