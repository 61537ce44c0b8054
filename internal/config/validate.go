package config

import (
	"errors"
	"fmt"
	"net"

	"github.com/ayusman/vrmtrack/internal/rig"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCamera(); err != nil {
		return err
	}
	if err := c.validateDetector(); err != nil {
		return err
	}
	if err := c.validateTracking(); err != nil {
		return err
	}
	if err := c.validateAvatar(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCamera() error {
	if c.Camera.DeviceID < 0 {
		return errors.New("camera.device_id must be non-negative")
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return errors.New("camera.width and camera.height must be positive")
	}
	if c.Camera.FPS <= 0 {
		return errors.New("camera.fps must be positive")
	}
	return nil
}

func (c *Config) validateDetector() error {
	if c.Detector.ModelComplexity < 0 || c.Detector.ModelComplexity > 2 {
		return errors.New("detector.model_complexity must be 0, 1 or 2")
	}
	if !unit(c.Detector.MinDetectionConfidence) {
		return errors.New("detector.min_detection_confidence must be between 0 and 1")
	}
	if !unit(c.Detector.MinTrackingConfidence) {
		return errors.New("detector.min_tracking_confidence must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateTracking() error {
	t := c.Tracking
	// The engine reads zero as unset.
	if t.GazeSmoothing <= 0 || t.GazeSmoothing > 1 {
		return errors.New("tracking.gaze_smoothing must be greater than 0 and at most 1")
	}
	if t.IdleFPS <= 0 || t.ActiveFPS <= 0 {
		return errors.New("tracking.idle_fps and tracking.active_fps must be positive")
	}
	if t.IdleTimeoutMs <= 0 {
		return errors.New("tracking.idle_timeout_ms must be positive")
	}
	if t.MotionThreshold < 0 || t.MotionThreshold > 100 {
		return errors.New("tracking.motion_threshold must be between 0 and 100")
	}
	for name, bt := range t.Bones {
		if _, err := rig.ParseBoneName(name); err != nil {
			return fmt.Errorf("tracking.bones: %w", err)
		}
		if bt.Dampener != nil && *bt.Dampener < 0 {
			return fmt.Errorf("tracking.bones.%s.dampener must be non-negative", name)
		}
		if bt.Lerp != nil && !unit(*bt.Lerp) {
			return fmt.Errorf("tracking.bones.%s.lerp must be between 0 and 1", name)
		}
	}
	return nil
}

func (c *Config) validateAvatar() error {
	if c.Avatar.Version == "" {
		return nil
	}
	v, err := rig.ParseVersion(c.Avatar.Version)
	if err != nil || !v.Supported() {
		return fmt.Errorf("avatar.version %q must be legacy or current", c.Avatar.Version)
	}
	return nil
}

func (c *Config) validateServer() error {
	if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
		return fmt.Errorf("server.bind: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("logging.level %q must be debug, info, warn or error", c.Logging.Level)
}

func unit(v float64) bool {
	return v >= 0 && v <= 1
}
