package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTracking()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Store.Path) == "" {
		c.Store.Path = defaultStorePath
	}
	if c.Store.Path, err = expandPath(strings.TrimSpace(c.Store.Path)); err != nil {
		return fmt.Errorf("store.path: %w", err)
	}
	if c.Tracking.ClipsDir, err = expandPath(strings.TrimSpace(c.Tracking.ClipsDir)); err != nil {
		return fmt.Errorf("tracking.clips_dir: %w", err)
	}
	if c.Server.StaticDir, err = expandPath(strings.TrimSpace(c.Server.StaticDir)); err != nil {
		return fmt.Errorf("server.static_dir: %w", err)
	}
	if c.Avatar.Path, err = expandPath(strings.TrimSpace(c.Avatar.Path)); err != nil {
		return fmt.Errorf("avatar.path: %w", err)
	}
	if c.Detector.Script, err = expandPath(strings.TrimSpace(c.Detector.Script)); err != nil {
		return fmt.Errorf("detector.script: %w", err)
	}
	c.Detector.Python = strings.TrimSpace(c.Detector.Python)
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	return nil
}

func (c *Config) normalizeTracking() {
	c.Tracking.Profile = strings.TrimSpace(c.Tracking.Profile)
	c.Avatar.Version = strings.ToLower(strings.TrimSpace(c.Avatar.Version))

	if len(c.Tracking.Bones) > 0 {
		bones := make(map[string]BoneTuning, len(c.Tracking.Bones))
		for name, t := range c.Tracking.Bones {
			bones[strings.TrimSpace(name)] = t
		}
		c.Tracking.Bones = bones
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "json", "text":
	default:
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
