package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ayusman/vrmtrack/internal/capture"
	"github.com/ayusman/vrmtrack/internal/detector"
	"github.com/ayusman/vrmtrack/internal/retarget"
	"github.com/ayusman/vrmtrack/internal/rig"
)

//go:embed sample_config.toml
var sampleConfig string

// Camera contains capture device settings.
type Camera struct {
	DeviceID int `toml:"device_id"`
	Width    int `toml:"width"`
	Height   int `toml:"height"`
	FPS      int `toml:"fps"`
}

// Detector contains landmark service settings.
type Detector struct {
	Script                 string  `toml:"script"`
	Python                 string  `toml:"python"`
	ModelComplexity        int     `toml:"model_complexity"`
	MinDetectionConfidence float64 `toml:"min_detection_confidence"`
	MinTrackingConfidence  float64 `toml:"min_tracking_confidence"`
	RefineFace             bool    `toml:"refine_face"`
	SelfieMode             bool    `toml:"selfie_mode"`
	Smooth                 bool    `toml:"smooth"`
}

// BoneTuning overrides one bone. An omitted field keeps the built-in value.
type BoneTuning struct {
	Dampener *float64 `toml:"dampener"`
	Lerp     *float64 `toml:"lerp"`
}

// Tracking contains retargeting and frame loop settings.
type Tracking struct {
	// Profile names a stored tuning profile applied on top of Bones.
	Profile         string                `toml:"profile"`
	GazeSmoothing   float64               `toml:"gaze_smoothing"`
	IdleFPS         int                   `toml:"idle_fps"`
	ActiveFPS       int                   `toml:"active_fps"`
	IdleTimeoutMs   int                   `toml:"idle_timeout_ms"`
	MotionThreshold float64               `toml:"motion_threshold"`
	ClipsDir        string                `toml:"clips_dir"`
	Bones           map[string]BoneTuning `toml:"bones"`
}

// Avatar points at the model whose metadata decides the rig version.
type Avatar struct {
	Path string `toml:"path"`
	// Version forces "legacy" or "current" instead of reading the model.
	Version string `toml:"version"`
}

// Server contains HTTP API settings.
type Server struct {
	Bind      string `toml:"bind"`
	StaticDir string `toml:"static_dir"`
}

// Store contains database settings.
type Store struct {
	Path string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for vrmtrack.
type Config struct {
	Camera   Camera   `toml:"camera"`
	Detector Detector `toml:"detector"`
	Tracking Tracking `toml:"tracking"`
	Avatar   Avatar   `toml:"avatar"`
	Server   Server   `toml:"server"`
	Store    Store    `toml:"store"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPathString)
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded. A missing file yields the defaults.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vrmtrack.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the store needs.
func (c *Config) EnsureDirectories() error {
	if dir := filepath.Dir(c.Store.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// EngineOptions converts the tracking section into engine overrides.
func (c *Config) EngineOptions() retarget.Options {
	bones := make(map[rig.BoneName]retarget.Tuning, len(c.Tracking.Bones))
	defaults := retarget.DefaultTuning()
	for name, bt := range c.Tracking.Bones {
		bone := rig.BoneName(name)
		t, ok := defaults[bone]
		if !ok {
			t = retarget.DefaultTuningValue
		}
		if bt.Dampener != nil {
			t.Dampener = *bt.Dampener
		}
		if bt.Lerp != nil {
			t.Lerp = *bt.Lerp
		}
		bones[bone] = t
	}
	return retarget.Options{
		Bones:         bones,
		GazeSmoothing: c.Tracking.GazeSmoothing,
	}
}

// CameraOptions returns the capture settings.
func (c *Config) CameraOptions() capture.Options {
	return capture.Options{
		DeviceID: c.Camera.DeviceID,
		Width:    c.Camera.Width,
		Height:   c.Camera.Height,
		FPS:      c.Camera.FPS,
	}
}

// DetectorConfig returns the landmark service settings.
func (c *Config) DetectorConfig() detector.Config {
	return detector.Config{
		ModelComplexity: c.Detector.ModelComplexity,
		MinConfidence:   c.Detector.MinDetectionConfidence,
		MinTrackingConf: c.Detector.MinTrackingConfidence,
		RefineFace:      c.Detector.RefineFace,
		SelfieMode:      c.Detector.SelfieMode,
		Smooth:          c.Detector.Smooth,
		Script:          c.Detector.Script,
		Python:          c.Detector.Python,
	}
}

// IdleTimeout returns the motion idle timeout as a duration.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Tracking.IdleTimeoutMs) * time.Millisecond
}

// AvatarVersion returns the forced rig version, or rig.Unknown when the
// version should be read from the avatar file.
func (c *Config) AvatarVersion() rig.Version {
	if c.Avatar.Version == "" {
		return rig.Unknown
	}
	v, err := rig.ParseVersion(c.Avatar.Version)
	if err != nil {
		return rig.Unknown
	}
	return v
}

// Marshal renders the configuration as TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
