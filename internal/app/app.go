// Package app assembles a tracking session from configuration: camera,
// landmark detector, clip library, retargeting engine and avatar rig.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ayusman/vrmtrack/internal/capture"
	"github.com/ayusman/vrmtrack/internal/clip"
	"github.com/ayusman/vrmtrack/internal/config"
	"github.com/ayusman/vrmtrack/internal/detector"
	"github.com/ayusman/vrmtrack/internal/log"
	"github.com/ayusman/vrmtrack/internal/retarget"
	"github.com/ayusman/vrmtrack/internal/rig"
	"github.com/ayusman/vrmtrack/internal/session"
	"github.com/ayusman/vrmtrack/internal/store"
)

// Config holds the inputs for New. Camera, Detector and Rig override the
// ones built from Settings.
type Config struct {
	Settings *config.Config
	Store    *store.Store

	Camera   capture.Camera
	Detector detector.Detector
	Rig      rig.Handle

	Logger *slog.Logger
}

// App owns one tracking session and the collaborators built for it.
type App struct {
	settings *config.Config
	session  *session.Session
	clips    *clip.Library
	rig      rig.Handle
	profile  string
	logger   *slog.Logger
}

// New builds the session described by cfg. It does not open the camera;
// call Start for that.
func New(cfg Config) (*App, error) {
	if cfg.Settings == nil {
		d := config.Default()
		cfg.Settings = &d
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.L()
	}
	settings := cfg.Settings

	a := &App{settings: settings, logger: logger}

	opts, profile, err := EngineOptions(settings, cfg.Store)
	if err != nil {
		return nil, err
	}
	a.profile = profile
	engine := a.newEngine(opts)

	a.clips = clip.NewLibrary()
	if err := a.clips.LoadBuiltIn(); err != nil {
		return nil, fmt.Errorf("load built-in clips: %w", err)
	}
	if dir := settings.Tracking.ClipsDir; dir != "" {
		if err := a.clips.LoadDir(dir); err != nil {
			return nil, fmt.Errorf("load clips from %s: %w", dir, err)
		}
	}

	cam := cfg.Camera
	if cam == nil {
		cam = capture.NewCameraWithOptions(settings.CameraOptions())
	}

	det := cfg.Detector
	if det == nil {
		if hd, err := detector.NewHolisticDetector(settings.DetectorConfig()); err == nil {
			det = hd
			logger.Info("using holistic landmark detector")
		} else {
			logger.Warn("holistic detector not available, using mock detector", "error", err)
			det = detector.NewMockDetector()
		}
	}

	a.rig = cfg.Rig
	if a.rig == nil {
		h, err := LoadRig(settings.Avatar)
		if err != nil {
			return nil, err
		}
		a.rig = h
	}

	a.session = session.New(session.Config{
		Camera:          cam,
		Detector:        det,
		Engine:          engine,
		Clips:           a.clips,
		Preview:         capture.NewPreview(),
		IdleFPS:         settings.Tracking.IdleFPS,
		ActiveFPS:       settings.Tracking.ActiveFPS,
		IdleTimeout:     settings.IdleTimeout(),
		MotionThreshold: settings.Tracking.MotionThreshold,
		Logger:          logger,
	})

	// An unsupported rig is logged by the session and its frames ignored.
	if err := a.session.AttachRig(a.rig); err != nil && !errors.Is(err, rig.ErrUnsupportedVersion) {
		return nil, err
	}

	return a, nil
}

// EngineOptions merges the configured bone overrides with a stored
// profile. The profile named in the config wins over the active profile
// setting. It returns the name of the profile applied, or "".
func EngineOptions(settings *config.Config, st *store.Store) (retarget.Options, string, error) {
	opts := settings.EngineOptions()
	if st == nil {
		return opts, "", nil
	}

	name := settings.Tracking.Profile
	if name == "" {
		active, err := st.Settings().Get(store.KeyActiveProfile)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return opts, "", fmt.Errorf("read active profile: %w", err)
		}
		name = active
	}
	if name == "" {
		return opts, "", nil
	}

	p, err := st.Profiles().GetByName(name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return opts, "", fmt.Errorf("profile %q: %w", name, err)
		}
		return opts, "", err
	}
	return ProfileOptions(settings, p), p.Name, nil
}

// ProfileOptions layers p over the configured tuning.
func ProfileOptions(settings *config.Config, p *store.Profile) retarget.Options {
	return p.Apply(settings.EngineOptions())
}

// ProfileEngine builds the engine for p exactly as startup would, so a
// profile activated while running tunes the same as after a restart.
func (a *App) ProfileEngine(p *store.Profile) *retarget.Engine {
	return a.newEngine(ProfileOptions(a.settings, p))
}

func (a *App) newEngine(opts retarget.Options) *retarget.Engine {
	return retarget.New(retarget.WithOptions(opts), retarget.WithLogger(a.logger))
}

// LoadRig builds an in-memory humanoid for the configured avatar. A forced
// version wins over the avatar file. With neither, the rig follows the
// current standard.
func LoadRig(avatar config.Avatar) (*rig.Humanoid, error) {
	if avatar.Version != "" {
		v, err := rig.ParseVersion(avatar.Version)
		if err != nil {
			return nil, err
		}
		return rig.NewHumanoid(v), nil
	}
	if avatar.Path == "" {
		return rig.NewHumanoid(rig.Current), nil
	}

	meta, err := rig.ReadMetaFile(avatar.Path)
	if err != nil {
		return nil, fmt.Errorf("read avatar %s: %w", avatar.Path, err)
	}
	// Unknown versions still load; the session ignores their frames.
	v, _ := rig.DetectVersion(meta)
	return rig.NewHumanoid(v), nil
}

// Start opens the camera and starts tracking.
func (a *App) Start(ctx context.Context) error {
	return a.session.Start(ctx)
}

// Stop halts tracking and releases the camera and detector.
func (a *App) Stop() error {
	return a.session.Stop()
}

// Session returns the tracking session.
func (a *App) Session() *session.Session {
	return a.session
}

// Rig returns the avatar rig.
func (a *App) Rig() rig.Handle {
	return a.rig
}

// Profile returns the name of the stored profile in effect, or "".
func (a *App) Profile() string {
	return a.profile
}

// Clips returns the sorted clip names.
func (a *App) Clips() []string {
	return a.clips.Names()
}
