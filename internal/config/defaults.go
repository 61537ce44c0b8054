package config

const (
	defaultCameraDevice     = 0
	defaultCameraWidth      = 640
	defaultCameraHeight     = 480
	defaultCameraFPS        = 5
	defaultModelComplexity  = 1
	defaultMinConfidence    = 0.5
	defaultGazeSmoothing    = 0.4
	defaultIdleFPS          = 5
	defaultActiveFPS        = 15
	defaultIdleTimeoutMs    = 2000
	defaultMotionThreshold  = 1.0
	defaultServerBind       = "127.0.0.1:7830"
	defaultStorePath        = "~/.local/share/vrmtrack/vrmtrack.db"
	defaultLogFormat        = "text"
	defaultLogLevel         = "info"
	defaultConfigPathString = "~/.config/vrmtrack/config.toml"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Camera: Camera{
			DeviceID: defaultCameraDevice,
			Width:    defaultCameraWidth,
			Height:   defaultCameraHeight,
			FPS:      defaultCameraFPS,
		},
		Detector: Detector{
			ModelComplexity:        defaultModelComplexity,
			MinDetectionConfidence: defaultMinConfidence,
			MinTrackingConfidence:  defaultMinConfidence,
			RefineFace:             true,
			SelfieMode:             true,
			Smooth:                 true,
		},
		Tracking: Tracking{
			GazeSmoothing:   defaultGazeSmoothing,
			IdleFPS:         defaultIdleFPS,
			ActiveFPS:       defaultActiveFPS,
			IdleTimeoutMs:   defaultIdleTimeoutMs,
			MotionThreshold: defaultMotionThreshold,
		},
		Server: Server{
			Bind: defaultServerBind,
		},
		Store: Store{
			Path: defaultStorePath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
