// Package detector turns camera frames into landmark frames.
package detector

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/vrmtrack/internal/landmark"
)

// Detector defines the interface for landmark detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns every landmark set found.
	// Categories the model did not see are left nil in the returned frame.
	Detect(frame *gocv.Mat) (*landmark.Frame, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for holistic detection.
type Config struct {
	// ModelComplexity selects the pose model (0, 1 or 2).
	ModelComplexity int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// RefineFace enables the ten iris landmarks needed for pupil tracking.
	RefineFace bool

	// SelfieMode flips the input horizontally before detection.
	SelfieMode bool

	// Smooth enables the model's own landmark smoothing.
	Smooth bool

	// Script overrides the service script location.
	Script string

	// Python overrides the interpreter. Empty means a venv python if one
	// is found, otherwise python3.
	Python string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		ModelComplexity: 1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		RefineFace:      true,
		SelfieMode:      true,
		Smooth:          true,
	}
}
