package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Motion gating defaults.
const (
	// DefaultBlurSize is the Gaussian kernel applied before differencing.
	DefaultBlurSize = 21
	// DefaultPixelDelta is the per-pixel intensity change counted as motion.
	DefaultPixelDelta = 25
	// DefaultWorkWidth is the width frames are shrunk to before comparison.
	DefaultWorkWidth = 160
)

// MotionDetector reports whether consecutive frames differ enough to be
// worth tracking. The session uses it to switch between idle and active
// frame rates, so it works on a small grayscale copy of each frame.
type MotionDetector struct {
	mu sync.Mutex

	threshold  float64
	blurSize   int
	pixelDelta float64
	workWidth  int

	baseline gocv.Mat
	hasBase  bool
	last     float64
}

// MotionOption configures a MotionDetector.
type MotionOption func(*MotionDetector)

// WithBlurSize sets the blur kernel. Even sizes are rounded up.
func WithBlurSize(n int) MotionOption {
	return func(m *MotionDetector) {
		if n <= 0 {
			return
		}
		if n%2 == 0 {
			n++
		}
		m.blurSize = n
	}
}

// WithPixelDelta sets the intensity change a pixel needs to count as moved.
func WithPixelDelta(d float64) MotionOption {
	return func(m *MotionDetector) {
		if d > 0 {
			m.pixelDelta = d
		}
	}
}

// WithWorkWidth sets the comparison width. Zero compares at full size.
func WithWorkWidth(w int) MotionOption {
	return func(m *MotionDetector) {
		if w >= 0 {
			m.workWidth = w
		}
	}
}

// NewMotionDetector creates a detector that fires when more than threshold
// percent of pixels change between frames.
func NewMotionDetector(threshold float64, opts ...MotionOption) *MotionDetector {
	m := &MotionDetector{
		threshold:  threshold,
		blurSize:   DefaultBlurSize,
		pixelDelta: DefaultPixelDelta,
		workWidth:  DefaultWorkWidth,
		baseline:   gocv.NewMat(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Detect compares frame with the previous one and returns whether the
// changed-pixel percentage exceeds the threshold, along with that
// percentage. The first frame, and any frame whose shape differs from the
// baseline, only sets the baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	if frame == nil || frame.Empty() {
		return false, 0
	}

	work := m.prepare(frame)
	defer work.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.hasBase || work.Rows() != m.baseline.Rows() || work.Cols() != m.baseline.Cols() {
		work.CopyTo(&m.baseline)
		m.hasBase = true
		m.last = 0
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(work, m.baseline, &diff)

	moved := gocv.NewMat()
	defer moved.Close()
	gocv.Threshold(diff, &moved, float32(m.pixelDelta), 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(moved)) / float64(moved.Rows()*moved.Cols()) * 100
	work.CopyTo(&m.baseline)
	m.last = changed

	return changed > m.threshold, changed
}

// prepare returns a shrunk, blurred grayscale copy of frame.
func (m *MotionDetector) prepare(frame *gocv.Mat) gocv.Mat {
	m.mu.Lock()
	width, blur := m.workWidth, m.blurSize
	m.mu.Unlock()

	gray := gocv.NewMat()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	if width > 0 && gray.Cols() > width {
		height := gray.Rows() * width / gray.Cols()
		if height < 1 {
			height = 1
		}
		small := gocv.NewMat()
		gocv.Resize(gray, &small, image.Point{X: width, Y: height}, 0, 0, gocv.InterpolationArea)
		gray.Close()
		gray = small

		// A kernel sized for full frames would wash out the small copy.
		blur = blur * width / frame.Cols()
		if blur%2 == 0 {
			blur++
		}
	}

	if blur <= 1 {
		return gray
	}
	blurred := gocv.NewMat()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: blur, Y: blur}, 0, 0, gocv.BorderDefault)
	gray.Close()
	return blurred
}

// Last returns the change percentage from the most recent comparison.
func (m *MotionDetector) Last() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Reset drops the baseline so the next frame starts a new comparison.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.baseline.Empty() {
		m.baseline.Close()
		m.baseline = gocv.NewMat()
	}
	m.hasBase = false
	m.last = 0
}

// Close releases the baseline frame. The detector can still be used; the
// next frame becomes a new baseline.
func (m *MotionDetector) Close() {
	m.Reset()
}

// SetThreshold changes the changed-pixel percentage. Values <= 0 are
// ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = threshold
}

// Threshold returns the changed-pixel percentage threshold.
func (m *MotionDetector) Threshold() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}
