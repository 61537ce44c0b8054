package detector

import (
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/vrmtrack/internal/landmark"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu     sync.Mutex
	frame  *landmark.Frame
	err    error
	delay  time.Duration
	calls  int
	closed bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFrame sets the frame that will be returned by Detect.
func (m *MockDetector) SetFrame(frame *landmark.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frame = frame
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetDelay makes Detect block for d before returning.
func (m *MockDetector) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Detect returns the pre-configured frame or error. With no frame set it
// returns an empty frame.
func (m *MockDetector) Detect(frame *gocv.Mat) (*landmark.Frame, error) {
	m.mu.Lock()
	m.calls++
	delay, result, err := m.delay, m.frame, m.err
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		return &landmark.Frame{}, nil
	}
	return result, nil
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close marks the mock closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
