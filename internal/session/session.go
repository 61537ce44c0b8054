// Package session owns the tracking lifecycle: it drives frames from the
// camera through the detector into the retargeting engine, and exposes the
// per-frame entry point for callers that bring their own landmarks.
package session

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/vrmtrack/internal/capture"
	"github.com/ayusman/vrmtrack/internal/clip"
	"github.com/ayusman/vrmtrack/internal/detector"
	"github.com/ayusman/vrmtrack/internal/landmark"
	"github.com/ayusman/vrmtrack/internal/log"
	"github.com/ayusman/vrmtrack/internal/retarget"
	"github.com/ayusman/vrmtrack/internal/rig"
)

// Frame rate settings for adaptive capture
const (
	IdleFPS                = 5
	ActiveFPS              = 15
	IdleTimeout            = 2 * time.Second
	DefaultMotionThreshold = 1.0
)

var (
	// ErrAlreadyRunning is returned by Start on a running session.
	ErrAlreadyRunning = errors.New("session already running")

	// ErrTrackingActive is returned when a clip is requested while tracking
	// owns the rig.
	ErrTrackingActive = errors.New("tracking is running")

	// ErrNoRig is returned when an operation needs an attached rig.
	ErrNoRig = errors.New("no rig attached")

	// ErrNoClips is returned when the session has no clip library.
	ErrNoClips = errors.New("no clip library configured")
)

// Config holds the collaborators and tuning for a Session. Camera and
// Detector may be nil, in which case frames only arrive through HandleFrame.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector
	Engine   *retarget.Engine
	Clips    *clip.Library
	Preview  *capture.Preview

	IdleFPS     int
	ActiveFPS   int
	IdleTimeout time.Duration

	// MotionThreshold is the changed-pixel percentage that switches the
	// loop into active mode. Zero or less disables motion gating.
	MotionThreshold float64

	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Engine == nil {
		c.Engine = retarget.New()
	}
	if c.IdleFPS <= 0 {
		c.IdleFPS = IdleFPS
	}
	if c.ActiveFPS <= 0 {
		c.ActiveFPS = ActiveFPS
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = IdleTimeout
	}
	if c.Logger == nil {
		c.Logger = log.L()
	}
	return c
}

// Stats counts what happened to incoming frames.
type Stats struct {
	// Processed frames were retargeted onto a rig.
	Processed uint64 `json:"processed"`
	// Dropped frames arrived while another frame was being applied.
	Dropped uint64 `json:"dropped"`
	// Skipped frames had no usable rig or arrived while stopped.
	Skipped uint64 `json:"skipped"`
	// DetectErrors counts detector failures in the capture loop.
	DetectErrors uint64 `json:"detect_errors"`
}

// Update is published to subscribers after every applied frame.
type Update struct {
	Seq       uint64          `json:"seq"`
	Result    retarget.Result `json:"result"`
	Timestamp int64           `json:"timestamp"`
}

// Session connects a landmark source to a rig.
type Session struct {
	cfg    Config
	id     string
	engine *retarget.Engine
	logger *slog.Logger
	player *clip.Player

	// lifeMu serializes Start and Stop.
	lifeMu sync.Mutex

	// applyMu is held for every rig write. accepting is guarded by it.
	applyMu   sync.Mutex
	accepting bool

	mu       sync.Mutex
	rig      rig.Handle
	rigOK    bool
	ready    bool
	onReady  []func()
	running  bool
	stopCh   chan struct{}
	done     chan struct{}
	lastGaze [2]float64
	subs     map[int]chan Update
	nextSub  int
	seq      uint64

	enabled atomic.Bool
	busy    atomic.Bool

	processed    atomic.Uint64
	dropped      atomic.Uint64
	skipped      atomic.Uint64
	detectErrors atomic.Uint64
}

// New creates a stopped session with tracking enabled.
func New(cfg Config) *Session {
	cfg = cfg.withDefaults()
	id := uuid.New().String()
	s := &Session{
		cfg:    cfg,
		id:     id,
		engine: cfg.Engine,
		logger: cfg.Logger.With("session", id),
		player: clip.NewPlayer(),
		subs:   make(map[int]chan Update),
	}
	s.enabled.Store(true)
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// AttachRig makes h the retargeting target. The rig version is read once
// here; frames for a rig of unsupported version are ignored until another
// rig is attached. Attaching resets the ready notification.
func (s *Session) AttachRig(h rig.Handle) error {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if h == nil {
		s.rig, s.rigOK, s.ready = nil, false, false
		return ErrNoRig
	}

	v := h.Version()
	s.rig = h
	s.rigOK = v.Supported()
	s.ready = false

	if !s.rigOK {
		s.logger.Warn("ignoring frames for rig", "version", v.String(), "error", rig.ErrUnsupportedVersion)
		return rig.ErrUnsupportedVersion
	}
	s.logger.Info("rig attached", "version", v.String())
	return nil
}

// DetachRig removes the current rig. Frames are skipped until a new rig is
// attached.
func (s *Session) DetachRig() {
	s.player.Stop()

	s.applyMu.Lock()
	defer s.applyMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rig, s.rigOK, s.ready = nil, false, false
}

// Rig returns the attached rig, if any.
func (s *Session) Rig() (rig.Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rig, s.rig != nil
}

// OnReady registers fn to run once, after the first frame that is
// retargeted onto the attached rig. Callbacks run on the goroutine that
// delivered that frame, after the rig write completes.
func (s *Session) OnReady(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReady = append(s.onReady, fn)
}

// Ready reports whether a frame has been retargeted onto the current rig.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// HandleFrame retargets one landmark frame onto the attached rig. A frame
// that arrives while another is being applied is dropped, never queued.
// Frames are skipped when the session is stopped, disabled or has no
// usable rig.
func (s *Session) HandleFrame(frame *landmark.Frame) (retarget.Result, bool) {
	if !s.busy.CompareAndSwap(false, true) {
		s.dropped.Add(1)
		return retarget.Result{}, false
	}
	defer s.busy.Store(false)

	res, ok, callbacks := s.apply(frame)
	for _, fn := range callbacks {
		fn()
	}
	return res, ok
}

// apply runs the engine under applyMu and returns any ready callbacks to
// fire once the lock is released.
func (s *Session) apply(frame *landmark.Frame) (retarget.Result, bool, []func()) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	s.mu.Lock()
	h, ok := s.rig, s.rigOK
	s.mu.Unlock()

	if !s.accepting || !s.IsEnabled() || frame == nil || h == nil || !ok {
		s.skipped.Add(1)
		return retarget.Result{}, false, nil
	}

	res := s.engine.Apply(frame, h)
	if !res.Applied {
		s.skipped.Add(1)
		return res, false, nil
	}
	s.processed.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastGaze = res.Gaze
	s.seq++
	update := Update{Seq: s.seq, Result: res, Timestamp: frame.Timestamp}
	if update.Timestamp == 0 {
		update.Timestamp = time.Now().UnixMilli()
	}
	for _, ch := range s.subs {
		select {
		case ch <- update:
		default:
		}
	}

	var callbacks []func()
	if !s.ready {
		s.ready = true
		callbacks = s.onReady
		s.onReady = nil
		s.logger.Info("tracking ready", "parts", res.Parts.String())
	}
	return res, true, callbacks
}

// Gaze returns the smoothed gaze offset from the last applied frame.
func (s *Session) Gaze() [2]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastGaze
}

// Stats returns the frame counters.
func (s *Session) Stats() Stats {
	return Stats{
		Processed:    s.processed.Load(),
		Dropped:      s.dropped.Load(),
		Skipped:      s.skipped.Load(),
		DetectErrors: s.detectErrors.Load(),
	}
}

// Snapshot copies the attached rig's state between frames. It reports
// false when no rig is attached or the rig cannot be snapshotted.
func (s *Session) Snapshot() (rig.State, bool) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	s.mu.Lock()
	h := s.rig
	s.mu.Unlock()

	snap, ok := h.(interface{ Snapshot() rig.State })
	if !ok {
		return rig.State{}, false
	}
	return snap.Snapshot(), true
}

// Subscribe returns a channel of updates for applied frames and a function
// that cancels the subscription. Slow subscribers miss updates.
func (s *Session) Subscribe(buffer int) (<-chan Update, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Update, buffer)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// SetEnabled enables or disables tracking without stopping the session.
func (s *Session) SetEnabled(enabled bool) {
	s.enabled.Store(enabled)
	s.logger.Info("tracking toggled", "enabled", enabled)
}

// IsEnabled returns whether tracking is currently enabled.
func (s *Session) IsEnabled() bool {
	return s.enabled.Load()
}

// IsRunning reports whether the session has been started and not stopped.
func (s *Session) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Engine returns the retargeting engine.
func (s *Session) Engine() *retarget.Engine {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()
	return s.engine
}

// SetEngine swaps the retargeting engine between frames. Smoothing state
// starts over with the new engine.
func (s *Session) SetEngine(e *retarget.Engine) {
	if e == nil {
		return
	}
	s.applyMu.Lock()
	defer s.applyMu.Unlock()
	s.engine = e
	s.logger.Info("retargeting engine replaced")
}

// Preview returns the camera preview buffer, or nil.
func (s *Session) Preview() *capture.Preview {
	return s.cfg.Preview
}
