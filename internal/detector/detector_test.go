package detector

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayusman/vrmtrack/internal/landmark"
)

func points(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf(`{"x":%d,"y":0.5,"z":-0.1,"visibility":0.9}`, i)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func TestDecodeFrame(t *testing.T) {
	t.Run("full frame", func(t *testing.T) {
		line := fmt.Sprintf(`{"face":%s,"pose":%s,"pose_world":%s,"left_hand":%s,"right_hand":%s}`,
			points(landmark.NumFaceRefined), points(landmark.NumPose), points(landmark.NumPose),
			points(landmark.NumHand), points(landmark.NumHand))

		f, err := decodeFrame([]byte(line))
		if err != nil {
			t.Fatalf("decodeFrame failed: %v", err)
		}
		if !f.HasFace() || !f.HasPose() || !f.HasLeftHand() || !f.HasRightHand() {
			t.Fatalf("expected every category, got %+v", f)
		}
		if len(f.Pose2D) != landmark.NumPose {
			t.Errorf("expected %d 2D pose points, got %d", landmark.NumPose, len(f.Pose2D))
		}
		p := f.LeftHand[3]
		if p.X != 3 || p.Y != 0.5 || p.Z != -0.1 || p.Visibility != 0.9 {
			t.Errorf("unexpected point %+v", p)
		}
	})

	t.Run("missing categories stay nil", func(t *testing.T) {
		f, err := decodeFrame([]byte(fmt.Sprintf(`{"right_hand":%s}`, points(landmark.NumHand))))
		if err != nil {
			t.Fatalf("decodeFrame failed: %v", err)
		}
		if f.HasFace() || f.HasPose() || f.HasLeftHand() || !f.HasRightHand() {
			t.Errorf("expected only a right hand, got %+v", f)
		}
	})

	t.Run("wrong counts are dropped", func(t *testing.T) {
		f, err := decodeFrame([]byte(fmt.Sprintf(`{"face":%s,"left_hand":%s}`, points(10), points(20))))
		if err != nil {
			t.Fatalf("decodeFrame failed: %v", err)
		}
		if !f.Empty() {
			t.Errorf("expected an empty frame, got %+v", f)
		}
	})

	t.Run("service error", func(t *testing.T) {
		if _, err := decodeFrame([]byte(`{"error":"model failed"}`)); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := decodeFrame([]byte(`not json`)); err == nil {
			t.Error("expected error")
		}
	})
}

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("jpeg bytes")
	if err := writeFrame(&buf, payload); err != nil {
		t.Fatalf("writeFrame failed: %v", err)
	}

	out := buf.Bytes()
	if n := binary.BigEndian.Uint32(out[:4]); int(n) != len(payload) {
		t.Errorf("expected length %d, got %d", len(payload), n)
	}
	if !bytes.Equal(out[4:], payload) {
		t.Errorf("expected payload %q, got %q", payload, out[4:])
	}
}

func TestHolisticDetector_Args(t *testing.T) {
	d := &HolisticDetector{config: DefaultConfig(), script: "svc.py"}
	got := strings.Join(d.args(), " ")
	for _, want := range []string{"svc.py", "--model-complexity 1", "--min-detection-confidence 0.5", "--refine-face", "--selfie"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in %q", want, got)
		}
	}
	if strings.Contains(got, "--no-smooth") {
		t.Errorf("unexpected --no-smooth in %q", got)
	}
}

func TestNewHolisticDetector_MissingScript(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Script = filepath.Join(t.TempDir(), "missing.py")
	if _, err := NewHolisticDetector(cfg); !errors.Is(err, ErrScriptNotFound) {
		t.Errorf("expected ErrScriptNotFound, got %v", err)
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty frame by default", func(t *testing.T) {
		mock := NewMockDetector()
		f, err := mock.Detect(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f == nil || !f.Empty() {
			t.Errorf("expected empty frame, got %+v", f)
		}
	})

	t.Run("returns configured frame", func(t *testing.T) {
		mock := NewMockDetector()
		want := landmark.TPose()
		mock.SetFrame(want)

		got, err := mock.Detect(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("expected configured frame")
		}
		if mock.Calls() != 1 {
			t.Errorf("expected 1 call, got %d", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()
		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		f, err := mock.Detect(nil)
		if !errors.Is(err, expectedErr) {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if f != nil {
			t.Errorf("expected nil frame on error, got %+v", f)
		}
	})

	t.Run("Close marks closed", func(t *testing.T) {
		mock := NewMockDetector()
		if err := mock.Close(); err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
		if !mock.Closed() {
			t.Error("expected Closed to be true")
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*HolisticDetector)(nil)
	})
}
