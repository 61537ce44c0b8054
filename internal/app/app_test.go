package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/vrmtrack/internal/capture"
	"github.com/ayusman/vrmtrack/internal/config"
	"github.com/ayusman/vrmtrack/internal/detector"
	"github.com/ayusman/vrmtrack/internal/landmark"
	"github.com/ayusman/vrmtrack/internal/log"
	"github.com/ayusman/vrmtrack/internal/retarget"
	"github.com/ayusman/vrmtrack/internal/rig"
	"github.com/ayusman/vrmtrack/internal/server"
	"github.com/ayusman/vrmtrack/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func writeAvatar(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "avatar.gltf")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write avatar: %v", err)
	}
	return path
}

func TestLoadRig(t *testing.T) {
	legacy := writeAvatar(t, `{"asset":{"version":"2.0"},"extensionsUsed":["VRM"],"extensions":{"VRM":{"specVersion":"0.0"}}}`)
	plain := writeAvatar(t, `{"asset":{"version":"2.0"}}`)

	tests := []struct {
		name    string
		avatar  config.Avatar
		want    rig.Version
		wantErr bool
	}{
		{name: "no avatar", want: rig.Current},
		{name: "forced version", avatar: config.Avatar{Path: legacy, Version: "current"}, want: rig.Current},
		{name: "from file", avatar: config.Avatar{Path: legacy}, want: rig.Legacy},
		{name: "plain gltf", avatar: config.Avatar{Path: plain}, want: rig.Unknown},
		{name: "missing file", avatar: config.Avatar{Path: filepath.Join(t.TempDir(), "none.vrm")}, wantErr: true},
		{name: "bad version", avatar: config.Avatar{Version: "2"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := LoadRig(tt.avatar)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadRig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && h.Version() != tt.want {
				t.Errorf("version = %v, want %v", h.Version(), tt.want)
			}
		})
	}
}

func TestEngineOptions(t *testing.T) {
	lerp := 0.9
	settings := config.Default()
	settings.Tracking.Bones = map[string]config.BoneTuning{
		string(rig.Neck):  {Lerp: &lerp},
		string(rig.Spine): {Lerp: &lerp},
	}

	t.Run("config only", func(t *testing.T) {
		opts, profile, err := EngineOptions(&settings, nil)
		if err != nil {
			t.Fatal(err)
		}
		if profile != "" {
			t.Errorf("profile = %q, want empty", profile)
		}
		if opts.Bones[rig.Neck].Lerp != lerp {
			t.Errorf("neck lerp = %v, want %v", opts.Bones[rig.Neck].Lerp, lerp)
		}
	})

	st := newTestStore(t)
	for _, p := range []*store.Profile{
		{Name: "active", GazeSmoothing: store.Float64(0.8), Bones: map[rig.BoneName]retarget.Tuning{rig.Neck: {Dampener: 0.5, Lerp: 0.2}}},
		{Name: "named", Bones: map[rig.BoneName]retarget.Tuning{rig.Hips: {Dampener: 1, Lerp: 0.1}}},
	} {
		if err := st.Profiles().Create(p); err != nil {
			t.Fatalf("Create(%s) error = %v", p.Name, err)
		}
	}
	if err := st.Settings().Set(store.KeyActiveProfile, "active"); err != nil {
		t.Fatal(err)
	}

	t.Run("active profile overrides config", func(t *testing.T) {
		opts, profile, err := EngineOptions(&settings, st)
		if err != nil {
			t.Fatal(err)
		}
		if profile != "active" {
			t.Errorf("profile = %q, want active", profile)
		}
		if opts.Bones[rig.Neck].Lerp != 0.2 {
			t.Errorf("neck lerp = %v, want 0.2", opts.Bones[rig.Neck].Lerp)
		}
		if opts.Bones[rig.Spine].Lerp != lerp {
			t.Errorf("spine lerp = %v, want %v", opts.Bones[rig.Spine].Lerp, lerp)
		}
		if opts.GazeSmoothing != 0.8 {
			t.Errorf("gaze smoothing = %v, want 0.8", opts.GazeSmoothing)
		}
	})

	t.Run("configured profile wins", func(t *testing.T) {
		named := settings
		named.Tracking.Profile = "named"
		opts, profile, err := EngineOptions(&named, st)
		if err != nil {
			t.Fatal(err)
		}
		if profile != "named" {
			t.Errorf("profile = %q, want named", profile)
		}
		if opts.Bones[rig.Hips].Lerp != 0.1 {
			t.Errorf("hips lerp = %v, want 0.1", opts.Bones[rig.Hips].Lerp)
		}
	})

	t.Run("missing profile", func(t *testing.T) {
		missing := settings
		missing.Tracking.Profile = "gone"
		if _, _, err := EngineOptions(&missing, st); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestNew(t *testing.T) {
	cam := capture.NewMockCamera(nil, false)
	det := detector.NewMockDetector()
	h := rig.NewHumanoid(rig.Legacy)

	a, err := New(Config{
		Camera:   cam,
		Detector: det,
		Rig:      h,
		Store:    newTestStore(t),
		Logger:   log.Discard(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if a.Rig() != h {
		t.Error("expected the given rig")
	}
	if got, ok := a.Session().Rig(); !ok || got != h {
		t.Error("expected the rig to be attached to the session")
	}
	if len(a.Clips()) == 0 {
		t.Error("expected built-in clips")
	}
	if a.Profile() != "" {
		t.Errorf("Profile() = %q, want empty", a.Profile())
	}
	if a.Session().Preview() == nil {
		t.Error("expected a preview buffer")
	}
}

func TestApp_ProfileEngineMatchesStartup(t *testing.T) {
	dampener, lerp := 0.05, 0.9
	settings := config.Default()
	settings.Tracking.GazeSmoothing = 0.7
	settings.Tracking.Bones = map[string]config.BoneTuning{
		"spine":         {Dampener: &dampener, Lerp: &lerp},
		"leftUpperArm":  {Lerp: &lerp},
		"rightLowerArm": {Dampener: &dampener},
	}

	st := newTestStore(t)
	p := &store.Profile{
		Name:  "steady",
		Bones: map[rig.BoneName]retarget.Tuning{rig.Hips: {Dampener: 0.4, Lerp: 0.1}},
	}
	if err := st.Profiles().Create(p); err != nil {
		t.Fatalf("Create error = %v", err)
	}

	a, err := New(Config{
		Settings: &settings,
		Store:    st,
		Camera:   capture.NewMockCamera(nil, false),
		Detector: detector.NewMockDetector(),
		Rig:      rig.NewHumanoid(rig.Current),
		Logger:   log.Discard(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	srv := server.New(server.Config{Store: st, Session: a.Session(), ProfileEngine: a.ProfileEngine})
	defer srv.Close()
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := ts.Client().Post(ts.URL+"/api/profiles/"+p.ID+"/activate", "application/json", nil)
	if err != nil {
		t.Fatalf("activate error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("activate status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	// What a restart with this profile active would build.
	opts, profile, err := EngineOptions(&settings, st)
	if err != nil {
		t.Fatalf("EngineOptions error = %v", err)
	}
	if profile != "steady" {
		t.Fatalf("profile = %q, want steady", profile)
	}
	restart := retarget.New(retarget.WithOptions(opts))

	live := a.Session().Engine()
	for _, bone := range rig.AllBones() {
		if got, want := live.Tuning(bone), restart.Tuning(bone); got != want {
			t.Errorf("%s tuning = %+v, want %+v", bone, got, want)
		}
	}
	if got := live.Tuning(rig.Spine); got != (retarget.Tuning{Dampener: dampener, Lerp: lerp}) {
		t.Errorf("config override lost on activation: spine = %+v", got)
	}
	if live.GazeSmoothing() != 0.7 || restart.GazeSmoothing() != 0.7 {
		t.Errorf("gaze smoothing live %v restart %v, want 0.7", live.GazeSmoothing(), restart.GazeSmoothing())
	}
}

func TestNew_UnsupportedRig(t *testing.T) {
	a, err := New(Config{
		Camera:   capture.NewMockCamera(nil, false),
		Detector: detector.NewMockDetector(),
		Rig:      rig.NewHumanoid(rig.Unknown),
		Logger:   log.Discard(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer a.Stop()

	if _, ok := a.Session().HandleFrame(landmark.TPose()); ok {
		t.Error("expected frames for an unknown rig to be ignored")
	}
}

func TestNew_MissingClipsDir(t *testing.T) {
	settings := config.Default()
	settings.Tracking.ClipsDir = filepath.Join(t.TempDir(), "missing")

	_, err := New(Config{
		Settings: &settings,
		Camera:   capture.NewMockCamera(nil, false),
		Detector: detector.NewMockDetector(),
		Logger:   log.Discard(),
	})
	if err == nil {
		t.Error("expected error for a missing clips directory")
	}
}

func TestApp_StartStop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that runs the capture loop")
	}

	cam := capture.NewMockCamera(nil, false)
	det := detector.NewMockDetector()
	a, err := New(Config{Camera: cam, Detector: det, Logger: log.Discard()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !cam.IsOpen() {
		t.Error("expected camera to be open")
	}
	if err := a.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if cam.IsOpen() {
		t.Error("expected camera to be closed")
	}
	if !det.Closed() {
		t.Error("expected detector to be closed")
	}
}
