package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/vrmtrack/internal/app"
	"github.com/ayusman/vrmtrack/internal/capture"
	"github.com/ayusman/vrmtrack/internal/config"
	"github.com/ayusman/vrmtrack/internal/detector"
	"github.com/ayusman/vrmtrack/internal/landmark"
	"github.com/ayusman/vrmtrack/internal/log"
	"github.com/ayusman/vrmtrack/internal/rig"
	"github.com/ayusman/vrmtrack/internal/server"
	"github.com/ayusman/vrmtrack/internal/store"
)

type rigResponse struct {
	Version     string                `json:"version"`
	Bones       map[string][4]float64 `json:"bones"`
	Expressions map[string]float64    `json:"expressions"`
	Ready       bool                  `json:"ready"`
}

func TestE2E_CameraToRig(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	frame := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	defer frame.Close()
	cam := capture.NewMockCamera([]*gocv.Mat{&frame}, true)

	det := detector.NewMockDetector()
	det.SetFrame(landmark.ArmsDown())

	settings := config.Default()
	settings.Tracking.MotionThreshold = 0
	settings.Tracking.ActiveFPS = 30
	settings.Avatar.Version = "legacy"

	application, err := app.New(app.Config{
		Settings: &settings,
		Store:    s,
		Camera:   cam,
		Detector: det,
		Logger:   log.Discard(),
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}

	ready := make(chan struct{})
	application.Session().OnReady(func() { close(ready) })

	srv := server.New(server.Config{
		Store:         s,
		Session:       application.Session(),
		ProfileEngine: application.ProfileEngine,
	})
	defer srv.Close()
	ts := httptest.NewServer(srv)
	defer ts.Close()
	client := ts.Client()

	t.Run("CreateAndActivateProfile", func(t *testing.T) {
		resp, err := client.Post(
			ts.URL+"/api/profiles",
			"application/json",
			strings.NewReader(`{"name": "snappy", "bones": {"leftUpperArm": {"dampener": 1, "lerp": 1}}}`),
		)
		if err != nil {
			t.Fatalf("create profile error = %v", err)
		}
		var created struct {
			ID string `json:"id"`
		}
		json.NewDecoder(resp.Body).Decode(&created)
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
		}

		resp, err = client.Post(ts.URL+"/api/profiles/"+created.ID+"/activate", "application/json", nil)
		if err != nil {
			t.Fatalf("activate error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("activate status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
	})

	t.Run("TrackingReachesRig", func(t *testing.T) {
		if err := application.Start(context.Background()); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		defer application.Stop()

		select {
		case <-ready:
		case <-time.After(3 * time.Second):
			t.Fatal("session never became ready")
		}

		resp, err := client.Get(ts.URL + "/api/rig")
		if err != nil {
			t.Fatalf("GET /api/rig error = %v", err)
		}
		defer resp.Body.Close()

		var state rigResponse
		if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
			t.Fatalf("decode rig: %v", err)
		}
		if state.Version != "legacy" || !state.Ready {
			t.Errorf("unexpected rig state version=%q ready=%v", state.Version, state.Ready)
		}
		if q := state.Bones[string(rig.LeftUpperArm)]; q == [4]float64{0, 0, 0, 1} {
			t.Error("expected leftUpperArm to move")
		}

		if preview, _ := application.Session().Preview().Latest(); len(preview) == 0 {
			t.Error("expected a preview frame")
		}
		if det.Calls() == 0 {
			t.Error("expected the detector to be called")
		}
	})

	t.Run("ClipsRefusedThenAllowed", func(t *testing.T) {
		clips := application.Clips()
		if len(clips) == 0 {
			t.Fatal("expected built-in clips")
		}

		if err := application.Start(context.Background()); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		resp, _ := client.Post(ts.URL+"/api/clips/"+clips[0]+"/play", "application/json", nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("play while tracking status = %d, want %d", resp.StatusCode, http.StatusConflict)
		}

		application.Stop()
		resp, _ = client.Post(ts.URL+"/api/clips/"+clips[0]+"/play", "application/json", nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			t.Errorf("play after stop status = %d, want %d", resp.StatusCode, http.StatusAccepted)
		}
		application.Session().StopClip()
	})

	t.Run("APIStillWorks", func(t *testing.T) {
		resp, _ := client.Get(ts.URL + "/api/health")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("health check failed after app operations")
		}
		resp.Body.Close()
	})
}
