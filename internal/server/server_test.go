package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/vrmtrack/internal/capture"
	"github.com/ayusman/vrmtrack/internal/landmark"
	"github.com/ayusman/vrmtrack/internal/rig"
	"github.com/ayusman/vrmtrack/internal/session"
)

func newTestSession(t *testing.T, cfg session.Config) *session.Session {
	t.Helper()
	sess := session.New(cfg)
	t.Cleanup(func() { sess.Stop() })
	return sess
}

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		contentType := rec.Header().Get("Content-Type")
		if contentType != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", contentType)
		}

		var response map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}

		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
		if _, exists := response["session"]; exists {
			t.Error("expected no 'session' field without a session")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		methods := []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch}

		for _, method := range methods {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})

	t.Run("reports session state", func(t *testing.T) {
		sess := newTestSession(t, session.Config{})
		s := New(Config{Session: sess})

		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		var response struct {
			Session string `json:"session"`
			Running bool   `json:"running"`
			Ready   bool   `json:"ready"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Session != sess.ID() {
			t.Errorf("session = %q, want %q", response.Session, sess.ID())
		}
		if response.Running || response.Ready {
			t.Errorf("unexpected state %+v", response)
		}
	})
}

func TestServer_NotFound(t *testing.T) {
	s := New(Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/nonexistent", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestServer_StaticFiles(t *testing.T) {
	tmpDir := t.TempDir()

	testContent := "<html><body>viewer</body></html>"
	if err := os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte(testContent), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	cssContent := "body { color: red; }"
	if err := os.WriteFile(filepath.Join(tmpDir, "style.css"), []byte(cssContent), 0644); err != nil {
		t.Fatalf("failed to create test CSS file: %v", err)
	}

	s := New(Config{StaticDir: tmpDir})

	tests := []struct {
		name string
		path string
		code int
		body string
	}{
		{name: "index at root", path: "/", code: http.StatusOK, body: testContent},
		{name: "file by name", path: "/style.css", code: http.StatusOK, body: cssContent},
		{name: "missing file", path: "/nonexistent.html", code: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != tt.code {
				t.Errorf("expected status %d, got %d", tt.code, rec.Code)
			}
			if tt.body != "" && rec.Body.String() != tt.body {
				t.Errorf("expected body %q, got %q", tt.body, rec.Body.String())
			}
		})
	}
}

func TestServer_NoStaticDir(t *testing.T) {
	s := New(Config{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestServer_RoutesNeedSession(t *testing.T) {
	s := New(Config{})

	for _, path := range []string{"/api/rig", "/api/rig/stream", "/api/tracking", "/api/clips", "/api/stream"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected status %d, got %d", path, http.StatusNotFound, rec.Code)
		}
	}
}

func TestServer_Rig(t *testing.T) {
	sess := newTestSession(t, session.Config{})
	s := New(Config{Session: sess})

	req := httptest.NewRequest(http.MethodGet, "/api/rig", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without rig, got %d", rec.Code)
	}

	sess.AttachRig(rig.NewHumanoid(rig.Legacy))
	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, ok := sess.HandleFrame(landmark.ArmsDown()); !ok {
		t.Fatal("expected frame to be applied")
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rig", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var state struct {
		Version     string                `json:"version"`
		Bones       map[string][4]float64 `json:"bones"`
		Expressions map[string]float64    `json:"expressions"`
		Ready       bool                  `json:"ready"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if state.Version != "legacy" {
		t.Errorf("version = %q, want legacy", state.Version)
	}
	if !state.Ready {
		t.Error("expected ready after an applied frame")
	}
	q, ok := state.Bones[string(rig.LeftUpperArm)]
	if !ok {
		t.Fatal("expected leftUpperArm in bones")
	}
	if q == [4]float64{0, 0, 0, 1} {
		t.Error("expected leftUpperArm to have moved from identity")
	}
	if _, ok := state.Expressions[string(rig.Blink)]; !ok {
		t.Error("expected blink in expressions")
	}
}

func TestServer_Tracking(t *testing.T) {
	sess := newTestSession(t, session.Config{})
	s := New(Config{Session: sess})

	req := httptest.NewRequest(http.MethodPut, "/api/tracking", strings.NewReader(`{"enabled": false}`))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if sess.IsEnabled() {
		t.Error("expected tracking to be disabled")
	}

	req = httptest.NewRequest(http.MethodPut, "/api/tracking", strings.NewReader(`{}`))
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without enabled, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tracking", nil))
	var status struct {
		Running bool `json:"running"`
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if status.Running || status.Enabled {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestServer_Stream(t *testing.T) {
	preview := capture.NewPreview()
	sess := newTestSession(t, session.Config{Preview: preview})
	ts := httptest.NewServer(New(Config{Session: sess}))
	defer ts.Close()

	frame := []byte{0xff, 0xd8, 0xff, 0xd9}
	preview.Publish(frame)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream", nil)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("GET /api/stream error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Errorf("unexpected Content-Type %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	var header []string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("reading stream: %v", err)
		}
		line = strings.TrimSpace(line)
		if line == "" && len(header) > 0 {
			break
		}
		if line != "" {
			header = append(header, line)
		}
	}
	if header[0] != "--frame" {
		t.Errorf("expected boundary, got %q", header[0])
	}
	if !strings.Contains(strings.Join(header, "\n"), "Content-Length: 4") {
		t.Errorf("expected Content-Length 4 in %v", header)
	}
}
