package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/vrmtrack/internal/clip"
	"github.com/ayusman/vrmtrack/internal/session"
)

// TrackingHandler exposes the tracking toggle and clip playback.
type TrackingHandler struct {
	session *session.Session
	ctx     context.Context
}

// NewTrackingHandler creates a new TrackingHandler. Background clips are
// bound to ctx.
func NewTrackingHandler(ctx context.Context, sess *session.Session) *TrackingHandler {
	return &TrackingHandler{session: sess, ctx: ctx}
}

type trackingResponse struct {
	Running bool          `json:"running"`
	Enabled bool          `json:"enabled"`
	Ready   bool          `json:"ready"`
	Clip    string        `json:"clip,omitempty"`
	Paused  bool          `json:"paused,omitempty"`
	Stats   session.Stats `json:"stats"`
}

type trackingRequest struct {
	Enabled *bool `json:"enabled"`
}

type listClipsResponse struct {
	Clips   []string `json:"clips"`
	Playing string   `json:"playing,omitempty"`
}

// ServeHTTP routes /api/tracking, /api/clips, /api/clips/playing,
// /api/clips/playing/{pause,resume} and /api/clips/{name}/play.
func (h *TrackingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/tracking" {
		switch r.Method {
		case http.MethodGet:
			h.status(w)
		case http.MethodPut:
			h.toggle(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/clips"), "/")
	switch {
	case path == "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.listClips(w)

	case path == "playing":
		if r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.session.StopClip()
		w.WriteHeader(http.StatusNoContent)

	case path == "playing/pause", path == "playing/resume":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ok := h.session.PauseClip
		if path == "playing/resume" {
			ok = h.session.ResumeClip
		}
		if !ok() {
			writeError(w, http.StatusConflict, "No clip in that state")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case strings.HasSuffix(path, "/play"):
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.play(w, r, strings.TrimSuffix(path, "/play"))

	default:
		http.NotFound(w, r)
	}
}

func (h *TrackingHandler) status(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, trackingResponse{
		Running: h.session.IsRunning(),
		Enabled: h.session.IsEnabled(),
		Ready:   h.session.Ready(),
		Clip:    h.session.PlayingClip(),
		Paused:  h.session.ClipPaused(),
		Stats:   h.session.Stats(),
	})
}

func (h *TrackingHandler) toggle(w http.ResponseWriter, r *http.Request) {
	var req trackingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}
	h.session.SetEnabled(*req.Enabled)
	h.status(w)
}

func (h *TrackingHandler) listClips(w http.ResponseWriter) {
	resp := listClipsResponse{Clips: []string{}, Playing: h.session.PlayingClip()}
	if lib := h.session.Clips(); lib != nil {
		resp.Clips = lib.Names()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *TrackingHandler) play(w http.ResponseWriter, r *http.Request, name string) {
	loop, _ := strconv.ParseBool(r.URL.Query().Get("loop"))

	err := h.session.StartClip(h.ctx, name, loop)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]any{"clip": name, "loop": loop})
	case errors.Is(err, clip.ErrNotFound):
		writeError(w, http.StatusNotFound, "Clip not found")
	case errors.Is(err, session.ErrNoClips):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrTrackingActive), errors.Is(err, session.ErrNoRig), errors.Is(err, clip.ErrAlreadyPlaying):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "Failed to play clip")
	}
}
