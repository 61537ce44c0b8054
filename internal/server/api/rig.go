package api

import (
	"net/http"
	"time"

	"github.com/ayusman/vrmtrack/internal/rig"
)

// RigSource exposes the rig state a viewer needs.
type RigSource interface {
	Snapshot() (rig.State, bool)
	Gaze() [2]float64
	Ready() bool
}

// RigState is the wire form of a rig snapshot. Quaternions are in glTF
// component order: x, y, z, w.
type RigState struct {
	Version     string                `json:"version"`
	Bones       map[string][4]float64 `json:"bones"`
	Expressions map[string]float64    `json:"expressions"`
	Gaze        [2]float64            `json:"gaze"`
	Seq         uint64                `json:"seq,omitempty"`
	Timestamp   int64                 `json:"timestamp"`
	Ready       bool                  `json:"ready"`
}

// NewRigState converts a snapshot to its wire form.
func NewRigState(s rig.State, gaze [2]float64, seq uint64, timestamp int64) RigState {
	out := RigState{
		Version:     s.Version.String(),
		Bones:       make(map[string][4]float64, len(s.Bones)),
		Expressions: make(map[string]float64, len(s.Expressions)),
		Gaze:        gaze,
		Seq:         seq,
		Timestamp:   timestamp,
		Ready:       seq > 0,
	}
	for name, q := range s.Bones {
		out.Bones[string(name)] = [4]float64{q.V[0], q.V[1], q.V[2], q.W}
	}
	for e, w := range s.Expressions {
		out.Expressions[string(e)] = w
	}
	return out
}

// RigHandler serves GET /api/rig.
type RigHandler struct {
	source RigSource
}

// NewRigHandler creates a new RigHandler.
func NewRigHandler(source RigSource) *RigHandler {
	return &RigHandler{source: source}
}

// ServeHTTP returns the current rig snapshot.
func (h *RigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state, ok := h.source.Snapshot()
	if !ok {
		writeError(w, http.StatusNotFound, "No rig attached")
		return
	}

	resp := NewRigState(state, h.source.Gaze(), 0, time.Now().UnixMilli())
	resp.Ready = h.source.Ready()
	writeJSON(w, http.StatusOK, resp)
}
