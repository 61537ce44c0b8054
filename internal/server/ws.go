package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/vrmtrack/internal/server/api"
	"github.com/ayusman/vrmtrack/internal/session"
)

const (
	writeWait    = 2 * time.Second
	streamBuffer = 4
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// RigStreamHandler pushes the rig state to WebSocket clients after every
// applied frame.
type RigStreamHandler struct {
	session *session.Session
	logger  *slog.Logger
}

// NewRigStreamHandler creates a new RigStreamHandler for sess.
func NewRigStreamHandler(sess *session.Session, logger *slog.Logger) *RigStreamHandler {
	return &RigStreamHandler{session: sess, logger: logger}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *RigStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.session.Subscribe(streamBuffer)
	defer cancel()

	// The reader only notices the client closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.logger.Debug("rig stream client connected", "remote", r.RemoteAddr)
	defer h.logger.Debug("rig stream client disconnected", "remote", r.RemoteAddr)

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case u := <-updates:
			state, ok := h.session.Snapshot()
			if !ok {
				continue
			}
			msg := api.NewRigState(state, u.Result.Gaze, u.Seq, u.Timestamp)
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}
