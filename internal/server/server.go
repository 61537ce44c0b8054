// Package server provides the HTTP API for vrmtrack: profile management,
// rig state for viewers and the camera preview.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ayusman/vrmtrack/internal/log"
	"github.com/ayusman/vrmtrack/internal/server/api"
	"github.com/ayusman/vrmtrack/internal/session"
	"github.com/ayusman/vrmtrack/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Session   *session.Session
	Logger    *slog.Logger

	// ProfileEngine builds the engine for a profile activated at runtime.
	ProfileEngine api.EngineBuilder
}

// Server represents the HTTP server for the vrmtrack application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	logger *slog.Logger

	// ctx bounds work started by requests, such as background clips.
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = log.L()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		logger: logger.With("component", "server"),
		ctx:    ctx,
		cancel: cancel,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		var engine api.EngineSetter
		if s.config.Session != nil {
			engine = s.config.Session
		}
		profiles := api.NewProfileHandler(s.config.Store, engine, s.config.ProfileEngine)
		s.mux.Handle("/api/profiles", profiles)
		s.mux.Handle("/api/profiles/", profiles)
	}

	if sess := s.config.Session; sess != nil {
		s.mux.Handle("/api/rig", api.NewRigHandler(sess))
		s.mux.Handle("/api/rig/stream", NewRigStreamHandler(sess, s.logger))

		tracking := api.NewTrackingHandler(s.ctx, sess)
		s.mux.Handle("/api/tracking", tracking)
		s.mux.Handle("/api/clips", tracking)
		s.mux.Handle("/api/clips/", tracking)

		if sess.Preview() != nil {
			s.mux.Handle("/api/stream", NewStreamHandler(sess.Preview()))
		}
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if sess := s.config.Session; sess != nil {
		response["session"] = sess.ID()
		response["running"] = sess.IsRunning()
		response["ready"] = sess.Ready()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Close cancels work started by requests.
func (s *Server) Close() {
	s.cancel()
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	defer s.Close()

	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
