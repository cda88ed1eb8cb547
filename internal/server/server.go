// Package server provides the HTTP and WebSocket server for nritya.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/nritya/internal/engine"
	"github.com/ayusman/nritya/internal/server/api"
	"github.com/ayusman/nritya/internal/sink"
	"github.com/ayusman/nritya/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	// Engine is the default configuration of /api/perform sessions.
	Engine engine.Config
	// Sink receives the events of every performance, e.g. the synthesizer.
	Sink sink.Sink
	// Preview feeds /api/stream when set.
	Preview FrameSource
	// Landmarks is served on /api/landmarks when set.
	Landmarks *LandmarksHub
	Logger    *zap.Logger
}

// Server represents the HTTP server for the nritya application.
type Server struct {
	config  Config
	mux     *http.ServeMux
	start   time.Time
	perform *PerformHandler
	log     *zap.Logger
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Engine.Mapping == nil {
		config.Engine = engine.DefaultConfig()
	}
	s := &Server{
		config:  config,
		mux:     http.NewServeMux(),
		start:   time.Now(),
		perform: NewPerformHandler(config),
		log:     config.Logger,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.Handle("/api/perform", s.perform)

	if s.config.Store != nil {
		presets := api.NewPresetHandler(s.config.Store)
		pedals := api.NewPedalHandler(s.config.Store)
		sessions := api.NewSessionHandler(s.config.Store)

		s.mux.Handle("/api/presets", presets)
		s.mux.Handle("/api/presets/", presets)
		s.mux.Handle("/api/pedals", pedals)
		s.mux.Handle("/api/pedals/", pedals)
		s.mux.Handle("/api/sessions", sessions)
		s.mux.Handle("/api/sessions/", sessions)
		s.mux.Handle("/api/settings", api.NewSettingsHandler(s.config.Store))
	}

	if s.config.Preview != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Preview, s.log.Named("stream")))
	}

	if s.config.Landmarks != nil {
		s.mux.Handle("/api/landmarks", s.config.Landmarks)
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
		"status":       "ok",
		"uptime":       time.Since(s.start).String(),
		"performances": s.perform.Active(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	s.log.Info("listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, s)
}
