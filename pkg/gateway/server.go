// Package gateway is the HTTP surface: routing, authentication, error
// formatting, and file serving. All side effects go through the store and
// the synthesis orchestrator.
package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voicebrew/ttsgate/pkg/config"
	"github.com/voicebrew/ttsgate/pkg/logger"
	"github.com/voicebrew/ttsgate/pkg/store"
	"github.com/voicebrew/ttsgate/pkg/synth"
)

// apiVersion is set by the caller (main.go) via SetVersion.
var apiVersion = "dev"

// SetVersion sets the version string returned by the health endpoint.
func SetVersion(v string) {
	apiVersion = v
}

// Server is the ttsgate HTTP server.
type Server struct {
	cfg    *config.Config
	store  *store.Store
	orch   *synth.Orchestrator
	auth   Authenticator
	server *http.Server
}

// NewServer creates the HTTP server around its collaborators.
func NewServer(cfg *config.Config, st *store.Store, orch *synth.Orchestrator) *Server {
	return &Server{
		cfg:   cfg,
		store: st,
		orch:  orch,
		auth:  StaticTokenAuth{Token: cfg.Token},
	}
}

// Handler builds the route table. Exposed so tests can drive the mux
// through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", withMetrics("index", s.handleIndex))
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /audios/{filename}", withMetrics("audios", s.handleAudio))
	mux.HandleFunc("GET /reset_db", withMetrics("reset_db", s.authMiddleware(s.handleResetDB)))
	mux.HandleFunc("GET /users/{user_id}", withMetrics("users", s.authMiddleware(s.handleUser)))
	mux.HandleFunc("GET /create", withMetrics("create", s.authMiddleware(s.handleCreate)))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusNotFound, "Route not found")
	})
	return mux
}

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	go func() {
		logger.InfoCF("gateway", "HTTP server starting", map[string]any{"addr": addr})
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.ErrorCF("gateway", "HTTP server error", map[string]any{"error": err.Error()})
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
