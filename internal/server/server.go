// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the renderer relay and the annotation pipeline over
// HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/pdiddy/citeassist/internal/render"
	"github.com/pdiddy/citeassist/internal/sheet"
	"github.com/pdiddy/citeassist/pkg/types"
)

const (
	defaultAddr           = ":9000"
	defaultMaxUploadBytes = 32 << 20
	defaultShutdown       = 10 * time.Second

	// maxFormMemory is how much of a multipart upload is kept in memory;
	// the rest spills to temporary files.
	maxFormMemory = 8 << 20

	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 60 * time.Second
)

// Server serves the relay and annotation endpoints. Each request runs in its
// own goroutine with the request context, so a client disconnect cancels
// any render polling on its behalf.
type Server struct {
	cfg      types.ServerConfig
	backend  render.Backend
	producer *sheet.Producer
	logger   *slog.Logger
	handler  http.Handler
}

// New creates a server. backend serves POST /latex/process; producer serves
// POST /annotate.
func New(cfg types.ServerConfig, backend render.Backend, producer *sheet.Producer, logger *slog.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdown
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		cfg:      cfg,
		backend:  backend,
		producer: producer,
		logger:   logger,
	}
	s.handler = s.routes()
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.cfg.Addr }

// Handler returns the HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /latex/process", s.handleProcess)
	mux.HandleFunc("POST /annotate", s.handleAnnotate)
	mux.HandleFunc("GET /testAPI", s.handleTestAPI)

	// Outermost last.
	var h http.Handler = mux
	if len(s.cfg.CORSOrigins) > 0 {
		h = corsMiddleware(s.cfg.CORSOrigins)(h)
	}
	h = loggingMiddleware(s.logger)(h)
	h = recoveryMiddleware(s.logger)(h)
	return h
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled. In-flight
// requests get ShutdownTimeout to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", slog.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down", slog.Duration("timeout", s.cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error": msg}.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
