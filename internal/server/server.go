package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"luster/internal/artifacts"
	"luster/internal/config"
	"luster/internal/dispatch"
	"luster/internal/jobs"
	"luster/internal/logging"
	"luster/internal/monitor"
)

// Server exposes the HTTP surface of the daemon: job submission, status
// polling, event streaming, result download, and the administrative API.
type Server struct {
	bind       string
	logger     *slog.Logger
	cfg        *config.Config
	store      *jobs.Store
	dispatcher *dispatch.Dispatcher
	hub        *monitor.Hub
	locator    *artifacts.Locator
	metrics    *metrics

	listener net.Listener
	server   *http.Server
}

// New assembles the router and server. Returns nil when no bind address is
// configured, which disables the HTTP surface entirely.
func New(cfg *config.Config, store *jobs.Store, dispatcher *dispatch.Dispatcher, hub *monitor.Hub, locator *artifacts.Locator, logger *slog.Logger) *Server {
	if cfg == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	srv := &Server{
		bind:       bind,
		logger:     logging.NewComponentLogger(logger, "api-server"),
		cfg:        cfg,
		store:      store,
		dispatcher: dispatcher,
		hub:        hub,
		locator:    locator,
		metrics:    newMetrics(store, hub),
	}

	router := mux.NewRouter()
	router.HandleFunc("/jobs", srv.handleSubmit).Methods(http.MethodPost)
	router.HandleFunc("/status/{job_id}", srv.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/events/{job_id}", srv.handleEvents).Methods(http.MethodGet)
	router.HandleFunc("/result/{job_id}", srv.handleResult).Methods(http.MethodGet)
	router.HandleFunc("/result/{job_id}/all", srv.handleResultAll).Methods(http.MethodGet)
	router.HandleFunc("/api/status", srv.handleAPIStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/jobs", srv.handleAPIJobs).Methods(http.MethodGet)
	router.HandleFunc("/api/jobs/{job_id}", srv.handleAPIJob).Methods(http.MethodGet)
	router.HandleFunc("/auth/login", srv.handleLogin).Methods(http.MethodPost)
	router.Handle("/metrics", promhttp.HandlerFor(srv.metrics.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.Use(authMiddleware(cfg.Paths.APIToken))

	srv.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Start binds the listener and serves until ctx ends or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr reports the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	if s == nil || s.server == nil {
		return nil
	}
	return s.server.Handler
}
