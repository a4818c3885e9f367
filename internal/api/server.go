// Package api serves the benchmark control surface over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/wafbench/wbt/pkg/config"
	"github.com/wafbench/wbt/pkg/duration"
	"github.com/wafbench/wbt/pkg/orchestrator"
	"github.com/wafbench/wbt/pkg/report"
)

// Server exposes run control, configuration, reports and metrics.
type Server struct {
	orch    *orchestrator.Orchestrator
	store   *config.Store
	reports *report.Generator
	metrics http.Handler
	logFile string
	logger  *slog.Logger
	router  *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a custom structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithLogFile enables the log tail endpoint over a JSON-lines log file.
func WithLogFile(path string) Option {
	return func(s *Server) { s.logFile = path }
}

// New builds the server and its routes.
func New(orch *orchestrator.Orchestrator, store *config.Store, reports *report.Generator, opts ...Option) *Server {
	s := &Server{
		orch:    orch,
		store:   store,
		reports: reports,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.root).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/benchmark/start", s.startBenchmark).Methods(http.MethodPost)
	v1.HandleFunc("/status", s.status).Methods(http.MethodGet)
	v1.HandleFunc("/stats/latest", s.latestStats).Methods(http.MethodGet)
	v1.HandleFunc("/config/target", s.getTarget).Methods(http.MethodGet)
	v1.HandleFunc("/config/target", s.updateTarget).Methods(http.MethodPost)
	v1.HandleFunc("/config/waf", s.getProtection).Methods(http.MethodGet)
	v1.HandleFunc("/config/waf", s.updateProtection).Methods(http.MethodPost)
	v1.HandleFunc("/config/waf/health", s.protectionHealth).Methods(http.MethodGet)
	v1.HandleFunc("/reports", s.listReports).Methods(http.MethodGet)
	v1.HandleFunc("/reports/{name}", s.downloadReport).Methods(http.MethodGet)
	v1.HandleFunc("/logs", s.tailLogs).Methods(http.MethodGet)
	return r
}

// Handler returns the routed handler wrapped in a permissive CORS policy.
func (s *Server) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(s.router)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  duration.ServerRead,
		WriteTimeout: duration.ServerWrite,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("control surface listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), duration.Shutdown)
		defer cancel()
		s.logger.Info("control surface shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
