// Package api exposes the rule collection over HTTP: CRUD on rules,
// script compilation, and exchange-document export/import. All
// handlers delegate to the engine packages; the server owns no rule
// logic of its own.
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grimm.is/stockade/internal/clock"
	"grimm.is/stockade/internal/logging"
	"grimm.is/stockade/internal/metrics"
	"grimm.is/stockade/internal/store"
)

// maxImportBody bounds import payloads. Exchange documents for even
// very large rule sets stay well under this.
const maxImportBody = 10 << 20

// ServerOptions configures a Server.
type ServerOptions struct {
	Store  *store.Store
	Clock  clock.Clock
	Logger *logging.Logger
}

// Server is the rule service HTTP API.
type Server struct {
	store  *store.Store
	clk    clock.Clock
	logger *logging.Logger
	mux    *http.ServeMux
}

// NewServer creates an API server around a rule store.
func NewServer(opts ServerOptions) (*Server, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("api: a rule store is required")
	}
	if opts.Clock == nil {
		opts.Clock = &clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.WithComponent("api")
	}

	s := &Server{
		store:  opts.Store,
		clk:    opts.Clock,
		logger: opts.Logger,
	}
	s.initRoutes()
	return s, nil
}

func (s *Server) initRoutes() {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/rules", s.handleListRules)
	mux.HandleFunc("POST /api/rules", s.handleCreateRule)
	mux.HandleFunc("GET /api/rules/{id}", s.handleGetRule)
	mux.HandleFunc("PUT /api/rules/{id}", s.handleUpdateRule)
	mux.HandleFunc("POST /api/rules/{id}/toggle", s.handleToggleRule)
	mux.HandleFunc("DELETE /api/rules/{id}", s.handleDeleteRule)

	mux.HandleFunc("GET /api/export/script", s.handleExportScript)
	mux.HandleFunc("GET /api/export/rules", s.handleExportRules)
	mux.HandleFunc("POST /api/import", s.handleImport)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.mux = mux
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.loggingMiddleware(s.mux)
}

// Start runs the server on addr until the listener fails.
func (s *Server) Start(addr string) error {
	s.logger.Info("API server listening", "addr", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"rules":  s.store.Count(),
	})
}

// statusRecorder captures the response code for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.clk.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := s.clk.Since(start)
		pattern := r.Pattern
		if pattern == "" {
			pattern = r.URL.Path
		}

		m := metrics.Get()
		m.APIRequests.WithLabelValues(r.Method, pattern, strconv.Itoa(rec.status)).Inc()
		m.APILatency.WithLabelValues(r.Method, pattern).Observe(elapsed.Seconds())
		m.RulesStored.Set(float64(s.store.Count()))

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", elapsed,
		)
	})
}
