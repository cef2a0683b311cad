package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/ddd/internal/config"
	ferrors "git.home.luguber.info/inful/ddd/internal/foundation/errors"
	"git.home.luguber.info/inful/ddd/internal/lock"
	"git.home.luguber.info/inful/ddd/internal/logfields"
	"git.home.luguber.info/inful/ddd/internal/metrics"
)

// HTTPServer serves /metrics, /healthz and /status for the daemon.
type HTTPServer struct {
	addr     string
	layout   config.Layout
	lock     *lock.Manager
	registry *prom.Registry
	started  time.Time
	logger   *slog.Logger

	server *http.Server
	ln     net.Listener
}

func NewHTTPServer(addr string, layout config.Layout, lm *lock.Manager, reg *prom.Registry, logger *slog.Logger) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPServer{addr: addr, layout: layout, lock: lm, registry: reg, started: time.Now(), logger: logger}
}

// Handler returns the routing for the server.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.HTTPHandler(s.registry))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	return mux
}

// Start binds the listener before serving so address errors surface here.
func (s *HTTPServer) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryDaemon, "bind metrics listener").
			WithContext("addr", s.addr).
			Build()
	}
	s.ln = ln
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", logfields.Error(err))
		}
	}()
	s.logger.Info("HTTP server started", slog.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address once started.
func (s *HTTPServer) Addr() string {
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

// Stop gracefully shuts the server down.
func (s *HTTPServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryDaemon, "http server shutdown").Build()
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
	})
}

func (s *HTTPServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	st, err := CurrentStatus(s.layout, s.lock)
	if err != nil {
		s.logger.Warn("Status lookup failed", logfields.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
