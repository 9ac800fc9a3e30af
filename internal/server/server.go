// Package server is the optional HTTP status endpoint of a transfer run.
//
// Routes:
//
//	GET /healthz       health checks (staging dir, ...)
//	GET /healthz/live  liveness
//	GET /progress      live session counters
//	GET /metrics       Prometheus exposition
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/3leaps/goferry/internal/server/handlers"
	"github.com/3leaps/goferry/internal/server/middleware"
	"github.com/3leaps/goferry/pkg/transfer"
)

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 5 * time.Second

// Options wires the server to a run.
type Options struct {
	// Progress backs /progress. Nil always reports an idle server.
	Progress handlers.SnapshotSource

	// Health backs /healthz. Nil reports healthy with no checks.
	Health *handlers.HealthManager

	// Gatherer backs /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer

	// ShutdownTimeout bounds graceful shutdown. Zero uses the default.
	ShutdownTimeout time.Duration

	Log *zap.Logger
}

// Server serves status for one process.
type Server struct {
	addr   string
	router chi.Router
	opts   Options
}

type idle struct{}

func (idle) Snapshot() (transfer.Snapshot, bool) { return transfer.Snapshot{}, false }

// New builds a server listening on addr once started.
func New(addr string, opts Options) *Server {
	if opts.Progress == nil {
		opts.Progress = idle{}
	}
	if opts.Health == nil {
		opts.Health = handlers.NewHealthManager("")
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	s := &Server{addr: addr, opts: opts}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		middleware.WriteError(w, req, http.StatusNotFound, "NOT_FOUND", "no such endpoint", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		middleware.WriteError(w, req, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	r.Get("/healthz", s.opts.Health.HealthHandler)
	r.Get("/healthz/live", s.opts.Health.LivenessHandler)
	r.Get("/progress", handlers.ProgressHandler(s.opts.Progress))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	return r
}

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.addr }

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Serve answers on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.opts.Log.Info("Status server listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
