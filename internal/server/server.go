// Package server wires the static file handler and the landing page into an
// HTTP server and runs it.
package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/containerd/log"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/landing-server/app/internal/config"
	"github.com/landing-server/app/internal/handlers"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Server serves the static root and the landing page for one process run.
type Server struct {
	cfg      config.Config
	logger   *log.Entry
	instance uuid.UUID
	started  time.Time
	router   *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sends the server's log output to entry instead of the logger
// carried by the context.
func WithLogger(entry *log.Entry) Option {
	return func(s *Server) {
		s.logger = entry
	}
}

// New validates cfg and builds the routes. Nothing is bound until Listen.
func New(cfg config.Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	s := &Server{
		cfg:      cfg,
		instance: uuid.New(),
		started:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s, nil
}

// Instance identifies this server; every process start gets a new one.
func (s *Server) Instance() uuid.UUID {
	return s.instance
}

// Handler returns the router, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.SkipClean(true)

	// Static files win over every other route, "/" included.
	static := handlers.NewStaticFiles(s.cfg.PublicDir)
	r.MatcherFunc(func(req *http.Request, _ *mux.RouteMatch) bool {
		return static.Exists(req)
	}).Handler(static)

	r.Methods(http.MethodGet, http.MethodHead).Path("/").Handler(s.landing())

	r.NotFoundHandler = http.HandlerFunc(http.NotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(http.NotFound)
	return r
}

func (s *Server) landing() http.Handler {
	if s.cfg.Landing == config.VariantFile {
		return handlers.LandingFile(s.cfg.LandingFile)
	}
	rd := handlers.NewRenderer(s.cfg.ViewsDir, s.cfg.CacheViews)
	return handlers.LandingTemplate(rd, s.cfg.LandingTemplate, s.started)
}

// Listen binds the configured port on all interfaces.
func (s *Server) Listen() (net.Listener, error) {
	addr := ":" + strconv.Itoa(s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to listen on %s", addr)
	}
	return ln, nil
}

// Serve announces ln and serves on it until ctx is cancelled, then shuts
// down gracefully. Serve closes ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	port := listenerPort(ln)
	s.log(ctx).WithFields(log.Fields{
		"port":     port,
		"instance": s.instance.String(),
	}).Infof("The server has started at port %d", port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "http server stopped")
	case <-ctx.Done():
	}

	s.log(ctx).Debug("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "failed to shut down http server")
	}
	return nil
}

// ListenAndServe binds the configured port and serves until ctx is
// cancelled. A bind failure is returned immediately.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) log(ctx context.Context) *log.Entry {
	if s.logger != nil {
		return s.logger
	}
	return log.G(ctx)
}

func listenerPort(ln net.Listener) int {
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	_, port, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		return 0
	}
	p, _ := strconv.Atoi(port)
	return p
}
