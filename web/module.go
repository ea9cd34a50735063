// Package web is the agent's HTTP server. Other modules add routes through
// the http_router capability.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/skekre98/edgeagent/config"
	"github.com/skekre98/edgeagent/core"
)

const (
	Name      = "web"
	CapRouter = "http_router"
)

// Server is the web module. Routes may be added while it is serving.
type Server struct {
	logger *slog.Logger
	cfg    config.ServerConfig
	opts   Options

	mu     sync.RWMutex
	engine *gin.Engine

	srv  *http.Server
	addr net.Addr
	done chan struct{}
}

// New returns an unstarted server.
func New(logger *slog.Logger, cfg config.ServerConfig, opts ...Option) *Server {
	var options Options
	for _, o := range opts {
		o(&options)
	}
	return &Server{logger: logger.With("module", Name), cfg: cfg, opts: options}
}

// Component wires s into the runtime.
func (s *Server) Component() core.Component {
	return core.Component{
		Load:   s.load,
		Unload: s.unload,
		Start:  s.start,
		Stop:   s.stop,
	}
}

func (s *Server) load(l *core.Linker) error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(RequestID())
	r.Use(RecoveryProblem(s.logger))
	r.Use(AccessLog(s.logger))
	r.Use(s.opts.Middlewares...)
	s.engine = r

	return l.Export(CapRouter, RouteFunc(s.Route))
}

func (s *Server) unload(context.Context) error {
	s.mu.Lock()
	s.engine = nil
	s.mu.Unlock()
	return nil
}

// Route registers routes under prefix.
func (s *Server) Route(prefix string, register func(r Router)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		s.logger.Warn("route registered after unload", "prefix", prefix)
		return
	}
	var r Router = s.engine
	if prefix != "" && prefix != "/" {
		r = s.engine.Group(prefix)
	}
	register(r)
}

// ServeHTTP serves from the engine under a read lock.
func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.engine == nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	s.engine.ServeHTTP(w, req)
}

// Addr returns the bound listen address once started.
func (s *Server) Addr() net.Addr { return s.addr }

func (s *Server) start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	s.addr = ln.Addr()
	s.srv = &http.Server{
		Handler:      s,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		s.logger.Info("http server starting", "addr", s.addr.String(), "tls", s.cfg.TLS.Enabled)
		var err error
		if s.cfg.TLS.Enabled {
			err = s.srv.ServeTLS(ln, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.srv.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()
	return nil
}

func (s *Server) stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	<-s.done
	return nil
}
