// Package server runs the firetail sidecar: a capturing reverse proxy in
// front of an upstream application and an admin listener.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/FireTail-io/firetail-go-lib/pkg/config"
	"github.com/FireTail-io/firetail-go-lib/pkg/firetail"
	"github.com/FireTail-io/firetail-go-lib/pkg/proxy"
	"github.com/FireTail-io/firetail-go-lib/pkg/proxy/middleware"
	fttls "github.com/FireTail-io/firetail-go-lib/pkg/security/tls"
	"github.com/FireTail-io/firetail-go-lib/pkg/telemetry/health"
	"github.com/FireTail-io/firetail-go-lib/pkg/telemetry/tracing"
)

// BuildInfo is reported by the version endpoint.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Server hosts the capturing proxy and the admin endpoints.
type Server struct {
	cfg      *config.Config
	pipeline *firetail.Pipeline
	logger   *slog.Logger
	build    BuildInfo

	proxyServer *http.Server
	adminServer *http.Server
	proxyLn     net.Listener
	adminLn     net.Listener

	ready        chan struct{}
	shutdownOnce sync.Once
	shutdownErr  error
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer prepares a server for cfg. The pipeline is not owned: callers
// close it after Start returns so that the buffer tail is shipped once no
// more exchanges can arrive.
func NewServer(cfg *config.Config, p *firetail.Pipeline, build BuildInfo) (*Server, error) {
	if cfg == nil || p == nil {
		return nil, errors.New("server requires a config and a pipeline")
	}
	if cfg.Server.Upstream == "" {
		return nil, config.ValidationError{Errors: []config.FieldError{{
			Field:   "server.upstream",
			Message: "upstream URL is required to run the proxy",
		}}}
	}
	if build.Version == "" {
		build.Version = p.Version()
	}
	return &Server{
		cfg:      cfg,
		pipeline: p,
		logger:   p.Logger().With("component", "server"),
		build:    build,
		ready:    make(chan struct{}),
	}, nil
}

// Handler returns the proxy handler chain:
// Recovery, RequestID, Logging, capture, tracing, upstream.
func (s *Server) Handler() (http.Handler, error) {
	upstream, err := proxy.NewUpstream(proxy.Config{
		Target:        s.cfg.Server.Upstream,
		FlushInterval: -1,
	}, s.pipeline.Logger())
	if err != nil {
		return nil, err
	}

	logger := s.pipeline.Logger().With("component", "proxy")
	return middleware.Chain(upstream,
		middleware.RecoveryMiddleware(logger),
		middleware.RequestIDMiddleware,
		middleware.LoggingMiddleware(logger),
		s.pipeline.Middleware(),
		tracing.HTTPMiddleware(s.pipeline.Tracer()),
	), nil
}

// AdminHandler serves health, readiness, version, metrics and a manual
// flush endpoint.
func (s *Server) AdminHandler() http.Handler {
	mux := http.NewServeMux()
	telemetry := s.cfg.Telemetry

	if telemetry.Health.Enabled {
		s.pipeline.Health().Register(mux, telemetry.Health, health.VersionInfo{
			Version:   s.build.Version,
			Commit:    s.build.Commit,
			BuildTime: s.build.BuildTime,
		})
	}
	if telemetry.Metrics.Enabled {
		mux.Handle(telemetry.Metrics.Path, s.pipeline.Metrics().Handler())
	}
	mux.HandleFunc("POST /flush", s.handleFlush)
	return mux
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.pipeline.Flush(); err != nil {
		s.logger.WarnContext(r.Context(), "manual flush dropped", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "dropped", "error": err.Error()})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "flushed"})
}

// Start listens on both addresses and blocks until ctx is cancelled or a
// listener fails, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	if err := s.listen(ctx); err != nil {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	}

	sc := s.cfg.Server
	errChan := make(chan error, 2)
	serve := func(name string, srv *http.Server, ln net.Listener) {
		var err error
		if srv.TLSConfig != nil {
			err = srv.ServeTLS(ln, "", "")
		} else {
			err = srv.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("%s server error: %w", name, err)
		}
	}
	go serve("proxy", s.proxyServer, s.proxyLn)
	go serve("admin", s.adminServer, s.adminLn)

	s.logger.Info("starting proxy server",
		"address", s.proxyLn.Addr().String(),
		"admin_address", s.adminLn.Addr().String(),
		"upstream", sc.Upstream,
		"tls", sc.TLS.Enabled,
	)
	close(s.ready)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		_ = s.Shutdown(context.Background())
		return err
	}
}

// listen builds both servers and binds their addresses. With TLS enabled
// the certificate pair is loaded first so a bad pair fails before binding.
func (s *Server) listen(ctx context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	sc := s.cfg.Server
	s.proxyServer = &http.Server{
		Handler:        handler,
		ReadTimeout:    sc.ReadTimeout,
		WriteTimeout:   sc.WriteTimeout,
		IdleTimeout:    sc.IdleTimeout,
		MaxHeaderBytes: sc.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	if sc.TLS.Enabled {
		tlsCfg, reloader, err := fttls.NewServerConfig(sc.TLS, s.pipeline.Logger())
		if err != nil {
			return fmt.Errorf("failed to configure TLS: %w", err)
		}
		if err := reloader.Start(ctx); err != nil {
			return fmt.Errorf("failed to load TLS certificate: %w", err)
		}
		s.proxyServer.TLSConfig = tlsCfg
	}
	s.adminServer = &http.Server{
		Handler:     s.AdminHandler(),
		ReadTimeout: sc.ReadTimeout,
		IdleTimeout: sc.IdleTimeout,
	}

	s.proxyLn, err = net.Listen("tcp", sc.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", sc.ListenAddress, err)
	}
	s.adminLn, err = net.Listen("tcp", sc.AdminAddress)
	if err != nil {
		_ = s.proxyLn.Close()
		return fmt.Errorf("failed to listen on %s: %w", sc.AdminAddress, err)
	}
	return nil
}

// Ready is closed once both listeners accept connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the proxy listener address once Ready is closed.
func (s *Server) Addr() net.Addr {
	return s.proxyLn.Addr()
}

// AdminAddr returns the admin listener address once Ready is closed.
func (s *Server) AdminAddr() net.Addr {
	return s.adminLn.Addr()
}

// Shutdown stops both listeners, waiting up to the configured shutdown
// timeout for in-flight exchanges.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.mu.RLock()
		running := s.isRunning
		s.mu.RUnlock()
		if !running {
			return
		}

		timeout := s.cfg.Server.ShutdownTimeout
		s.logger.Info("initiating graceful shutdown", "timeout", timeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var errs []error
		if s.proxyServer != nil {
			if err := s.proxyServer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("proxy shutdown: %w", err))
			}
		}
		if s.adminServer != nil {
			if err := s.adminServer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("admin shutdown: %w", err))
			}
		}
		s.shutdownErr = errors.Join(errs...)
		if s.shutdownErr != nil {
			s.logger.Error("error during server shutdown", "error", s.shutdownErr)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("proxy server stopped")
	})
	return s.shutdownErr
}

// IsRunning reports whether Start is active.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
