package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cvforge/internal/config"
	"cvforge/internal/observability"

	"golang.org/x/sync/errgroup"
)

// Start runs the server until ctx is cancelled or SIGINT/SIGTERM arrives,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	om, err := s.initializeObservability()
	if err != nil {
		return err
	}
	defer s.shutdownObservability(om)

	if err := om.ObserveSessions(s.Sessions.Len); err != nil {
		s.Logger.LogError(err, "Failed to register session gauge")
	}

	if err := s.startKeyRotation(); err != nil {
		return err
	}
	defer s.stopKeyRotation()

	httpServer := s.setupHTTPServer(om)
	s.displayServerInfo()

	return s.serve(ctx, httpServer)
}

// Handler returns the routed and instrumented handler. om may be nil.
func (s *Server) Handler(om *observability.ObservabilityManager) http.Handler {
	return om.HTTPMiddleware()(s.setupRoutes(om))
}

func (s *Server) initializeObservability() (*observability.ObservabilityManager, error) {
	obsConfig := observability.GetObservabilityConfig(s.AppConfig, s.Version)
	om, err := observability.NewObservabilityManager(obsConfig, s.AppConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	return om, nil
}

func (s *Server) shutdownObservability(om *observability.ObservabilityManager) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := om.Shutdown(ctx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown observability")
	}
}

func (s *Server) setupHTTPServer(om *observability.ObservabilityManager) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort(s.Host, s.Port),
		Handler:           s.Handler(om),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.ReadTimeout,
		WriteTimeout:      s.WriteTimeout,
		IdleTimeout:       s.IdleTimeout,
	}
}

// startKeyRotation starts the Vault API key watcher when configured.
func (s *Server) startKeyRotation() error {
	cfg := s.AppConfig
	if cfg == nil || !cfg.Server.KeyRotation.Enabled {
		return nil
	}
	if !cfg.Vault.Enabled || cfg.Vault.Secrets.APIKeys == "" {
		s.Logger.Warn("Key rotation requested but Vault or vault.secrets.apiKeys is not configured")
		return nil
	}

	client, err := config.NewVaultClient(cfg.Vault, s.Logger)
	if err != nil {
		return fmt.Errorf("failed to create vault client for key rotation: %w", err)
	}

	s.keyWatcher = NewVaultWatcher(client, cfg.Vault.Secrets.APIKeys,
		cfg.Server.KeyRotation.PollInterval, s.SetAPIKeys, s.Logger)
	return s.keyWatcher.Start()
}

func (s *Server) stopKeyRotation() {
	if s.keyWatcher == nil {
		return
	}
	if err := s.keyWatcher.Stop(); err != nil {
		s.Logger.LogError(err, "Failed to stop key rotation watcher")
	}
}

// serve runs the listener and the shutdown trigger in one errgroup so a
// listener failure also ends the wait for a signal.
func (s *Server) serve(ctx context.Context, server *http.Server) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.Logger.Info("Starting HTTP server", "address", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.Logger.Info("Starting graceful shutdown")
		return s.performGracefulShutdown(server)
	})

	return g.Wait()
}

// performGracefulShutdown handles the graceful shutdown process
func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.RateLimiter != nil {
		s.RateLimiter.Close()
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}
