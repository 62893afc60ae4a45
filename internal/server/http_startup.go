package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"atscore/internal/ats"
	"atscore/internal/config"
)

// Start runs the HTTP server until ctx is cancelled or SIGINT/SIGTERM arrives.
func (s *Server) Start(ctx context.Context) error {
	httpServer := s.setupHTTPServer()

	if err := s.configureTLS(httpServer); err != nil {
		return err
	}

	if err := s.startWatchers(); err != nil {
		return err
	}
	defer s.stopWatchers()

	s.displayServerInfo()

	return s.startWithGracefulShutdown(ctx, httpServer)
}

// setupHTTPServer creates and configures the HTTP server
func (s *Server) setupHTTPServer() *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.Host, s.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}
}

// startWatchers starts the scoring tables and API key watchers that are configured.
func (s *Server) startWatchers() error {
	if s.AppConfig == nil {
		return nil
	}

	scoring := s.AppConfig.Scoring
	if scoring.Watch && scoring.TablesFile != "" {
		s.tablesWatcher = NewTablesWatcher(scoring.TablesFile, scoring.DebounceDelay, s.reloadTables, s.Logger)
		if err := s.tablesWatcher.Start(); err != nil {
			return fmt.Errorf("failed to start tables watcher: %w", err)
		}
	}

	vault := s.AppConfig.Vault
	if vault.Enabled && vault.Watch.Enabled && vault.Secrets.APIKeys != "" {
		client, err := config.NewVaultClient(vault, s.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize Vault client: %w", err)
		}
		s.vaultWatcher = NewVaultWatcher(client, vault.Secrets.APIKeys, vault.Watch.PollInterval, s.rotateAPIKeys, s.Logger)
		if err := s.vaultWatcher.Start(); err != nil {
			return fmt.Errorf("failed to start vault watcher: %w", err)
		}
	}
	return nil
}

func (s *Server) stopWatchers() {
	if s.tablesWatcher != nil {
		if err := s.tablesWatcher.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop tables watcher")
		}
	}
	if s.vaultWatcher != nil {
		if err := s.vaultWatcher.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop vault watcher")
		}
	}
}

// reloadTables rebuilds the scorer from the tables file. On failure the
// current scorer stays in place.
func (s *Server) reloadTables() {
	ctx := context.Background()
	path := s.tablesFile()

	tables, err := ats.LoadTables(path)
	if err == nil {
		var scorer *ats.Scorer
		if scorer, err = ats.NewScorer(tables); err == nil {
			s.processor.SetScorer(scorer)
		}
	}

	s.om.GetMetrics().RecordTablesReload(ctx, err)
	if err != nil {
		s.Logger.LogError(err, "Failed to reload scoring tables, keeping current tables", "file", path)
		return
	}
	s.Logger.Info("Scoring tables reloaded", "file", path)
}

// rotateAPIKeys replaces the accepted API keys. An empty or failed fetch
// keeps the current keys.
func (s *Server) rotateAPIKeys(keys []string, err error) {
	if err != nil {
		return
	}
	if len(keys) == 0 {
		s.Logger.Warn("Vault returned no API keys, keeping current keys")
		return
	}
	count := s.APIKeys.Replace(keys)
	s.om.GetMetrics().RecordAPIKeyRotation(context.Background())
	s.Logger.Info("API keys rotated from Vault", "count", count)
}

// startWithGracefulShutdown starts the HTTP server and handles graceful shutdown
func (s *Server) startWithGracefulShutdown(ctx context.Context, server *http.Server) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)

	go func() {
		s.Logger.Info("Starting HTTP server",
			"address", server.Addr,
			"tls_enabled", server.TLSConfig != nil)

		var err error
		if server.TLSConfig != nil {
			// Certificates are already loaded in the TLS config.
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		s.Logger.Info("Received shutdown signal, starting graceful shutdown")
		return s.performGracefulShutdown(server)
	}
}

// performGracefulShutdown handles the graceful shutdown process
func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.cleanupRateLimiter()

	s.Logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

// cleanupRateLimiter cleans up the rate limiter resources
func (s *Server) cleanupRateLimiter() {
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
		s.Logger.Info("Rate limiter cleaned up")
	}
}
