package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/artpar/villagelookup/internal/core/validation"
	"github.com/artpar/villagelookup/internal/shell/api"
	"github.com/artpar/villagelookup/internal/shell/config"
	"github.com/artpar/villagelookup/internal/shell/metrics"
	"github.com/artpar/villagelookup/internal/shell/relay"
	"github.com/artpar/villagelookup/internal/shell/store"
	"github.com/artpar/villagelookup/internal/shell/validator"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitDatabaseError   = 2
	ExitHTTPServerError = 4
)

// =============================================================================
// Server
// =============================================================================

// Server represents the Village Lookup application server.
type Server struct {
	config     *config.Config
	httpServer *http.Server
	store      store.Store
	logger     *slog.Logger
}

// NewServer opens the reference store, loads the township snapshot and
// builds the HTTP server.
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, &ServerError{Op: "NewServer", Err: err, ExitCode: ExitConfigError}
	}

	format, err := validation.ParseRejectionFormat(cfg.Tracker.RejectionFormat)
	if err != nil {
		return nil, &ServerError{Op: "NewServer", Err: err, ExitCode: ExitConfigError}
	}

	s, err := store.Open(ctx, cfg.Database.Store())
	if err != nil {
		return nil, &ServerError{Op: "NewServer", Err: err, ExitCode: ExitDatabaseError}
	}

	// The listing is captured once and served unchanged until restart.
	townships, err := store.LoadTownshipSnapshot(ctx, s)
	if err != nil {
		s.Close()
		return nil, &ServerError{Op: "LoadTownshipSnapshot", Err: err, ExitCode: ExitDatabaseError}
	}
	logger.Info("township snapshot loaded", "townships", townships.Len())

	m := metrics.New()

	v := validator.New(s, catalog, validator.Config{
		MaxConcurrentChecks: cfg.Tracker.MaxConcurrentChecks,
		QueryTimeout:        cfg.Database.QueryTimeout,
	}, validator.WithMetrics(m), validator.WithLogger(logger))

	upstream := relay.NewClient(relay.Config{
		BaseURL: cfg.Upstream.BaseURL,
		Timeout: cfg.Upstream.Timeout,
	}, m)

	handler := api.SetupAPI(api.APIConfig{
		Validator:       v,
		Upstream:        upstream,
		Store:           s,
		Townships:       townships,
		RejectionFormat: format,
		Metrics:         m,
		Logger:          logger,
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		Cache:           api.NewLookupCache(cfg.Tracker.CacheTTL),
		Version:         Version,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("validation configured",
		"program", catalog.Program,
		"rejection_format", string(format),
		"upstream", cfg.Upstream.BaseURL,
		"max_concurrent_checks", cfg.Tracker.MaxConcurrentChecks,
	)

	return &Server{
		config:     cfg,
		httpServer: httpServer,
		store:      s,
		logger:     logger,
	}, nil
}

// Start starts the server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server",
			"address", s.config.Server.Address())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		s.store.Close()
		return &ServerError{
			Op:       "Start",
			Err:      err,
			ExitCode: ExitHTTPServerError,
		}
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := s.store.Close(); err != nil {
		s.logger.Error("database close error", "error", err)
	}

	s.logger.Info("shutdown complete")
	return nil
}

// =============================================================================
// Server Error
// =============================================================================

// ServerError represents an error during server operation.
type ServerError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *ServerError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ServerError) Unwrap() error {
	return e.Err
}
