// Package cli provides the start-up and shutdown steps shared by
// cmd/budget, cmd/budget-api and cmd/budget-worker.
package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"budget/internal/config"
	"budget/internal/log"
)

// ShutdownTimeout bounds how long servers get to drain.
const ShutdownTimeout = 30 * time.Second

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and runs Validate plus every
// extra check. It exits the process on failure.
func LoadAndValidateConfig(extra ...func(*config.Config) error) (*config.Config, *log.Logger) {
	cfg := config.Load()
	logger := log.Init(log.ComponentApp, cfg.LogLevel, cfg.LogFormat)

	checks := append([]func(*config.Config) error{(*config.Config).Validate}, extra...)
	for _, check := range checks {
		if err := check(cfg); err != nil {
			logger.Error("Configuration validation failed", log.FieldError, err)
			os.Exit(1)
		}
	}
	return cfg, logger
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Server is what ServeUntilDone drives; *http.Server and the app servers
// satisfy it.
type Server interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// ServeUntilDone runs srv until ctx is cancelled, then shuts it down within
// timeout. A clean shutdown returns nil.
func ServeUntilDone(ctx context.Context, srv Server, timeout time.Duration, logger *log.Logger) error {
	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
			return
		}
		errc <- nil
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received, draining connections", "timeout", timeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}
