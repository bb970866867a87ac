package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/teople1/teople1/internal/server/config"
	"github.com/teople1/teople1/internal/server/db"
	"github.com/teople1/teople1/internal/server/host"
)

// App wires the config, persistence, route host and HTTP transport.
type App struct {
	cfg          config.ServerConfig
	logger       *slog.Logger
	store        db.Store
	host         *host.Host
	httpServer   *http.Server
	shutdownWait time.Duration
}

// New constructs the daemon application.
func New(cfg config.ServerConfig, logger *slog.Logger, store db.Store, h *host.Host, handler http.Handler) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if h == nil {
		return nil, fmt.Errorf("route host must not be nil")
	}
	if handler == nil {
		handler = http.NewServeMux()
	}

	httpServer := &http.Server{
		Addr:        cfg.APIListenAddr,
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		// No write timeout: event streams stay open for the client's lifetime.
		IdleTimeout: 120 * time.Second,
	}

	return &App{
		cfg:          cfg,
		logger:       logger,
		store:        store,
		host:         h,
		httpServer:   httpServer,
		shutdownWait: 15 * time.Second,
	}, nil
}

// Run performs the route-extension phase and serves HTTP until ctx is
// cancelled. A failing first reload aborts startup.
func (a *App) Run(ctx context.Context) error {
	if err := a.host.Reload(ctx); err != nil {
		return fmt.Errorf("initial route registration: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("api server listening", "addr", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.shutdown()
		return ctx.Err()
	case err := <-errCh:
		a.shutdown()
		return err
	}
}

func (a *App) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownWait)
	defer cancel()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http shutdown", "error", err)
	}
	if a.store != nil {
		if err := a.store.Close(shutdownCtx); err != nil {
			a.logger.Error("store close", "error", err)
		}
	}
}

// Host exposes the route host.
func (a *App) Host() *host.Host { return a.host }
