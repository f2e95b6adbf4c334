// Package app wires the stores, profile registry, simulator and HTTP API
// into one runnable application.
package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"darvas/internal/config"
	"darvas/internal/ingest"
	"darvas/internal/logger"
	"darvas/internal/sim"
	httpserver "darvas/internal/transport/http"
)

type App struct {
	cfg     *config.Config
	history historyStore
	states  stateStore
	loader  *ingest.Loader
	svc     *sim.Service
	server  *httpserver.Server
}

type historyStore interface {
	Close() error
}

type stateStore interface {
	Close() error
}

// NewApp builds the application from config (does not start anything).
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run serves the HTTP API until ctx is canceled. Background runs submitted
// through the API share the same lifetime.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	a.svc.SetContext(ctx)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Infof("http api listening on %s", a.cfg.App.HTTPAddr)
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	return group.Wait()
}

// RunService exposes the run service for command-line submissions.
func (a *App) RunService() *sim.Service { return a.svc }

// Loader exposes the bar loader for command-line ingestion.
func (a *App) Loader() *ingest.Loader { return a.loader }

// Close releases the stores.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.states != nil {
		_ = a.states.Close()
	}
	if a.history != nil {
		_ = a.history.Close()
	}
}
