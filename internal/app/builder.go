package app

import (
	"context"
	"fmt"

	"darvas/internal/config"
	"darvas/internal/config/loader"
	"darvas/internal/ingest"
	"darvas/internal/sim"
	"darvas/internal/store/history"
	"darvas/internal/store/state"
	httpserver "darvas/internal/transport/http"
)

// AppBuilder assembles the application's dependency graph.
type AppBuilder struct {
	cfg *config.Config
}

func NewAppBuilder(cfg *config.Config) *AppBuilder {
	return &AppBuilder{cfg: cfg}
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg

	historyStore, err := history.NewStore(cfg.App.HistoryPath)
	if err != nil {
		return nil, fmt.Errorf("opening history store: %w", err)
	}

	stateStore, err := state.NewStore(cfg.App.StatePath, cfg.Strategy.NormalizedWalletMode())
	if err != nil {
		_ = historyStore.Close()
		return nil, fmt.Errorf("opening state store: %w", err)
	}

	registry, err := loader.NewRegistry(cfg.App.ProfilesPath)
	if err != nil {
		_ = stateStore.Close()
		_ = historyStore.Close()
		return nil, fmt.Errorf("loading profiles: %w", err)
	}

	simulator := sim.New(historyStore, stateStore)
	svc := sim.NewService(cfg, registry, stateStore, simulator)

	server, err := httpserver.NewServer(httpserver.Config{
		Addr:     cfg.App.HTTPAddr,
		Service:  svc,
		States:   stateStore,
		Profiles: registry,
	})
	if err != nil {
		_ = stateStore.Close()
		_ = historyStore.Close()
		return nil, fmt.Errorf("building http server: %w", err)
	}

	return &App{
		cfg:     cfg,
		history: historyStore,
		states:  stateStore,
		loader:  ingest.NewLoader(historyStore),
		svc:     svc,
		server:  server,
	}, nil
}
