package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"darvas/internal/app"
	"darvas/internal/config"
	"darvas/internal/logger"
	"darvas/internal/sim"
)

func main() {
	loadCSV := flag.String("load-csv", "", "load wide CSV bar files from this directory, then exit")
	loadJSON := flag.String("load-json", "", "load a provider JSON export, then exit")
	runProfile := flag.String("run", "", "submit a run for this profile on startup")
	flag.Parse()

	cfgPath := os.Getenv("DARVAS_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		log.Fatalf("initializing log file: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("config loaded (env=%s, profiles=%s)", cfg.App.Env, cfg.App.ProfilesPath)

	application, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("initializing app: %v", err)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *loadCSV != "" || *loadJSON != "" {
		if err := ingestData(ctx, application, *loadCSV, *loadJSON); err != nil {
			log.Fatalf("loading bars: %v", err)
		}
		return
	}

	if *runProfile != "" {
		id, err := application.RunService().StartRun(ctx, sim.StartRunRequest{Profile: *runProfile})
		if err != nil {
			log.Fatalf("submitting run: %v", err)
		}
		logger.Infof("run %s submitted", id)
	}

	if err := application.Run(ctx); err != nil {
		log.Fatalf("running: %v", err)
	}
}

func ingestData(ctx context.Context, application *app.App, csvDir, jsonPath string) error {
	if csvDir != "" {
		if _, err := application.Loader().LoadCSVDir(ctx, csvDir); err != nil {
			return err
		}
	}
	if jsonPath != "" {
		if _, err := application.Loader().LoadJSON(ctx, jsonPath); err != nil {
			return err
		}
	}
	return nil
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}
