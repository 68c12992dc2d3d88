package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/trainingpulse/trainingpulse/server/internal/alerts"
	"github.com/trainingpulse/trainingpulse/server/internal/api"
	"github.com/trainingpulse/trainingpulse/server/internal/auth"
	"github.com/trainingpulse/trainingpulse/server/internal/config"
	"github.com/trainingpulse/trainingpulse/server/internal/receiver"
	"github.com/trainingpulse/trainingpulse/server/internal/store"
	"github.com/trainingpulse/trainingpulse/server/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	envFile := flag.String("env-file", "", "load environment variables (API keys, webhook URLs) from this file first")
	uiDir := flag.String("ui-dir", "", "serve the dashboard static files from this directory; leave empty to disable")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			slog.Error("failed to load env file", "path", *envFile, "err", err)
			os.Exit(1)
		}
	}

	slog.Info("trainingpulse-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"report_ttl", cfg.Server.Report.TTL,
		"history", cfg.Server.Storage.Enabled(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Latest report per workspace, with background TTL eviction.
	st := store.New(cfg.Server.Report.TTL)
	go st.Run(ctx)

	// Optional report history. The interface values stay nil when disabled.
	var (
		recorder receiver.Recorder
		reader   api.HistoryReader
	)
	if cfg.Server.Storage.Enabled() {
		hist, err := store.OpenHistory(cfg.Server.Storage.Path, cfg.Server.Storage.Retention)
		if err != nil {
			slog.Error("failed to open history", "path", cfg.Server.Storage.Path, "err", err)
			os.Exit(1)
		}
		defer hist.Close()
		go hist.Run(ctx)
		recorder, reader = hist, hist
		slog.Info("report history enabled",
			"path", cfg.Server.Storage.Path,
			"retention", cfg.Server.Storage.Retention)
	}

	alertEngine := alerts.New(cfg.Server.Alerts)

	hub := ws.New(st, cfg.Server.BroadcastInterval)
	go hub.Run(ctx)

	// Only report ingestion is authenticated; dashboards and scrapers read
	// the API, /metrics and the stream without a key.
	ingest := auth.APIKeyMiddleware(
		cfg.Server.Auth.Mode,
		cfg.Server.Auth.EffectiveHeader(),
		cfg.Server.Auth.Key(),
		receiver.New(st, alertEngine, recorder, hub),
	)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/reports", ingest)
	mux.Handle("/api/", api.New(st, alertEngine, reader))
	mux.Handle("/metrics", api.MetricsHandler(st, alertEngine))
	mux.Handle("/ws/stream", hub)

	// The "/" catch-all serves index.html for unknown paths (SPA routing).
	if *uiDir != "" {
		fs := http.FileServer(http.Dir(*uiDir))
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			path := filepath.Join(*uiDir, filepath.Clean("/"+r.URL.Path))
			if _, err := os.Stat(path); os.IsNotExist(err) {
				http.ServeFile(w, r, filepath.Join(*uiDir, "index.html"))
				return
			}
			fs.ServeHTTP(w, r)
		})
		slog.Info("serving UI static files", "dir", *uiDir)
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("trainingpulse-server shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown", "err", err)
	}
}
