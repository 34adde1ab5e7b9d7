// Command moviefinder is the main entrypoint for the movie finder Telegram worker.
// It:
//   - Loads configuration and initializes structured logging.
//   - Builds the TMDB and Internet Archive clients and the in-memory state store.
//   - Starts the Telegram long-polling worker with command and callback routing.
//   - Exposes a minimal HTTP server with /, /healthz, /status, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/allmoviespro/moviefinder/archive"
	"github.com/allmoviespro/moviefinder/bot"
	"github.com/allmoviespro/moviefinder/config"
	"github.com/allmoviespro/moviefinder/server"
	"github.com/allmoviespro/moviefinder/store"
	"github.com/allmoviespro/moviefinder/telemetry"
	"github.com/allmoviespro/moviefinder/tmdb"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateBotReady(); err != nil {
		slog.Error("config incomplete", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("moviefinder", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Upstream clients and process-wide state
	st := store.New()
	mdb := tmdb.New(cfg.TMDBAPIKey)
	arc := archive.New()

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Ops HTTP server (keepalive/health/status/metrics)
	go func() {
		if err := server.Start(ctx, cfg, st, cfg.HTTPAddr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Telegram worker; blocks until shutdown signal
	tb, err := bot.New(cfg, st, mdb, arc)
	if err != nil {
		slog.Error("bot init failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := tb.Run(ctx); err != nil {
		slog.Error("bot exited with error", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("shutting down")
}
