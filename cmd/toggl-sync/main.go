package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"toggl-sync/internal/app"
	"toggl-sync/internal/config"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "Path to TOML config file (optional)")
	addr := flag.String("addr", "", "HTTP status server address (overrides config)")
	interval := flag.Int("interval", 0, "Poll interval in seconds (overrides config)")
	once := flag.Bool("once", false, "Run a single reconciliation pass and exit")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	flag.Parse()

	// Logger
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}
	if *interval > 0 {
		cfg.Sync.PollIntervalSeconds = *interval
	}

	// App
	application := app.New(logger, cfg)
	application.Coordinator().AddListener(&app.ConsoleNotifier{Out: os.Stdout})

	// Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		if err := application.RunOnce(ctx); err != nil {
			logger.Error("reconcile pass failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("reconcile pass completed", slog.String("status", application.Coordinator().StatusText()))
		return
	}

	srv := application.HTTPServer(cfg.HTTP.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	logger.Info("starting sync", slog.Duration("interval", cfg.PollInterval()))
	application.Start(ctx)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	application.Stop()
}
