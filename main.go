package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akruglov/chronometer/internal/api"
	"github.com/akruglov/chronometer/internal/breaks"
	"github.com/akruglov/chronometer/internal/config"
	"github.com/akruglov/chronometer/internal/coordinator"
	"github.com/akruglov/chronometer/internal/database"
	"github.com/akruglov/chronometer/internal/monitor"
	"github.com/akruglov/chronometer/internal/notify"
	"github.com/akruglov/chronometer/internal/probe"
	"github.com/akruglov/chronometer/internal/report"
	"github.com/akruglov/chronometer/internal/tracker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration, writing the defaults on first run
	cfg := config.Load(*configPath)
	if err := cfg.EnsureFile(*configPath); err != nil {
		slog.Warn("failed to write default config", "path", *configPath, "error", err)
	}

	// Initialize database
	db, err := database.New(cfg.DatabasePath, cfg.GetTimezone())
	if err != nil {
		slog.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Build the engine
	notifier := notify.New(cfg.NotificationsEnabled, cfg.WebhookURL, cfg.ProxyURL)
	trk := tracker.New(db)
	mon := monitor.New(db, cfg, probe.New())
	brk := breaks.New(cfg)
	coord := coordinator.New(trk, mon, brk, notifier)

	// Resume an interrupted session, if any
	if err := trk.Restore(); err != nil {
		slog.Error("failed to restore session", "error", err)
	}
	coord.Bootstrap()

	if cfg.AutoStartTracking && trk.Current() == nil {
		trk.Start()
	}

	// Start the periodic state machines
	ctx, cancel := context.WithCancel(context.Background())
	go trk.Run(ctx)
	go mon.Run(ctx)
	go brk.Run(ctx)

	// Start the daily report scheduler
	reporter := report.NewScheduler(cfg, db, notifier)
	reporter.Start()

	// Setup HTTP server
	handler := api.NewHandler(cfg, db, trk, brk)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      corsMiddleware(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancel()
		reporter.Stop()

		// Flush in-flight state: close the open activity record and persist
		// the current session so a clean shutdown loses nothing.
		mon.StopMonitoring()
		trk.Flush()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.ListenAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
