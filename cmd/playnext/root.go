package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/playnext/playnext/internal/api"
	"github.com/playnext/playnext/internal/auth"
	"github.com/playnext/playnext/internal/config"
	"github.com/playnext/playnext/internal/recommend"
	"github.com/playnext/playnext/internal/snapshot"
	"github.com/playnext/playnext/internal/steam"
	"github.com/playnext/playnext/internal/store"
	"github.com/playnext/playnext/internal/worker"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "playnext",
	Short: "playnext - personalized game recommendation service",
	RunE:  run,
}

func run(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)
	slog.Info("configuration loaded", "level", cfg.Log.Level)

	// Storage unavailability is fatal; no retry.
	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	slog.Info("store initialized", "path", cfg.Database.Path)

	// Import the legacy flat-file status store before any request touches
	// the status table.
	db.EnsureMigrated(ctx)

	steamClient := steam.NewClient(cfg.Steam.APIKey)
	generator := recommend.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	slog.Info("recommender initialized", "model", generator.ModelName())

	sessions := auth.NewSessions(cfg.Session.Secret, time.Duration(cfg.Session.TTL))
	openid := auth.NewOpenID()

	handler := api.NewHandler(db, steamClient, generator, openid, sessions, cfg.Server.BaseURL, Version)
	router := api.NewRouter(handler)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	uploader, err := snapshot.NewUploader(cfg.Backup)
	if err != nil {
		return err
	}
	maintenance := worker.NewMaintenanceCoordinator(db, uploader, cfg.Database.Path,
		time.Duration(cfg.Worker.MaintenanceInterval))

	var wg sync.WaitGroup
	startWorker(ctx, &wg, "maintenance", maintenance.Run)

	go func() {
		slog.Info("server starting", "address", addr)
		// ErrServerClosed is the expected error when Shutdown() is called
		// gracefully; anything else should trigger shutdown.
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown initiated")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout))
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	wg.Wait()

	if err := db.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// startWorker launches a background worker goroutine that respects context
// cancellation. Workers are tracked via WaitGroup for graceful shutdown.
func startWorker(ctx context.Context, wg *sync.WaitGroup, name string, fn func(ctx context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("worker started", "worker", name)
		fn(ctx)
		slog.Info("worker stopped", "worker", name)
	}()
}
