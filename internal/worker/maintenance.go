package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/playnext/playnext/internal/snapshot"
)

// MaintenanceStore defines the store operations the maintenance worker
// needs. Implemented by SQLiteStore.
type MaintenanceStore interface {
	PruneExpiredRecommendations(ctx context.Context) (int64, error)
}

// MaintenanceCoordinator periodically prunes expired recommendation rows
// and, when a backup backend is configured, uploads the database file.
type MaintenanceCoordinator struct {
	store    MaintenanceStore
	uploader snapshot.Uploader
	dbPath   string
	interval time.Duration
}

// NewMaintenanceCoordinator creates a maintenance coordinator.
func NewMaintenanceCoordinator(store MaintenanceStore, uploader snapshot.Uploader, dbPath string, interval time.Duration) *MaintenanceCoordinator {
	return &MaintenanceCoordinator{
		store:    store,
		uploader: uploader,
		dbPath:   dbPath,
		interval: interval,
	}
}

// Run starts the maintenance loop. It blocks until ctx is cancelled. The
// first cycle waits a full interval; nothing here is urgent at startup.
func (c *MaintenanceCoordinator) Run(ctx context.Context) {
	slog.Info("maintenance coordinator started",
		"component", "worker",
		"worker", "maintenance",
		"interval", c.interval.String(),
		"backup_configured", c.uploader.Configured(),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("maintenance coordinator stopped",
				"component", "worker",
				"worker", "maintenance",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			c.runCycle(ctx)
		}
	}
}

// runCycle runs one maintenance pass, continuing past individual failures.
func (c *MaintenanceCoordinator) runCycle(ctx context.Context) {
	start := time.Now()

	pruned, err := c.store.PruneExpiredRecommendations(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("recommendation prune failed",
			"component", "worker",
			"worker", "maintenance",
			"error", err,
		)
	}

	if c.uploader.Configured() {
		if err := c.uploader.Upload(ctx, c.dbPath); err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("database backup failed",
				"component", "worker",
				"worker", "maintenance",
				"error", err,
			)
		}
	}

	slog.Info("maintenance cycle completed",
		"component", "worker",
		"worker", "maintenance",
		"recommendations_pruned", pruned,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
