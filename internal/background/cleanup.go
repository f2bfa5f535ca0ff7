package background

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper removes expired attempt records and reports how many it removed
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// CleanupManager periodically sweeps expired attempt records. Lockout expiry
// is already lazy; the sweep only bounds storage growth from keys that never
// come back.
type CleanupManager struct {
	sweeper  Sweeper
	logger   *slog.Logger
	interval time.Duration
	cron     *cron.Cron
	stopOnce sync.Once
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(sweeper Sweeper, logger *slog.Logger, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		sweeper:  sweeper,
		logger:   logger,
		interval: interval,
		cron:     cron.New(cron.WithLocation(time.UTC)),
	}
}

// Start runs one sweep immediately and schedules the rest. It does not block.
func (cm *CleanupManager) Start(ctx context.Context) error {
	cm.runCleanup(ctx)

	schedule := fmt.Sprintf("@every %s", cm.interval)
	if _, err := cm.cron.AddFunc(schedule, func() { cm.runCleanup(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule attempt cleanup: %w", err)
	}

	cm.cron.Start()
	cm.logger.Info("attempt cleanup scheduled", slog.Duration("interval", cm.interval))
	return nil
}

// runCleanup removes expired attempt records
func (cm *CleanupManager) runCleanup(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	removed, err := cm.sweeper.Sweep(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to sweep expired attempts", slog.Any("error", err))
		return
	}

	if removed > 0 {
		cm.logger.Info("expired attempt cleanup completed", slog.Int64("records_deleted", removed))
	}
}

// Stop halts scheduling and waits for a running sweep to finish
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() {
		<-cm.cron.Stop().Done()
		cm.logger.Info("cleanup manager stopped")
	})
}
