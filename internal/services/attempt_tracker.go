package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/sitegate/internal/models"
)

// AttemptRepository defines the storage operations behind the attempt tracker.
// Every call receives the tracker's notion of now so stores never read the
// wall clock themselves.
type AttemptRepository interface {
	Get(ctx context.Context, clientKey string, now time.Time) (*models.AttemptRecord, error)
	Increment(ctx context.Context, clientKey string, now time.Time, window time.Duration) (*models.AttemptRecord, error)
	Delete(ctx context.Context, clientKey string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// AttemptTrackerConfig holds the lockout policy
type AttemptTrackerConfig struct {
	MaxAttempts   int           // Failures inside one window that trigger lockout
	LockoutWindow time.Duration // Fixed window measured from the first failure
}

// DefaultAttemptTrackerConfig returns the gate's lockout policy: 5 failures
// per 30 second window.
func DefaultAttemptTrackerConfig() AttemptTrackerConfig {
	return AttemptTrackerConfig{
		MaxAttempts:   5,
		LockoutWindow: 30 * time.Second,
	}
}

// AttemptTracker bounds the rate of credential guesses per client key
type AttemptTracker struct {
	repo   AttemptRepository
	config AttemptTrackerConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewAttemptTracker creates a new AttemptTracker
func NewAttemptTracker(repo AttemptRepository, config AttemptTrackerConfig, logger *slog.Logger) *AttemptTracker {
	return &AttemptTracker{
		repo:   repo,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock replaces the time source (tests)
func (t *AttemptTracker) SetClock(now func() time.Time) {
	t.now = now
}

// MaxAttempts returns the lockout threshold
func (t *AttemptTracker) MaxAttempts() int {
	return t.config.MaxAttempts
}

// CheckLocked reports whether clientKey is currently locked out. An expired
// record is dropped by the store and does not lock.
func (t *AttemptTracker) CheckLocked(ctx context.Context, clientKey string) (bool, error) {
	record, err := t.repo.Get(ctx, clientKey, t.now())
	if err != nil {
		return false, fmt.Errorf("failed to check lockout: %w", err)
	}

	if record == nil || record.FailureCount < t.config.MaxAttempts {
		return false, nil
	}

	t.logger.Warn("client locked out",
		slog.String("client_key", clientKey),
		slog.Int("failed_attempts", record.FailureCount),
		slog.Time("lockout_deadline", record.LockoutDeadline))
	return true, nil
}

// RecordFailure charges one failed attempt to clientKey. The first failure
// opens a fixed window; later failures inside it only raise the count.
func (t *AttemptTracker) RecordFailure(ctx context.Context, clientKey string) (*models.AttemptRecord, error) {
	record, err := t.repo.Increment(ctx, clientKey, t.now(), t.config.LockoutWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to record failed attempt: %w", err)
	}

	if record.FailureCount == t.config.MaxAttempts {
		t.logger.Warn("lockout threshold reached",
			slog.String("client_key", clientKey),
			slog.Time("lockout_deadline", record.LockoutDeadline))
	}

	return record, nil
}

// Clear removes any attempt record for clientKey
func (t *AttemptTracker) Clear(ctx context.Context, clientKey string) error {
	if err := t.repo.Delete(ctx, clientKey); err != nil {
		return fmt.Errorf("failed to clear attempts: %w", err)
	}
	return nil
}

// Sweep deletes all expired records and returns how many were removed
func (t *AttemptTracker) Sweep(ctx context.Context) (int64, error) {
	removed, err := t.repo.DeleteExpired(ctx, t.now())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep attempts: %w", err)
	}
	return removed, nil
}
