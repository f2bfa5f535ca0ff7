package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/sitegate/internal/database"
	"github.com/BradenHooton/sitegate/internal/models"
)

// AttemptRepository stores attempt records in Postgres so that every replica
// behind a load balancer shares one lockout state.
type AttemptRepository struct {
	db *database.DB
}

// NewAttemptRepository creates a new AttemptRepository
func NewAttemptRepository(db *database.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Get returns the live record for clientKey, or nil if none exists.
// An expired row is deleted on read.
func (r *AttemptRepository) Get(ctx context.Context, clientKey string, now time.Time) (*models.AttemptRecord, error) {
	query := `
		SELECT client_key, failure_count, lockout_deadline
		FROM gate_attempts
		WHERE client_key = $1
	`

	var record models.AttemptRecord
	err := r.db.Pool.QueryRow(ctx, query, clientKey).Scan(
		&record.ClientKey,
		&record.FailureCount,
		&record.LockoutDeadline,
	)
	if err != nil {
		if errors.Is(database.MapPostgresError(err), models.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attempt record: %w", err)
	}

	if record.Expired(now) {
		// Only delete if nobody reset the row in the meantime
		deleteQuery := `DELETE FROM gate_attempts WHERE client_key = $1 AND lockout_deadline < $2`
		if _, err := r.db.Pool.Exec(ctx, deleteQuery, clientKey, now); err != nil {
			return nil, fmt.Errorf("failed to delete expired attempt record: %w", err)
		}
		return nil, nil
	}

	return &record, nil
}

// Increment atomically records one failure for clientKey. A missing or expired
// row restarts at 1 with a new deadline; a live row keeps its deadline.
func (r *AttemptRepository) Increment(ctx context.Context, clientKey string, now time.Time, window time.Duration) (*models.AttemptRecord, error) {
	query := `
		INSERT INTO gate_attempts (client_key, failure_count, lockout_deadline)
		VALUES ($1, 1, $3)
		ON CONFLICT (client_key) DO UPDATE
		SET failure_count = CASE
			WHEN gate_attempts.lockout_deadline < $2 THEN 1
			ELSE gate_attempts.failure_count + 1
		END,
		lockout_deadline = CASE
			WHEN gate_attempts.lockout_deadline < $2 THEN $3
			ELSE gate_attempts.lockout_deadline
		END
		RETURNING client_key, failure_count, lockout_deadline
	`

	var record models.AttemptRecord
	err := r.db.Pool.QueryRow(ctx, query, clientKey, now, now.Add(window)).Scan(
		&record.ClientKey,
		&record.FailureCount,
		&record.LockoutDeadline,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record attempt: %w", database.MapPostgresError(err))
	}

	return &record, nil
}

// Delete removes any record for clientKey
func (r *AttemptRepository) Delete(ctx context.Context, clientKey string) error {
	query := `DELETE FROM gate_attempts WHERE client_key = $1`
	if _, err := r.db.Pool.Exec(ctx, query, clientKey); err != nil {
		return fmt.Errorf("failed to delete attempt record: %w", err)
	}
	return nil
}

// DeleteExpired removes every record whose window has passed at now
func (r *AttemptRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM gate_attempts WHERE lockout_deadline < $1`
	tag, err := r.db.Pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired attempt records: %w", err)
	}
	return tag.RowsAffected(), nil
}
