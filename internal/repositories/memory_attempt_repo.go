package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/BradenHooton/sitegate/internal/models"
)

// MemoryAttemptRepository keeps attempt records in process memory.
// Records do not survive a restart and are not shared between replicas.
type MemoryAttemptRepository struct {
	mu      sync.Mutex
	records map[string]*models.AttemptRecord
}

// NewMemoryAttemptRepository creates an empty in-memory attempt store
func NewMemoryAttemptRepository() *MemoryAttemptRepository {
	return &MemoryAttemptRepository{
		records: make(map[string]*models.AttemptRecord),
	}
}

// Get returns the live record for clientKey, or nil if none exists.
// A record whose window has passed is removed and reported as absent.
func (r *MemoryAttemptRepository) Get(ctx context.Context, clientKey string, now time.Time) (*models.AttemptRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[clientKey]
	if !ok {
		return nil, nil
	}

	if record.Expired(now) {
		delete(r.records, clientKey)
		return nil, nil
	}

	snapshot := *record
	return &snapshot, nil
}

// Increment records one failure for clientKey and returns the updated record
func (r *MemoryAttemptRepository) Increment(ctx context.Context, clientKey string, now time.Time, window time.Duration) (*models.AttemptRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[clientKey]
	if !ok || record.Expired(now) {
		record = &models.AttemptRecord{
			ClientKey:       clientKey,
			FailureCount:    1,
			LockoutDeadline: now.Add(window),
		}
		r.records[clientKey] = record
	} else {
		record.FailureCount++
	}

	snapshot := *record
	return &snapshot, nil
}

// Delete removes any record for clientKey
func (r *MemoryAttemptRepository) Delete(ctx context.Context, clientKey string) error {
	r.mu.Lock()
	delete(r.records, clientKey)
	r.mu.Unlock()
	return nil
}

// DeleteExpired removes every record whose window has passed at now
func (r *MemoryAttemptRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for key, record := range r.records {
		if record.Expired(now) {
			delete(r.records, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored records, live or not yet swept
func (r *MemoryAttemptRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
