package background

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) Sweep(ctx context.Context) (int64, error) {
	s.calls.Add(1)
	return 2, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCleanupManager_RunsImmediatelyAndOnSchedule(t *testing.T) {
	sweeper := &countingSweeper{}
	cm := NewCleanupManager(sweeper, discardLogger(), time.Second)

	require.NoError(t, cm.Start(context.Background()))
	assert.Equal(t, int32(1), sweeper.calls.Load(), "first sweep runs on start")

	assert.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 2
	}, 3*time.Second, 50*time.Millisecond)

	cm.Stop()
	cm.Stop() // idempotent
}

func TestCleanupManager_SweepErrorIsLogged(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("store down")}
	cm := NewCleanupManager(sweeper, discardLogger(), time.Hour)

	require.NoError(t, cm.Start(context.Background()))
	assert.Equal(t, int32(1), sweeper.calls.Load())
	cm.Stop()
}

func TestCleanupManager_CancelledContext(t *testing.T) {
	sweeper := &countingSweeper{}
	cm := NewCleanupManager(sweeper, discardLogger(), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, cm.Start(ctx))
	assert.Equal(t, int32(0), sweeper.calls.Load())
	cm.Stop()
}
