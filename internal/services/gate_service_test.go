package services_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BradenHooton/sitegate/internal/auth"
	"github.com/BradenHooton/sitegate/internal/models"
	"github.com/BradenHooton/sitegate/internal/services"
	pkglogger "github.com/BradenHooton/sitegate/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockNotifier struct {
	calls          atomic.Int32
	lastKey        atomic.Value
	lastSuppressed atomic.Int32
}

func (m *mockNotifier) NotifyLockout(ctx context.Context, record *models.AttemptRecord) error {
	m.calls.Add(1)
	m.lastKey.Store(record.ClientKey)
	m.lastSuppressed.Store(int32(record.SuppressedAlerts))
	return nil
}

// blockingNotifier holds every alert until release is closed
type blockingNotifier struct {
	started chan struct{}
	release chan struct{}
	ctxErr  atomic.Value
}

func newBlockingNotifier() *blockingNotifier {
	return &blockingNotifier{started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (b *blockingNotifier) NotifyLockout(ctx context.Context, record *models.AttemptRecord) error {
	b.started <- struct{}{}
	<-b.release
	b.ctxErr.Store(fmt.Sprint(ctx.Err()))
	return nil
}

func newTestGateService(t *testing.T, clock *fakeClock) (*services.GateService, *services.AttemptTracker) {
	t.Helper()

	verifier, err := auth.NewCredentialVerifier("123")
	require.NoError(t, err)

	tracker, _ := newTestTracker(clock)
	logger := discardLogger()
	svc := services.NewGateService(tracker, verifier, nil, logger, pkglogger.NewAuditLogger(logger, "test"))
	return svc, tracker
}

func TestGateService_Authenticate(t *testing.T) {
	tests := []struct {
		name     string
		password any
		wantErr  error
	}{
		{name: "correct code", password: "123", wantErr: nil},
		{name: "wrong code", password: "124", wantErr: models.ErrInvalidPassword},
		{name: "empty string", password: "", wantErr: models.ErrPasswordRequired},
		{name: "nil", password: nil, wantErr: models.ErrPasswordRequired},
		{name: "number instead of string", password: float64(123), wantErr: models.ErrPasswordRequired},
		{name: "too short", password: "12", wantErr: models.ErrInvalidPasswordFormat},
		{name: "too long", password: "1234", wantErr: models.ErrInvalidPasswordFormat},
		{name: "letters", password: "abc", wantErr: models.ErrInvalidPasswordFormat},
		{name: "non-ascii digits", password: "١٢٣", wantErr: models.ErrInvalidPasswordFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestGateService(t, newFakeClock())
			err := svc.Authenticate(context.Background(), "1.2.3.4", tt.password)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestGateService_FormatErrorsCountAsFailures(t *testing.T) {
	svc, tracker := newTestGateService(t, newFakeClock())
	ctx := context.Background()

	for _, pw := range []any{"", nil, "ab", "abcd", "999"} {
		_ = svc.Authenticate(ctx, "k", pw)
	}

	locked, err := tracker.CheckLocked(ctx, "k")
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestGateService_LockoutRejectsCorrectCode(t *testing.T) {
	clock := newFakeClock()
	svc, _ := newTestGateService(t, clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, svc.Authenticate(ctx, "k", "000"), models.ErrInvalidPassword)
	}

	assert.ErrorIs(t, svc.Authenticate(ctx, "k", "123"), models.ErrRateLimitExceeded)
	assert.NoError(t, svc.Authenticate(ctx, "other", "123"), "other clients are unaffected")

	clock.Advance(31 * time.Second)
	assert.NoError(t, svc.Authenticate(ctx, "k", "123"))
}

func TestGateService_BlockedAttemptsAreNotCharged(t *testing.T) {
	clock := newFakeClock()
	svc, tracker := newTestGateService(t, clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = svc.Authenticate(ctx, "k", "000")
	}
	for i := 0; i < 10; i++ {
		assert.ErrorIs(t, svc.Authenticate(ctx, "k", "000"), models.ErrRateLimitExceeded)
	}

	clock.Advance(31 * time.Second)
	record, err := tracker.RecordFailure(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, record.FailureCount)
}

func TestGateService_SuccessClearsAttempts(t *testing.T) {
	svc, tracker := newTestGateService(t, newFakeClock())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_ = svc.Authenticate(ctx, "k", "000")
	}
	require.NoError(t, svc.Authenticate(ctx, "k", "123"))

	record, err := tracker.RecordFailure(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, record.FailureCount)
}

func TestGateService_ConcurrentFailuresLockOnce(t *testing.T) {
	svc, tracker := newTestGateService(t, newFakeClock())
	notifier := &mockNotifier{}
	svc.SetLockoutNotifier(notifier, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.Authenticate(ctx, "k", "000")
		}()
	}
	wg.Wait()
	svc.WaitForAlerts()

	locked, err := tracker.CheckLocked(ctx, "k")
	require.NoError(t, err)
	assert.True(t, locked)
	assert.Equal(t, int32(1), notifier.calls.Load())
	assert.Equal(t, "k", notifier.lastKey.Load())
}

func TestGateService_LockoutAlertDoesNotDelayResponse(t *testing.T) {
	svc, _ := newTestGateService(t, newFakeClock())
	notifier := newBlockingNotifier()
	svc.SetLockoutNotifier(notifier, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			assert.ErrorIs(t, svc.Authenticate(ctx, "k", "000"), models.ErrInvalidPassword)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("threshold failure waited on the lockout alert")
	}

	select {
	case <-notifier.started:
	case <-time.After(2 * time.Second):
		t.Fatal("lockout alert was never sent")
	}

	// The alert outlives the request that triggered it
	cancel()
	close(notifier.release)
	svc.WaitForAlerts()
	assert.Equal(t, "<nil>", notifier.ctxErr.Load())
}

func TestGateService_LockoutAlertsAreCapped(t *testing.T) {
	clock := newFakeClock()
	svc, _ := newTestGateService(t, clock)
	notifier := &mockNotifier{}
	svc.SetLockoutNotifier(notifier, 0)
	ctx := context.Background()

	lockOut := func(key string) {
		for i := 0; i < 5; i++ {
			_ = svc.Authenticate(ctx, key, "000")
		}
	}

	// Twenty addresses locked out in one burst produce a single alert
	for i := 0; i < 20; i++ {
		lockOut(fmt.Sprintf("198.51.100.%d", i))
	}
	svc.WaitForAlerts()
	assert.Equal(t, int32(1), notifier.calls.Load())
	assert.Equal(t, "198.51.100.0", notifier.lastKey.Load())
	assert.Equal(t, int32(0), notifier.lastSuppressed.Load())

	// The next alert after the window reports what was held back
	clock.Advance(31 * time.Second)
	lockOut("203.0.113.9")
	svc.WaitForAlerts()
	assert.Equal(t, int32(2), notifier.calls.Load())
	assert.Equal(t, "203.0.113.9", notifier.lastKey.Load())
	assert.Equal(t, int32(19), notifier.lastSuppressed.Load())
}

func TestGateService_StoreErrorFailsClosed(t *testing.T) {
	verifier, err := auth.NewCredentialVerifier("123")
	require.NoError(t, err)

	tracker := services.NewAttemptTracker(errorAttemptRepo{}, services.DefaultAttemptTrackerConfig(), discardLogger())
	svc := services.NewGateService(tracker, verifier, nil, discardLogger(), pkglogger.NewAuditLogger(discardLogger(), "test"))

	assert.ErrorIs(t, svc.Authenticate(context.Background(), "k", "123"), models.ErrInternalServer)
}

func TestGateService_FailuresArePadded(t *testing.T) {
	verifier, err := auth.NewCredentialVerifier("123")
	require.NoError(t, err)

	tracker, _ := newTestTracker(newFakeClock())
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelay: 30 * time.Millisecond})
	svc := services.NewGateService(tracker, verifier, timing, discardLogger(), pkglogger.NewAuditLogger(discardLogger(), "test"))

	start := time.Now()
	_ = svc.Authenticate(context.Background(), "k", "abc")
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	start = time.Now()
	require.NoError(t, svc.Authenticate(context.Background(), "k", "123"))
	assert.Less(t, time.Since(start), 30*time.Millisecond)
}

func BenchmarkGateService_Authenticate(b *testing.B) {
	verifier, _ := auth.NewCredentialVerifier("123")
	logger := discardLogger()
	audit := pkglogger.NewAuditLogger(logger, "test")

	cases := map[string]any{
		"match":          "123",
		"mismatch_first": "923",
		"mismatch_last":  "129",
		"bad_format":     "12a",
	}
	for name, pw := range cases {
		b.Run(name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				clock := newFakeClock()
				tracker, _ := newTestTracker(clock)
				svc := services.NewGateService(tracker, verifier, nil, logger, audit)
				_ = svc.Authenticate(context.Background(), "k", pw)
			}
		})
	}
}
