package services

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/BradenHooton/sitegate/internal/auth"
	"github.com/BradenHooton/sitegate/internal/models"
	pkglogger "github.com/BradenHooton/sitegate/pkg/logger"
)

// CredentialChecker classifies a submitted gate code
type CredentialChecker interface {
	Check(submitted any) auth.VerifyResult
}

// LockoutNotifier is told when a client key reaches the lockout threshold
type LockoutNotifier interface {
	NotifyLockout(ctx context.Context, record *models.AttemptRecord) error
}

// GateService handles the password gate business logic
type GateService struct {
	tracker     *AttemptTracker
	verifier    CredentialChecker
	timing      *auth.TimingDelay
	notifier    LockoutNotifier
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger

	// Alerts leave at most once per alertInterval across all client keys
	alertMu       sync.Mutex
	alertInterval time.Duration
	lastAlert     time.Time
	suppressed    int
	alerts        sync.WaitGroup
}

// NewGateService creates a new GateService. timing may be nil to disable
// response padding.
func NewGateService(
	tracker *AttemptTracker,
	verifier CredentialChecker,
	timing *auth.TimingDelay,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *GateService {
	return &GateService{
		tracker:     tracker,
		verifier:    verifier,
		timing:      timing,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// SetLockoutNotifier enables lockout notifications. At most one alert is
// sent per interval; lockouts in between are counted and reported with the
// next alert. A non-positive interval falls back to the lockout window.
func (s *GateService) SetLockoutNotifier(notifier LockoutNotifier, interval time.Duration) {
	if interval <= 0 {
		interval = s.tracker.config.LockoutWindow
	}
	s.notifier = notifier
	s.alertInterval = interval
}

// WaitForAlerts blocks until in-flight lockout alerts have finished
func (s *GateService) WaitForAlerts() {
	s.alerts.Wait()
}

// Authenticate checks a submitted password for clientKey.
//
// It returns nil on success and otherwise one of ErrRateLimitExceeded,
// ErrPasswordRequired, ErrInvalidPasswordFormat, ErrInvalidPassword or
// ErrInternalServer. Every failure except the lockout itself is charged to
// clientKey. Failed calls are padded by the timing delay.
func (s *GateService) Authenticate(ctx context.Context, clientKey string, password any) (err error) {
	start := time.Now()
	defer func() {
		s.timing.WaitFrom(start, err == nil)
	}()

	locked, err := s.tracker.CheckLocked(ctx, clientKey)
	if err != nil {
		s.logger.Error("failed to check lockout", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if locked {
		s.auditLogger.LogGateAttempt(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventGateBlocked,
			ClientKey:     clientKey,
			FailureReason: "locked_out",
		})
		return models.ErrRateLimitExceeded
	}

	switch result := s.verifier.Check(password); result {
	case auth.VerifyMatch:
		if err := s.tracker.Clear(ctx, clientKey); err != nil {
			s.logger.Error("failed to clear attempts", slog.Any("error", err))
			return models.ErrInternalServer
		}
		s.auditLogger.LogGateAttempt(ctx, pkglogger.AuditEvent{
			EventType: pkglogger.EventGateLoginSuccess,
			ClientKey: clientKey,
			Success:   true,
		})
		return nil
	case auth.VerifyMissing:
		return s.fail(ctx, clientKey, result, models.ErrPasswordRequired)
	case auth.VerifyInvalidFormat:
		return s.fail(ctx, clientKey, result, models.ErrInvalidPasswordFormat)
	default:
		return s.fail(ctx, clientKey, result, models.ErrInvalidPassword)
	}
}

// fail charges a failed attempt and returns cause
func (s *GateService) fail(ctx context.Context, clientKey string, result auth.VerifyResult, cause error) error {
	record, err := s.tracker.RecordFailure(ctx, clientKey)
	if err != nil {
		s.logger.Error("failed to record failed attempt", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogGateAttempt(ctx, pkglogger.AuditEvent{
		EventType:     pkglogger.EventGateLoginFailed,
		ClientKey:     clientKey,
		FailureReason: result.String(),
		Metadata:      map[string]string{"failure_count": strconv.Itoa(record.FailureCount)},
	})

	// Exactly one concurrent failure sees the threshold count
	if record.FailureCount == s.tracker.MaxAttempts() {
		s.auditLogger.LogGateAttempt(ctx, pkglogger.AuditEvent{
			EventType: pkglogger.EventGateLocked,
			ClientKey: clientKey,
			Metadata:  map[string]string{"lockout_deadline": record.LockoutDeadline.UTC().Format(time.RFC3339)},
		})
		s.notifyLockout(ctx, record)
	}

	return cause
}

func (s *GateService) notifyLockout(ctx context.Context, record *models.AttemptRecord) {
	if s.notifier == nil {
		return
	}

	s.alertMu.Lock()
	now := s.tracker.now()
	if !s.lastAlert.IsZero() && now.Sub(s.lastAlert) < s.alertInterval {
		s.suppressed++
		s.alertMu.Unlock()
		s.logger.Info("lockout alert suppressed", slog.String("client_key", record.ClientKey))
		return
	}
	s.lastAlert = now
	alert := *record
	alert.SuppressedAlerts = s.suppressed
	s.suppressed = 0
	s.alertMu.Unlock()

	// Sent off the request path so the tripping failure costs no extra latency
	notifyCtx := context.WithoutCancel(ctx)
	s.alerts.Add(1)
	go func() {
		defer s.alerts.Done()

		sendCtx, cancel := context.WithTimeout(notifyCtx, 5*time.Second)
		defer cancel()

		if err := s.notifier.NotifyLockout(sendCtx, &alert); err != nil {
			s.logger.Error("failed to send lockout notification", slog.Any("error", err))
		}
	}()
}
