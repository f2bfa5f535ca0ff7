package logger

import (
	"context"
	"log/slog"
	"time"
)

// Gate audit event types
const (
	EventGateLoginSuccess = "gate_login_success"
	EventGateLoginFailed  = "gate_login_failed"
	EventGateBlocked      = "gate_login_blocked"
	EventGateLocked       = "gate_locked"
	EventGateLogout       = "gate_logout"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	ClientKey     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *slog.Logger
	env    string
}

// NewAuditLogger creates a new audit logger. In production client keys are
// redacted.
func NewAuditLogger(logger *slog.Logger, env string) *AuditLogger {
	return &AuditLogger{
		logger: logger,
		env:    env,
	}
}

// LogGateAttempt logs a gate login attempt
func (al *AuditLogger) LogGateAttempt(ctx context.Context, event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "gate"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.ClientKey != "" {
		attrs = append(attrs, RedactedAttr("client_key", event.ClientKey, al.env))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}

// LogSessionAction logs session lifecycle actions such as sign-out
func (al *AuditLogger) LogSessionAction(ctx context.Context, eventType, clientKey string) {
	al.logger.LogAttrs(ctx, slog.LevelInfo, "audit",
		slog.String("audit_type", "session"),
		slog.String("event_type", eventType),
		RedactedAttr("client_key", clientKey, al.env),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	)
}
