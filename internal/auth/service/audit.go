package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/kubarr/internal/auth/metrics"
	"github.com/aussiebroadwan/kubarr/pkg/slogx"
	"github.com/google/uuid"
)

// Audit event types.
const (
	AuditLoginSucceeded      = "login.succeeded"
	AuditLoginFailed         = "login.failed"
	AuditAccountLocked       = "account.locked"
	AuditAccountUnlocked     = "account.unlocked"
	AuditTwoFactorChallenged = "two_factor.challenged"
	AuditTwoFactorEnabled    = "two_factor.enabled"
	AuditTwoFactorDisabled   = "two_factor.disabled"
	AuditTwoFactorFailed     = "two_factor.failed"
	AuditRecoveryCodeUsed    = "two_factor.recovery_used"
	AuditRecoveryRegenerated = "two_factor.recovery_regenerated"
	AuditSessionCreated      = "session.created"
	AuditSessionRevoked      = "session.revoked"
	AuditTokenIssued         = "token.issued"
	AuditTokenRevoked        = "token.revoked"
	AuditTokenReuseDetected  = "token.reuse_detected"
	AuditClientCreated       = "client.created"
	AuditClientDeleted       = "client.deleted"
	AuditClientSecretRotated = "client.secret_rotated"
	AuditSigningKeyRotated   = "signing_key.rotated"
)

// AuditEvent is one security-relevant fact. Reason carries the detail that
// is kept out of HTTP responses.
type AuditEvent struct {
	ID        string
	Type      string
	AccountID string
	ClientID  string
	SessionID string
	Reason    string
	At        time.Time
}

// AuditSink receives audit events. Implementations must not block the
// caller for long and must never fail the operation being audited.
type AuditSink interface {
	Record(ctx context.Context, ev AuditEvent)
}

// LogAuditSink writes events as structured log lines and counts them.
type LogAuditSink struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics // optional
}

func (s *LogAuditSink) Record(ctx context.Context, ev AuditEvent) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	l := s.Logger
	if l == nil {
		l = slogx.FromContext(ctx)
	}

	attrs := []any{
		slog.String("audit_id", ev.ID),
		slog.String("event", ev.Type),
		slog.Time("at", ev.At.UTC()),
	}
	if ev.AccountID != "" {
		attrs = append(attrs, slog.String("account_id", ev.AccountID))
	}
	if ev.ClientID != "" {
		attrs = append(attrs, slog.String("client_id", ev.ClientID))
	}
	if ev.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", ev.SessionID))
	}
	if ev.Reason != "" {
		attrs = append(attrs, slog.String("reason", ev.Reason))
		l.WarnContext(ctx, "audit", attrs...)
	} else {
		l.InfoContext(ctx, "audit", attrs...)
	}

	if s.Metrics != nil {
		s.Metrics.AuditEvents.WithLabelValues(ev.Type).Inc()
	}
}

// nopAudit is used when no sink is configured.
type nopAudit struct{}

func (nopAudit) Record(context.Context, AuditEvent) {}

func auditOrNop(a AuditSink) AuditSink {
	if a == nil {
		return nopAudit{}
	}
	return a
}
