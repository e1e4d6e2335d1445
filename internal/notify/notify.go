// Package notify decouples audit and notification delivery from the
// financial transactions that produce them. Events are dispatched after
// commit; a delivery failure is logged and never propagated.
package notify

import (
	"context"
	"log/slog"

	"github.com/coopfund/ledger/internal/domain"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Notifier delivers user-facing and operator-facing messages.
type Notifier interface {
	NotifyUser(ctx context.Context, ownerID, title, body string) error
	NotifyAdmin(ctx context.Context, message string, severity Severity) error
}

// AuditSink receives one structured event per financial mutation.
type AuditSink interface {
	Record(ctx context.Context, event domain.AuditEvent) error
}

// LogNotifier writes notifications to the structured log. It stands in for
// the push/SSE delivery service, which is an external collaborator.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With("component", "notifier")}
}

func (n *LogNotifier) NotifyUser(_ context.Context, ownerID, title, body string) error {
	n.log.Info("user notification", "owner_id", ownerID, "title", title, "body", body)
	return nil
}

func (n *LogNotifier) NotifyAdmin(_ context.Context, message string, severity Severity) error {
	n.log.Warn("admin notification", "severity", string(severity), "message", message)
	return nil
}

// LogAuditSink writes audit events to the structured log. Audit persistence
// proper lives outside this service.
type LogAuditSink struct {
	log *slog.Logger
}

func NewLogAuditSink(log *slog.Logger) *LogAuditSink {
	return &LogAuditSink{log: log.With("component", "audit")}
}

func (s *LogAuditSink) Record(_ context.Context, ev domain.AuditEvent) error {
	s.log.Info("audit event",
		"owner_id", ev.OwnerID,
		"action", ev.ActionType,
		"entity_type", ev.EntityType,
		"entity_id", ev.EntityID,
	)
	return nil
}
