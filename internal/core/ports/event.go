package ports

import (
	"context"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/domain"
)

// AuditSink is the append-only audit log write interface.
type AuditSink interface {
	Append(ctx context.Context, entry domain.AuditLogEntry) error
}

// AuditEventPublisher forwards committed audit entries to the message broker.
type AuditEventPublisher interface {
	PublishAuditEntry(ctx context.Context, entry domain.AuditLogEntry) error
}
