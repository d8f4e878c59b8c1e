// Package audit appends audit log entries. The PostgreSQL sink writes each
// entry and its outbox event in one transaction; the relay forwards outbox
// rows to RabbitMQ.
package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/config"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/domain"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/ports"
)

const (
	// EventType tags audit rows in outbox_events.
	EventType     = "portal.audit"
	aggregateType = "audit_log"
)

type OutboxSink struct {
	db *sql.DB
	cb *gobreaker.CircuitBreaker
}

var _ ports.AuditSink = (*OutboxSink)(nil)

func NewOutboxSink(db *sql.DB) *OutboxSink {
	return &OutboxSink{
		db: db,
		cb: config.NewCircuitBreaker(config.BreakerPostgres),
	}
}

// Append inserts the entry and its outbox event. The insert trigger on
// outbox_events notifies the relay on commit.
func (s *OutboxSink) Append(ctx context.Context, entry domain.AuditLogEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode audit entry: %w", err)
	}

	var details []byte
	if len(entry.Details) > 0 {
		if details, err = json.Marshal(entry.Details); err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}
	}

	_, err = s.cb.Execute(func() (interface{}, error) {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		defer tx.Rollback()

		_, err = tx.ExecContext(ctx, `
			INSERT INTO audit_log
				(log_id, ts, admin_id, admin_name, action, customer_id, customer_name, resource, details)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			entry.LogID,
			entry.Timestamp,
			entry.AdminID,
			entry.AdminName,
			string(entry.Action),
			entry.CustomerID,
			entry.CustomerName,
			entry.Resource,
			nullableJSON(details),
		)
		if err != nil {
			return nil, err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO outbox_events (id, aggregate_type, aggregate_id, event_type, payload)
			VALUES ($1, $2, $3, $4, $5)`,
			uuid.NewString(),
			aggregateType,
			entry.LogID,
			EventType,
			string(payload),
		)
		if err != nil {
			return nil, err
		}

		return nil, tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("audit append %s: %w", entry.LogID, err)
	}
	return nil
}

func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
