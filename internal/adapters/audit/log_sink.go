package audit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/domain"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/ports"
)

// LogSink writes entries to a dedicated logger. Used when no database is
// configured.
type LogSink struct {
	logger zerolog.Logger
}

var _ ports.AuditSink = (*LogSink)(nil)

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "audit").Logger()}
}

func (s *LogSink) Append(ctx context.Context, entry domain.AuditLogEntry) error {
	details := zerolog.Dict()
	for k, v := range entry.Details {
		details.Str(k, v)
	}

	s.logger.Info().
		Str("log_id", entry.LogID).
		Time("timestamp", entry.Timestamp).
		Str("action", string(entry.Action)).
		Str("admin_id", entry.AdminID).
		Str("admin_name", entry.AdminName).
		Str("customer_id", entry.CustomerID).
		Str("customer_name", entry.CustomerName).
		Str("resource", entry.Resource).
		Dict("details", details).
		Msg("audit")
	return nil
}
