package messaging

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/domain"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/ports"
)

var _ ports.AuditEventPublisher = (*RabbitMQBroker)(nil)

// PublishAuditEntry sends the entry as a persistent JSON message. The log ID
// is the message ID so consumers can drop redeliveries.
func (rmq *RabbitMQBroker) PublishAuditEntry(ctx context.Context, entry domain.AuditLogEntry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	_, err = rmq.cb.Execute(func() (interface{}, error) {
		return nil, rmq.ch.PublishWithContext(
			ctx,
			"",            // exchange (default)
			rmq.queueName, // routing key == queue name
			false,         // mandatory
			false,         // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    entry.LogID,
				Type:         string(entry.Action),
				Timestamp:    entry.Timestamp,
				Body:         body,
			},
		)
	})
	return err
}
