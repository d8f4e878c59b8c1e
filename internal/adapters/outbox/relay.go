// Package outbox forwards audit events written to outbox_events to the
// message broker.
package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/lib/pq"
	"github.com/sony/gobreaker"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/config"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/domain"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/ports"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/logging"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/metrics"
)

const (
	// PostgreSQL NOTIFY/LISTEN configuration
	listenerMinReconnectInterval = 10 * time.Second
	listenerMaxReconnectInterval = time.Minute
	outboxChannelName            = "outbox_channel"

	// Event processing timeouts
	eventProcessTimeout     = 30 * time.Second
	batchProcessTimeout     = 60 * time.Second
	periodicProcessInterval = 90 * time.Second

	healthCheckStaleThreshold = 5 * time.Minute

	maxEventsPerBatch = 100
)

// errBadPayload marks events that can never be published. They are marked
// processed so they do not block the queue.
var errBadPayload = errors.New("undecodable outbox payload")

// Relay listens for PostgreSQL NOTIFY signals on outbox_channel and publishes
// audit events. Rows of other event types are marked processed untouched.
type Relay struct {
	db        *sql.DB
	dbURL     string
	eventType string
	publisher ports.AuditEventPublisher
	listener  *pq.Listener
	dbCB      *gobreaker.CircuitBreaker

	mu            sync.RWMutex
	lastProcessed time.Time
	isHealthy     bool
}

func NewRelay(db *sql.DB, dbURL, eventType string, publisher ports.AuditEventPublisher) *Relay {
	return &Relay{
		db:            db,
		dbURL:         dbURL,
		eventType:     eventType,
		publisher:     publisher,
		dbCB:          config.NewCircuitBreaker(config.BreakerRelayPostgres),
		lastProcessed: time.Now(),
		isHealthy:     true,
	}
}

// IsHealthy is the liveness check: the process is responsive. An open breaker
// is degraded but recoverable and does not fail liveness.
func (r *Relay) IsHealthy() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isHealthy
}

// IsReady is the readiness check: the breaker is not open and the relay has
// made progress recently.
func (r *Relay) IsReady() bool {
	if r.dbCB.State() == gobreaker.StateOpen {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if time.Since(r.lastProcessed) > healthCheckStaleThreshold {
		return false
	}
	return r.isHealthy
}

func (r *Relay) markProcessed() {
	r.mu.Lock()
	r.lastProcessed = time.Now()
	r.isHealthy = true
	r.mu.Unlock()
}

func (r *Relay) setHealthy(ok bool) {
	r.mu.Lock()
	r.isHealthy = ok
	r.mu.Unlock()
}

// Start blocks until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	log := logging.With().Str("component", "outbox_relay").Logger()

	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Warn().Err(err).Int("event", int(ev)).Msg("listener problem")
		}
	}

	r.listener = pq.NewListener(r.dbURL, listenerMinReconnectInterval, listenerMaxReconnectInterval, reportProblem)
	defer r.listener.Close()

	if err := r.listener.Listen(outboxChannelName); err != nil {
		return fmt.Errorf("listen %s: %w", outboxChannelName, err)
	}

	log.Info().Str("channel", outboxChannelName).Str("event_type", r.eventType).Msg("listening for outbox notifications")

	// Catch up on rows written while the relay was down.
	if err := r.processUnprocessedEvents(ctx); err != nil {
		log.Error().Err(err).Msg("startup backlog failed")
	}

	ticker := time.NewTicker(periodicProcessInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return ctx.Err()

		case notification := <-r.listener.Notify:
			if notification == nil {
				// Connection lost; pq reconnects and we catch up on the next tick.
				log.Warn().Msg("nil notification, reconnecting")
				r.setHealthy(false)
				continue
			}

			if err := r.processEventByID(ctx, notification.Extra); err != nil {
				log.Error().Err(err).Str("event_id", notification.Extra).Msg("event processing failed")
			} else {
				r.markProcessed()
			}

		case <-ticker.C:
			go r.listener.Ping()

			if err := r.processUnprocessedEvents(ctx); err != nil {
				log.Error().Err(err).Msg("periodic processing failed")
			} else {
				r.markProcessed()
			}
		}
	}
}

// dispatch publishes one outbox row. Rows of other event types are skipped.
func (r *Relay) dispatch(ctx context.Context, eventType string, payload []byte) error {
	if eventType != r.eventType {
		metrics.RelayPublished.WithLabelValues("skipped").Inc()
		return nil
	}

	var entry domain.AuditLogEntry
	if err := json.Unmarshal(payload, &entry); err != nil || entry.LogID == "" {
		metrics.RelayPublished.WithLabelValues("bad_payload").Inc()
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}

	if err := r.publisher.PublishAuditEntry(ctx, entry); err != nil {
		metrics.RelayPublished.WithLabelValues("publish_error").Inc()
		return err
	}
	metrics.RelayPublished.WithLabelValues("published").Inc()
	return nil
}

func (r *Relay) processEventByID(ctx context.Context, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, eventProcessTimeout)
	defer cancel()

	_, err := r.dbCB.Execute(func() (interface{}, error) {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		defer tx.Rollback()

		var id, eventType string
		var payload []byte
		err = tx.QueryRowContext(ctx, `
			SELECT id, event_type, payload
			FROM outbox_events
			WHERE id = $1 AND processed_at IS NULL
			FOR UPDATE SKIP LOCKED`, eventID).Scan(&id, &eventType, &payload)
		if errors.Is(err, sql.ErrNoRows) {
			// Already handled by another relay or the batch sweep.
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		if err := r.dispatch(ctx, eventType, payload); err != nil {
			if !errors.Is(err, errBadPayload) {
				return nil, err
			}
			logging.Warn().Err(err).Str("event_id", id).Msg("dropping outbox event")
		}

		if err := markRow(ctx, tx, id); err != nil {
			return nil, err
		}
		return nil, tx.Commit()
	})
	return err
}

// processUnprocessedEvents sweeps the backlog in created_at order.
func (r *Relay) processUnprocessedEvents(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, batchProcessTimeout)
	defer cancel()

	_, err := r.dbCB.Execute(func() (interface{}, error) {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		defer tx.Rollback()

		rows, err := tx.QueryContext(ctx, `
			SELECT id, event_type, payload
			FROM outbox_events
			WHERE processed_at IS NULL
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED`, maxEventsPerBatch)
		if err != nil {
			return nil, err
		}

		type record struct {
			ID        string
			EventType string
			Payload   []byte
		}

		var records []record
		for rows.Next() {
			var rec record
			if err := rows.Scan(&rec.ID, &rec.EventType, &rec.Payload); err != nil {
				rows.Close()
				return nil, err
			}
			records = append(records, rec)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}

		for _, rec := range records {
			if err := r.dispatch(ctx, rec.EventType, rec.Payload); err != nil {
				if !errors.Is(err, errBadPayload) {
					// Leave the row for the next sweep.
					logging.Warn().Err(err).Str("event_id", rec.ID).Msg("publish failed")
					continue
				}
				logging.Warn().Err(err).Str("event_id", rec.ID).Msg("dropping outbox event")
			}

			if err := markRow(ctx, tx, rec.ID); err != nil {
				return nil, err
			}
		}

		return nil, tx.Commit()
	})
	return err
}

func markRow(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx, `UPDATE outbox_events SET processed_at = NOW() WHERE id = $1`, id)
	return err
}
