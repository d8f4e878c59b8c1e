package config

import (
	"time"

	"github.com/sony/gobreaker"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/logging"
)

// Breaker names shared by the adapters.
const (
	BreakerRedisSessions   = "Redis-Sessions"
	BreakerPostgres        = "PostgreSQL"
	BreakerRelayPostgres   = "Relay-PostgreSQL"
	BreakerRabbitPublisher = "RabbitMQ-Publisher"
)

// NewCircuitBreaker creates a circuit breaker with standard settings.
// The name parameter uniquely identifies the circuit breaker instance.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Second * 10,
		Timeout:     breakerTimeout(name),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Open circuit after 3 consecutive failures
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})
}

// breakerTimeout aligns open-state timeouts with the health check timeout (5s)
// for the session store; databases and the broker get longer.
func breakerTimeout(name string) time.Duration {
	switch name {
	case BreakerRedisSessions:
		return time.Second * 5
	case BreakerPostgres, BreakerRelayPostgres:
		return time.Second * 10
	default:
		return time.Second * 30
	}
}
