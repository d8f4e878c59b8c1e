package config

import (
	"errors"
	"fmt"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// RelayConfig holds configuration for the audit outbox relay.
// This is a minimal config that only includes what the relay needs.
type RelayConfig struct {
	DatabaseURL    string `koanf:"database_url"`
	RabbitMQURL    string `koanf:"rabbitmq_url"`
	AuditQueueName string `koanf:"audit_queue_name"`
	HealthAddr     string `koanf:"health_addr"`
	LogLevel       string `koanf:"log_level"`
}

// LoadRelayConfig reads RELAY_* environment variables over defaults.
func LoadRelayConfig() (*RelayConfig, error) {
	k := koanf.New(".")

	defaults := RelayConfig{
		AuditQueueName: "portal.audit",
		HealthAddr:     ":8090",
		LogLevel:       "info",
	}
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(env.Provider("RELAY_", ".", relayEnvKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &RelayConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal relay configuration: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("RELAY_DATABASE_URL environment variable is required")
	}
	if cfg.RabbitMQURL == "" {
		return nil, errors.New("RELAY_RABBITMQ_URL environment variable is required")
	}
	return cfg, nil
}

func relayEnvKey(s string) string {
	return envKeyWithPrefix(s, "RELAY_")
}
