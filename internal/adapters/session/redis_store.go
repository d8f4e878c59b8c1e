// Package session stores portal sessions in Redis.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/config"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/domain"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/ports"
)

const keyPrefix = "portal:session:"

// Client is the subset of *redis.Client the store needs.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps one JSON value per session. Set overwrites the value in a
// single command, so readers never see a partially applied overlay.
type RedisStore struct {
	client Client
	cb     *gobreaker.CircuitBreaker
	now    func() time.Time
}

var _ ports.SessionStore = (*RedisStore)(nil)

func NewRedisStore(client Client) *RedisStore {
	return &RedisStore{
		client: client,
		cb:     config.NewCircuitBreaker(config.BreakerRedisSessions),
		now:    time.Now,
	}
}

func (s *RedisStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	if id == "" {
		return nil, domain.ErrSessionNotFound
	}

	result, err := s.cb.Execute(func() (interface{}, error) {
		raw, err := s.client.Get(ctx, key(id)).Result()
		if errors.Is(err, redis.Nil) {
			// A missing key is an answer, not a failure.
			return "", nil
		}
		return raw, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: session read: %v", domain.ErrTransientSessionWrite, err)
	}

	raw := result.(string)
	if raw == "" {
		return nil, domain.ErrSessionNotFound
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("%w: undecodable session %s: %v", domain.ErrInvalidSession, id, err)
	}
	return &session, nil
}

func (s *RedisStore) Set(ctx context.Context, session *domain.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}

	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("%w: session %s already expired", domain.ErrInvalidSession, session.ID)
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	_, err = s.cb.Execute(func() (interface{}, error) {
		return nil, s.client.Set(ctx, key(session.ID), string(payload), ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransientSessionWrite, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, id string) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.client.Del(ctx, key(id)).Err()
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransientSessionWrite, err)
	}
	return nil
}

func key(id string) string {
	return keyPrefix + id
}
