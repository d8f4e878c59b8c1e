package ports

import (
	"context"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/domain"
)

// SessionStore holds the authoritative session state. Set replaces the whole
// session value in one write; concurrent writers are last-writer-wins.
type SessionStore interface {
	// Get returns domain.ErrSessionNotFound for unknown or expired sessions and
	// domain.ErrTransientSessionWrite when the store is unavailable.
	Get(ctx context.Context, id string) (*domain.Session, error)
	Set(ctx context.Context, session *domain.Session) error
	Clear(ctx context.Context, id string) error
}
