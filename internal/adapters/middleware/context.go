package middleware

import (
	"context"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/domain"
)

type contextKey string

const sessionKey contextKey = "session"

// WithSession places the request's session in ctx.
func WithSession(ctx context.Context, s *domain.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func SessionFromContext(ctx context.Context) (*domain.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*domain.Session)
	return s, ok && s != nil
}

// IdentityFromContext derives the effective identity from the session in
// ctx. It is Anonymous when there is none.
func IdentityFromContext(ctx context.Context) domain.EffectiveIdentity {
	s, _ := SessionFromContext(ctx)
	return domain.IdentityOf(s)
}
