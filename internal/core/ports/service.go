package ports

import (
	"context"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/domain"
)

type AuthService interface {
	// Authenticate returns the new session and its signed token.
	Authenticate(ctx context.Context, email, password string) (*domain.Session, string, error)
	// Session resolves a token to the current stored session.
	Session(ctx context.Context, token string) (*domain.Session, error)
	// IssueToken signs a token for an updated session.
	IssueToken(session *domain.Session) (string, error)
	Logout(ctx context.Context, token string) error
}

type ImpersonationService interface {
	Start(ctx context.Context, sessionID, customerID, resource string) (*domain.Session, error)
	End(ctx context.Context, sessionID, resource string) (*domain.Session, error)
	RecordAction(ctx context.Context, session *domain.Session, action domain.AuditAction, resource string, details map[string]string) error
}
