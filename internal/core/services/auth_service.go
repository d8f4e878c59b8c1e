package services

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/domain"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/ports"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/logging"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/metrics"
)

const tokenIssuer = "partner-portal"

// SessionClaims is the token payload. The stored session stays authoritative;
// the overlay fields mirror it as of the last issue.
type SessionClaims struct {
	SessionID              string  `json:"sid"`
	Role                   string  `json:"role"`
	CustomerID             *string `json:"customer_id"`
	IsImpersonating        bool    `json:"is_impersonating"`
	ImpersonatedCustomerID string  `json:"impersonated_customer_id,omitempty"`
	OriginalAdminID        string  `json:"original_admin_id,omitempty"`
	jwt.RegisteredClaims
}

type AuthService struct {
	users      ports.UserRepository
	sessions   ports.SessionStore
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	ttl        time.Duration
	now        func() time.Time
}

var _ ports.AuthService = (*AuthService)(nil)

func NewAuthService(
	users ports.UserRepository,
	sessions ports.SessionStore,
	privateKey *rsa.PrivateKey,
	ttl time.Duration,
) *AuthService {
	return &AuthService{
		users:      users,
		sessions:   sessions,
		privateKey: privateKey,
		publicKey:  &privateKey.PublicKey,
		ttl:        ttl,
		now:        time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// Authenticate signs in an admin. Password verification is deferred: any
// non-empty password is accepted. Every rejection is domain.ErrAuthentication
// so callers cannot tell an unknown email from a disallowed role.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*domain.Session, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		metrics.SignInAttempts.WithLabelValues("rejected").Inc()
		return nil, "", domain.ErrAuthentication
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			logging.Ctx(ctx).Error().Err(err).Msg("user lookup failed during sign-in")
		}
		metrics.SignInAttempts.WithLabelValues("rejected").Inc()
		return nil, "", domain.ErrAuthentication
	}

	if user.Role != domain.RoleAdmin || !user.IsActive() {
		logging.Ctx(ctx).Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("sign-in refused for role or status")
		metrics.SignInAttempts.WithLabelValues("rejected").Inc()
		return nil, "", domain.ErrAuthentication
	}

	session, err := domain.NewSession(*user, s.ttl, s.now())
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("user_id", user.ID).Msg("stored user violates invariants")
		metrics.SignInAttempts.WithLabelValues("rejected").Inc()
		return nil, "", domain.ErrAuthentication
	}

	if err := s.sessions.Set(ctx, session); err != nil {
		metrics.SignInAttempts.WithLabelValues("store_error").Inc()
		return nil, "", asTransient(err)
	}

	token, err := s.IssueToken(session)
	if err != nil {
		metrics.SignInAttempts.WithLabelValues("token_error").Inc()
		return nil, "", err
	}

	logging.Ctx(ctx).Info().Str("user_id", user.ID).Str("session_id", session.ID).Msg("session created")
	metrics.SignInAttempts.WithLabelValues("success").Inc()
	return session, token, nil
}

// IssueToken signs the session's current state into an RS256 token.
func (s *AuthService) IssueToken(session *domain.Session) (string, error) {
	claims := SessionClaims{
		SessionID:  session.ID,
		Role:       string(session.User.Role),
		CustomerID: session.User.CustomerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   session.User.ID,
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	if imp := session.Impersonation; imp != nil {
		claims.IsImpersonating = true
		claims.ImpersonatedCustomerID = imp.CustomerID
		claims.OriginalAdminID = imp.OriginalAdminID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Session verifies the token and loads the stored session it names.
func (s *AuthService) Session(ctx context.Context, token string) (*domain.Session, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}

	if session.User.ID != claims.Subject {
		return nil, fmt.Errorf("%w: token subject does not own session", domain.ErrInvalidSession)
	}
	if session.IsExpired(s.now()) {
		return nil, domain.ErrSessionNotFound
	}
	if err := session.Validate(); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	if err := s.sessions.Clear(ctx, claims.SessionID); err != nil {
		return asTransient(err)
	}
	logging.Ctx(ctx).Info().Str("session_id", claims.SessionID).Msg("session destroyed")
	return nil
}

func (s *AuthService) parse(token string) (*SessionClaims, error) {
	if token == "" {
		return nil, domain.ErrSessionNotFound
	}

	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.publicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSession, err)
	}
	if claims.SessionID == "" || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing session claims", domain.ErrInvalidSession)
	}
	return claims, nil
}

// asTransient marks a store failure as retryable. An invalid session (expired
// or failing validation) is passed through since a retry cannot succeed.
func asTransient(err error) error {
	if errors.Is(err, domain.ErrTransientSessionWrite) || errors.Is(err, domain.ErrInvalidSession) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrTransientSessionWrite, err)
}
