package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Impersonation is the overlay an admin session carries while acting as a
// customer. It is set and cleared as one value.
type Impersonation struct {
	CustomerID      string    `json:"customer_id"`
	OriginalAdminID string    `json:"original_admin_id"`
	StartedAt       time.Time `json:"started_at"`
}

// Session is created on sign-in and only ever replaced whole: the overlay
// transitions return a new value which the store writes in a single call.
type Session struct {
	ID            string         `json:"id"`
	User          User           `json:"user"`
	Impersonation *Impersonation `json:"impersonation,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	ExpiresAt     time.Time      `json:"expires_at"`
}

func NewSession(user User, ttl time.Duration, now time.Time) (*Session, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: ttl must be positive", ErrInvalidSession)
	}
	return &Session{
		ID:        uuid.NewString(),
		User:      user,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

func (s *Session) IsImpersonating() bool {
	return s != nil && s.Impersonation != nil
}

func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Validate checks the user invariants and that an overlay is complete and
// belongs to the admin who owns the session.
func (s *Session) Validate() error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidSession)
	}
	if err := s.User.Validate(); err != nil {
		return err
	}
	if imp := s.Impersonation; imp != nil {
		if imp.CustomerID == "" || imp.OriginalAdminID == "" {
			return fmt.Errorf("%w: incomplete impersonation overlay", ErrInvalidSession)
		}
		if s.User.Role != RoleAdmin {
			return fmt.Errorf("%w: only admins can impersonate", ErrInvalidSession)
		}
		if imp.OriginalAdminID != s.User.ID {
			return fmt.Errorf("%w: overlay admin %s does not own session", ErrInvalidSession, imp.OriginalAdminID)
		}
	}
	return nil
}

// WithImpersonation returns a copy of the session acting as customerID.
func (s *Session) WithImpersonation(customerID string, now time.Time) (*Session, error) {
	if s.User.Role != RoleAdmin {
		return nil, fmt.Errorf("%w: user %s is not an admin", ErrAuthorization, s.User.ID)
	}
	if s.IsImpersonating() {
		return nil, fmt.Errorf("%w: already impersonating customer %s", ErrImpersonationState, s.Impersonation.CustomerID)
	}
	if customerID == "" {
		return nil, fmt.Errorf("%w: customer id is required", ErrInvalidSession)
	}

	next := *s
	next.Impersonation = &Impersonation{
		CustomerID:      customerID,
		OriginalAdminID: s.User.ID,
		StartedAt:       now,
	}
	return &next, nil
}

// WithoutImpersonation returns a copy with the overlay cleared, along with
// the overlay that was removed.
func (s *Session) WithoutImpersonation() (*Session, Impersonation, error) {
	if !s.IsImpersonating() {
		return nil, Impersonation{}, fmt.Errorf("%w: not impersonating", ErrImpersonationState)
	}
	ended := *s.Impersonation

	next := *s
	next.Impersonation = nil
	return &next, ended, nil
}

// Identity derives the effective identity. It is recomputed on every call.
func (s *Session) Identity() EffectiveIdentity {
	return IdentityOf(s)
}

// ActiveCustomerID is the impersonated customer while impersonating, else the
// user's own customer, else none (an admin acting as admin).
func (s *Session) ActiveCustomerID() (string, bool) {
	return s.Identity().ActiveCustomerID()
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.User.Role == RoleAdmin
}

// IsViewingAsAdmin separates an admin acting as admin from one acting as a customer.
func (s *Session) IsViewingAsAdmin() bool {
	return s.IsAdmin() && !s.IsImpersonating()
}
