package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/domain"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/ports"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/logging"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/metrics"
)

// ImpersonationService moves an admin session in and out of a customer
// context. Each transition is a single whole-session Set followed by an audit
// append; a failed Set writes no audit entry.
//
// Two concurrent transitions on one session are last-writer-wins at the store.
// Each session belongs to one admin, so this is accepted rather than locked.
type ImpersonationService struct {
	sessions  ports.SessionStore
	customers ports.CustomerRepository
	audit     ports.AuditSink
	now       func() time.Time
}

var _ ports.ImpersonationService = (*ImpersonationService)(nil)

func NewImpersonationService(
	sessions ports.SessionStore,
	customers ports.CustomerRepository,
	audit ports.AuditSink,
) *ImpersonationService {
	return &ImpersonationService{
		sessions:  sessions,
		customers: customers,
		audit:     audit,
		now:       time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *ImpersonationService) WithClock(now func() time.Time) *ImpersonationService {
	s.now = now
	return s
}

func (s *ImpersonationService) Start(ctx context.Context, sessionID, customerID, resource string) (*domain.Session, error) {
	next, customer, err := s.start(ctx, sessionID, strings.TrimSpace(customerID))
	if err != nil {
		metrics.ImpersonationTransitions.WithLabelValues("start", outcomeOf(err)).Inc()
		return nil, err
	}

	s.appendAudit(ctx, domain.NewAuditLogEntry(
		domain.AuditImpersonateStart, next.User, *customer, resource, nil, next.Impersonation.StartedAt,
	))

	logging.Ctx(ctx).Info().
		Str("admin_id", next.User.ID).
		Str("customer_id", customer.ID).
		Str("session_id", next.ID).
		Msg("impersonation started")
	metrics.ImpersonationTransitions.WithLabelValues("start", "success").Inc()
	return next, nil
}

func (s *ImpersonationService) start(ctx context.Context, sessionID, customerID string) (*domain.Session, *domain.Customer, error) {
	current, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	switch current.Identity().Kind {
	case domain.IdentityAdmin:
	case domain.IdentityAdminImpersonating:
		return nil, nil, fmt.Errorf("%w: already impersonating customer %s", domain.ErrImpersonationState, current.Impersonation.CustomerID)
	default:
		return nil, nil, fmt.Errorf("%w: only admins can impersonate", domain.ErrAuthorization)
	}

	if customerID == "" {
		return nil, nil, fmt.Errorf("%w: empty customer id", domain.ErrCustomerNotFound)
	}
	customer, err := s.customers.FindCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("customer lookup failed: %w", err)
	}
	if customer.Status != domain.CustomerActive {
		return nil, nil, fmt.Errorf("%w: customer %s is %s", domain.ErrCustomerInactive, customer.ID, customer.Status)
	}

	next, err := current.WithImpersonation(customer.ID, s.now())
	if err != nil {
		return nil, nil, err
	}

	if err := s.sessions.Set(ctx, next); err != nil {
		return nil, nil, asTransient(err)
	}
	return next, customer, nil
}

func (s *ImpersonationService) End(ctx context.Context, sessionID, resource string) (*domain.Session, error) {
	current, err := s.load(ctx, sessionID)
	if err != nil {
		metrics.ImpersonationTransitions.WithLabelValues("end", outcomeOf(err)).Inc()
		return nil, err
	}

	next, ended, err := current.WithoutImpersonation()
	if err != nil {
		metrics.ImpersonationTransitions.WithLabelValues("end", outcomeOf(err)).Inc()
		return nil, err
	}

	if err := s.sessions.Set(ctx, next); err != nil {
		err = asTransient(err)
		metrics.ImpersonationTransitions.WithLabelValues("end", outcomeOf(err)).Inc()
		return nil, err
	}

	endedAt := s.now()
	duration := endedAt.Sub(ended.StartedAt).Round(time.Second)
	details := map[string]string{
		"duration":         duration.String(),
		"duration_seconds": strconv.FormatInt(int64(duration/time.Second), 10),
		"started_at":       ended.StartedAt.UTC().Format(time.RFC3339),
	}
	s.appendAudit(ctx, domain.NewAuditLogEntry(
		domain.AuditImpersonateEnd, next.User, s.customerOrID(ctx, ended.CustomerID), resource, details, endedAt,
	))

	logging.Ctx(ctx).Info().
		Str("admin_id", next.User.ID).
		Str("customer_id", ended.CustomerID).
		Dur("duration", duration).
		Msg("impersonation ended")
	metrics.ImpersonationTransitions.WithLabelValues("end", "success").Inc()
	return next, nil
}

// RecordAction audits a sensitive action an admin performs inside a customer
// context. Actions by customers on their own data are not audited here.
func (s *ImpersonationService) RecordAction(ctx context.Context, session *domain.Session, action domain.AuditAction, resource string, details map[string]string) error {
	if !session.IsImpersonating() {
		return nil
	}
	switch action {
	case domain.AuditImpersonatedAction, domain.AuditPatientDataAccess:
	default:
		return fmt.Errorf("action %q cannot be recorded directly", action)
	}

	customer := s.customerOrID(ctx, session.Impersonation.CustomerID)
	return s.audit.Append(ctx, domain.NewAuditLogEntry(action, session.User, customer, resource, details, s.now()))
}

func (s *ImpersonationService) load(ctx context.Context, sessionID string) (*domain.Session, error) {
	current, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, err
		}
		return nil, asTransient(err)
	}
	return current, nil
}

// customerOrID resolves the customer name for an audit entry, falling back to
// the bare id so an entry is still written.
func (s *ImpersonationService) customerOrID(ctx context.Context, customerID string) domain.Customer {
	customer, err := s.customers.FindCustomer(ctx, customerID)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("customer_id", customerID).Msg("customer lookup failed for audit entry")
		return domain.Customer{ID: customerID}
	}
	return *customer
}

// appendAudit runs before the caller redirects. A failure is logged and
// counted but does not undo the session transition.
func (s *ImpersonationService) appendAudit(ctx context.Context, entry domain.AuditLogEntry) {
	if err := s.audit.Append(ctx, entry); err != nil {
		metrics.AuditAppendFailures.WithLabelValues(string(entry.Action)).Inc()
		logging.Ctx(ctx).Error().Err(err).
			Str("action", string(entry.Action)).
			Str("log_id", entry.LogID).
			Str("admin_id", entry.AdminID).
			Str("customer_id", entry.CustomerID).
			Msg("audit append failed")
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrImpersonationState):
		return "state_error"
	case errors.Is(err, domain.ErrTransientSessionWrite):
		return "store_error"
	case errors.Is(err, domain.ErrCustomerNotFound):
		return "unknown_customer"
	case errors.Is(err, domain.ErrCustomerInactive):
		return "inactive_customer"
	case errors.Is(err, domain.ErrInvalidSession):
		return "invalid_session"
	case errors.Is(err, domain.ErrAuthorization), errors.Is(err, domain.ErrSessionNotFound):
		return "denied"
	default:
		return "error"
	}
}
