package domain

import (
	"errors"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func adminUser() User {
	return User{ID: "ADM-001", Email: "admin@labcorp.com", Name: "Lab Admin", Role: RoleAdmin, Status: UserActive}
}

func customerUser() User {
	return User{ID: "USR-101", Email: "orders@northside.example", Name: "Northside Orders", Role: RoleCustomer, CustomerID: strPtr("CUST-001"), Status: UserActive}
}

var now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestUserValidate(t *testing.T) {
	tests := []struct {
		name    string
		user    User
		wantErr bool
	}{
		{name: "admin_without_customer", user: adminUser(), wantErr: false},
		{name: "customer_with_customer", user: customerUser(), wantErr: false},
		{name: "admin_with_customer", user: func() User { u := adminUser(); u.CustomerID = strPtr("CUST-001"); return u }(), wantErr: true},
		{name: "customer_without_customer", user: func() User { u := customerUser(); u.CustomerID = nil; return u }(), wantErr: true},
		{name: "customer_with_empty_customer", user: func() User { u := customerUser(); u.CustomerID = strPtr(""); return u }(), wantErr: true},
		{name: "unknown_role", user: func() User { u := adminUser(); u.Role = "auditor"; return u }(), wantErr: true},
		{name: "unknown_status", user: func() User { u := adminUser(); u.Status = "locked"; return u }(), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidUser) {
				t.Errorf("expected ErrInvalidUser, got %v", err)
			}
		})
	}
}

func TestNewSession_AdminHasNoOverlay(t *testing.T) {
	s, err := NewSession(adminUser(), time.Hour, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.ID == "" {
		t.Error("expected session id")
	}
	if s.IsImpersonating() {
		t.Error("new session must not be impersonating")
	}
	if s.User.CustomerID != nil {
		t.Error("admin session must not carry a customer id")
	}
	if !s.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("unexpected expiry %v", s.ExpiresAt)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("new session should be valid: %v", err)
	}
}

func TestNewSession_RejectsInvalidUser(t *testing.T) {
	u := customerUser()
	u.CustomerID = nil
	if _, err := NewSession(u, time.Hour, now); !errors.Is(err, ErrInvalidUser) {
		t.Errorf("expected ErrInvalidUser, got %v", err)
	}
}

func TestWithImpersonation_SetsWholeOverlay(t *testing.T) {
	s, _ := NewSession(adminUser(), time.Hour, now)

	next, err := s.WithImpersonation("CUST-001", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !next.IsImpersonating() {
		t.Fatal("expected impersonating session")
	}
	if next.Impersonation.CustomerID != "CUST-001" {
		t.Errorf("expected CUST-001, got %q", next.Impersonation.CustomerID)
	}
	if next.Impersonation.OriginalAdminID != "ADM-001" {
		t.Errorf("expected original admin ADM-001, got %q", next.Impersonation.OriginalAdminID)
	}
	if s.IsImpersonating() {
		t.Error("original session value must not be modified")
	}
	if err := next.Validate(); err != nil {
		t.Errorf("overlay session should be valid: %v", err)
	}
}

func TestWithImpersonation_RejectsNested(t *testing.T) {
	s, _ := NewSession(adminUser(), time.Hour, now)
	first, _ := s.WithImpersonation("CUST-001", now)

	_, err := first.WithImpersonation("CUST-002", now)
	if !errors.Is(err, ErrImpersonationState) {
		t.Fatalf("expected ErrImpersonationState, got %v", err)
	}
	if first.Impersonation.CustomerID != "CUST-001" {
		t.Error("existing overlay must be unchanged")
	}
}

func TestWithImpersonation_RejectsCustomer(t *testing.T) {
	s, _ := NewSession(customerUser(), time.Hour, now)
	if _, err := s.WithImpersonation("CUST-002", now); !errors.Is(err, ErrAuthorization) {
		t.Errorf("expected ErrAuthorization, got %v", err)
	}
}

func TestWithoutImpersonation(t *testing.T) {
	s, _ := NewSession(adminUser(), time.Hour, now)
	if _, _, err := s.WithoutImpersonation(); !errors.Is(err, ErrImpersonationState) {
		t.Fatalf("expected ErrImpersonationState when not impersonating, got %v", err)
	}

	imp, _ := s.WithImpersonation("CUST-001", now)
	cleared, ended, err := imp.WithoutImpersonation()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cleared.IsImpersonating() || cleared.Impersonation != nil {
		t.Error("overlay must be fully cleared")
	}
	if ended.CustomerID != "CUST-001" || !ended.StartedAt.Equal(now) {
		t.Errorf("unexpected ended overlay %+v", ended)
	}
	if !imp.IsImpersonating() {
		t.Error("source session must be unchanged")
	}
}

// Overlay fields are either all present or all absent.
func TestSessionValidate_OverlayInvariant(t *testing.T) {
	base, _ := NewSession(adminUser(), time.Hour, now)

	tests := []struct {
		name    string
		overlay *Impersonation
		user    User
		wantErr bool
	}{
		{name: "no_overlay", overlay: nil, user: adminUser(), wantErr: false},
		{name: "complete_overlay", overlay: &Impersonation{CustomerID: "CUST-001", OriginalAdminID: "ADM-001"}, user: adminUser(), wantErr: false},
		{name: "missing_customer", overlay: &Impersonation{OriginalAdminID: "ADM-001"}, user: adminUser(), wantErr: true},
		{name: "missing_admin", overlay: &Impersonation{CustomerID: "CUST-001"}, user: adminUser(), wantErr: true},
		{name: "foreign_admin", overlay: &Impersonation{CustomerID: "CUST-001", OriginalAdminID: "ADM-999"}, user: adminUser(), wantErr: true},
		{name: "customer_overlay", overlay: &Impersonation{CustomerID: "CUST-002", OriginalAdminID: "USR-101"}, user: customerUser(), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := *base
			s.User = tt.user
			s.Impersonation = tt.overlay
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSessionIsExpired(t *testing.T) {
	s, _ := NewSession(adminUser(), time.Minute, now)
	if s.IsExpired(now) {
		t.Error("fresh session should not be expired")
	}
	if !s.IsExpired(now.Add(time.Minute)) {
		t.Error("session should expire at ExpiresAt")
	}
}
