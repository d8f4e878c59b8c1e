package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/domain"
)

func TestSeedRepository_Users(t *testing.T) {
	repo := NewSeedRepository()
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		wantID   string
		wantRole domain.Role
		wantErr  error
	}{
		{name: "primary_admin", email: "admin@labcorp.com", wantID: "ADM-001", wantRole: domain.RoleAdmin},
		{name: "case_insensitive", email: "Support@LabCorp.com", wantID: "ADM-002", wantRole: domain.RoleAdmin},
		{name: "customer_user", email: "orders@northside.example", wantID: "USR-101", wantRole: domain.RoleCustomer},
		{name: "unknown", email: "nope@x.com", wantErr: domain.ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := repo.FindByEmail(ctx, tt.email)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if u.ID != tt.wantID || u.Role != tt.wantRole {
				t.Errorf("got %s/%s, want %s/%s", u.ID, u.Role, tt.wantID, tt.wantRole)
			}
		})
	}
}

func TestSeedRepository_UsersAreValid(t *testing.T) {
	repo := NewSeedRepository()
	for email, u := range repo.users {
		if err := u.Validate(); err != nil {
			t.Errorf("seed user %s invalid: %v", email, err)
		}
	}
}

func TestSeedRepository_Customers(t *testing.T) {
	repo := NewSeedRepository()
	ctx := context.Background()

	c, err := repo.FindCustomer(ctx, "CUST-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Name != "Northside Family Clinic" {
		t.Errorf("unexpected customer %+v", c)
	}

	if _, err := repo.FindCustomer(ctx, "CUST-999"); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Errorf("expected not found, got %v", err)
	}

	list, err := repo.ListCustomers(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 3 || list[0].ID != "CUST-001" || list[2].ID != "CUST-003" {
		t.Errorf("expected customers sorted by id, got %+v", list)
	}

	u, err := repo.FindByID(ctx, "USR-101")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id, ok := u.Customer(); !ok || id != "CUST-001" {
		t.Errorf("expected CUST-001 affiliation, got %q", id)
	}
}
