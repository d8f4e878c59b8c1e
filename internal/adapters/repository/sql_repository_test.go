package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/domain"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/mocks"
)

var userCols = []string{"id", "email", "name", "role", "customer_id", "status", "created_at"}

func newSQLRepository(t *testing.T, query func(string, []driver.Value) (*mocks.MockSQLResult, error)) *SQLRepository {
	t.Helper()
	d := mocks.NewMockSQLDriver()
	d.Query = query
	db := mocks.NewMockDB(d)
	t.Cleanup(func() { db.Close() })
	return NewSQLRepository(db)
}

func TestSQLRepository_MissesDoNotTripBreaker(t *testing.T) {
	repo := newSQLRepository(t, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := repo.FindByEmail(ctx, "nobody@example.com"); !errors.Is(err, domain.ErrUserNotFound) {
			t.Fatalf("attempt %d: expected ErrUserNotFound, got %v", i, err)
		}
		if _, err := repo.FindByID(ctx, "USR-404"); !errors.Is(err, domain.ErrUserNotFound) {
			t.Fatalf("attempt %d: expected ErrUserNotFound, got %v", i, err)
		}
		if _, err := repo.FindCustomer(ctx, "CUST-404"); !errors.Is(err, domain.ErrCustomerNotFound) {
			t.Fatalf("attempt %d: expected ErrCustomerNotFound, got %v", i, err)
		}
	}

	if state := repo.cb.State(); state != gobreaker.StateClosed {
		t.Errorf("expected breaker closed after misses, got %s", state)
	}
	if counts := repo.cb.Counts(); counts.TotalFailures != 0 {
		t.Errorf("expected no counted failures, got %d", counts.TotalFailures)
	}
}

func TestSQLRepository_QueryFailuresTripBreaker(t *testing.T) {
	repo := newSQLRepository(t, func(string, []driver.Value) (*mocks.MockSQLResult, error) {
		return nil, errors.New("connection refused")
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := repo.FindCustomer(ctx, "CUST-001")
		if err == nil || errors.Is(err, domain.ErrCustomerNotFound) {
			t.Fatalf("attempt %d: expected query failure, got %v", i, err)
		}
	}

	if state := repo.cb.State(); state != gobreaker.StateOpen {
		t.Errorf("expected breaker open, got %s", state)
	}
	if _, err := repo.FindCustomer(ctx, "CUST-001"); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected open-state rejection, got %v", err)
	}
}

func TestSQLRepository_FindUser(t *testing.T) {
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		customerID   driver.Value
		wantCustomer string
	}{
		{name: "customer_user", customerID: "CUST-001", wantCustomer: "CUST-001"},
		{name: "admin_without_customer", customerID: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotArgs []driver.Value
			repo := newSQLRepository(t, func(query string, args []driver.Value) (*mocks.MockSQLResult, error) {
				if !strings.Contains(query, "lower(email)") {
					t.Errorf("expected case-insensitive lookup, got %q", query)
				}
				gotArgs = args
				return &mocks.MockSQLResult{
					Columns: userCols,
					Rows: [][]driver.Value{
						{"USR-101", "orders@northside.example", "Dana Reyes", "customer", tt.customerID, "active", created},
					},
				}, nil
			})

			u, err := repo.FindByEmail(context.Background(), "Orders@Northside.example")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(gotArgs) != 1 || gotArgs[0] != "orders@northside.example" {
				t.Errorf("expected lowered email argument, got %v", gotArgs)
			}
			if u.ID != "USR-101" || u.Role != domain.RoleCustomer || !u.CreatedAt.Equal(created) {
				t.Errorf("unexpected user %+v", u)
			}
			switch {
			case tt.wantCustomer == "" && u.CustomerID != nil:
				t.Errorf("expected no customer, got %q", *u.CustomerID)
			case tt.wantCustomer != "" && (u.CustomerID == nil || *u.CustomerID != tt.wantCustomer):
				t.Errorf("expected customer %q, got %v", tt.wantCustomer, u.CustomerID)
			}
		})
	}
}

func TestSQLRepository_ListCustomers(t *testing.T) {
	repo := newSQLRepository(t, func(string, []driver.Value) (*mocks.MockSQLResult, error) {
		return &mocks.MockSQLResult{
			Columns: []string{"id", "name", "account_number", "status"},
			Rows: [][]driver.Value{
				{"CUST-001", "Northside Family Clinic", "ACC-1001", "active"},
				{"CUST-003", "Lakeview Health", "ACC-1003", "suspended"},
			},
		}, nil
	})

	customers, err := repo.ListCustomers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(customers) != 2 {
		t.Fatalf("expected 2 customers, got %d", len(customers))
	}
	if customers[1].Status != domain.CustomerSuspended {
		t.Errorf("expected suspended status, got %q", customers[1].Status)
	}
}
