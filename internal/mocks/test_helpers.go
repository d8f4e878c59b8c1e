package mocks

import (
	"time"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/domain"
)

// TestTime is a fixed clock value for deterministic sessions and audit entries.
var TestTime = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

// CreateTestAdmin returns an active admin with no customer affiliation.
func CreateTestAdmin() domain.User {
	return domain.User{
		ID:     "ADM-001",
		Email:  "admin@labcorp.com",
		Name:   "Dana Whitfield",
		Role:   domain.RoleAdmin,
		Status: domain.UserActive,
	}
}

// CreateTestCustomerUser returns an active customer user of customerID.
func CreateTestCustomerUser(customerID string) domain.User {
	return domain.User{
		ID:         "USR-101",
		Email:      "orders@northside.example",
		Name:       "Priya Raman",
		Role:       domain.RoleCustomer,
		CustomerID: &customerID,
		Status:     domain.UserActive,
	}
}

func CreateTestCustomer(id, name string) domain.Customer {
	return domain.Customer{
		ID:            id,
		Name:          name,
		AccountNumber: "ACCT-" + id,
		Status:        domain.CustomerActive,
	}
}

// NewSeededRepository returns a repository holding the test admin, a customer
// user of CUST-001 and two customers.
func NewSeededRepository() *MockUserRepository {
	repo := NewMockUserRepository()
	repo.SeedUser(CreateTestAdmin())
	repo.SeedUser(CreateTestCustomerUser("CUST-001"))
	repo.SeedCustomer(CreateTestCustomer("CUST-001", "Northside Family Clinic"))
	repo.SeedCustomer(CreateTestCustomer("CUST-002", "Riverbend Pediatrics"))
	return repo
}

// StoreAdminSession stores a fresh admin session and returns it.
func StoreAdminSession(store *MockSessionStore) *domain.Session {
	s, err := domain.NewSession(CreateTestAdmin(), 8*time.Hour, TestTime)
	if err != nil {
		panic(err)
	}
	store.sessions[s.ID] = *s
	return s
}
