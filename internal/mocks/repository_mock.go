// Package mocks provides in-memory implementations of the port interfaces
// with call tracking and error injection, for tests.
package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/domain"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/ports"
)

// MockUserRepository implements ports.UserRepository and ports.CustomerRepository.
type MockUserRepository struct {
	mu sync.RWMutex

	users     map[string]*domain.User
	customers map[string]*domain.Customer

	// Call tracking for verification
	FindByEmailCalls  []string
	FindCustomerCalls []string

	// Error injection for testing error scenarios
	FindByEmailError  error
	FindCustomerError error
	ListError         error
}

var (
	_ ports.UserRepository     = (*MockUserRepository)(nil)
	_ ports.CustomerRepository = (*MockUserRepository)(nil)
)

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:     make(map[string]*domain.User),
		customers: make(map[string]*domain.Customer),
	}
}

// SeedUser adds a user for test setup.
func (m *MockUserRepository) SeedUser(user domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[strings.ToLower(user.Email)] = &user
}

// SeedCustomer adds a customer for test setup.
func (m *MockUserRepository) SeedCustomer(customer domain.Customer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[customer.ID] = &customer
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FindByEmailCalls = append(m.FindByEmailCalls, email)
	if m.FindByEmailError != nil {
		return nil, m.FindByEmailError
	}

	user, ok := m.users[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if user.ID == id {
			u := *user
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) FindCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FindCustomerCalls = append(m.FindCustomerCalls, id)
	if m.FindCustomerError != nil {
		return nil, m.FindCustomerError
	}

	customer, ok := m.customers[id]
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	c := *customer
	return &c, nil
}

func (m *MockUserRepository) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.ListError != nil {
		return nil, m.ListError
	}

	out := make([]domain.Customer, 0, len(m.customers))
	for _, c := range m.customers {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
