package ports

import (
	"context"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/domain"
)

type UserRepository interface {
	// FindByEmail returns domain.ErrUserNotFound when no user matches.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

type CustomerRepository interface {
	// FindCustomer returns domain.ErrCustomerNotFound when no customer matches.
	FindCustomer(ctx context.Context, id string) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
}
