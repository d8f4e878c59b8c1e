package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"github.com/sony/gobreaker"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/config"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/domain"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/ports"
)

// SQLRepository reads users and customers from PostgreSQL.
type SQLRepository struct {
	db *sql.DB
	cb *gobreaker.CircuitBreaker
}

var (
	_ ports.UserRepository     = (*SQLRepository)(nil)
	_ ports.CustomerRepository = (*SQLRepository)(nil)
)

func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{
		db: db,
		cb: config.NewCircuitBreaker(config.BreakerPostgres),
	}
}

const userColumns = "id, email, name, role, customer_id, status, created_at"

func (r *SQLRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findUser(ctx, "SELECT "+userColumns+" FROM users WHERE lower(email) = $1", strings.ToLower(email))
}

func (r *SQLRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findUser(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
}

func (r *SQLRepository) findUser(ctx context.Context, query, arg string) (*domain.User, error) {
	result, err := r.query(func() (interface{}, error) {
		var (
			user       domain.User
			customerID sql.NullString
		)
		err := r.db.QueryRowContext(ctx, query, arg).Scan(
			&user.ID, &user.Email, &user.Name, &user.Role, &customerID, &user.Status, &user.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if customerID.Valid {
			user.CustomerID = &customerID.String
		}
		return &user, nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("user query failed: %w", err)
	}
	return result.(*domain.User), nil
}

func (r *SQLRepository) FindCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	result, err := r.query(func() (interface{}, error) {
		var c domain.Customer
		err := r.db.QueryRowContext(ctx,
			"SELECT id, name, account_number, status FROM customers WHERE id = $1",
			id,
		).Scan(&c.ID, &c.Name, &c.AccountNumber, &c.Status)
		if err != nil {
			return nil, err
		}
		return &c, nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("customer query failed: %w", err)
	}
	return result.(*domain.Customer), nil
}

func (r *SQLRepository) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	result, err := r.query(func() (interface{}, error) {
		rows, err := r.db.QueryContext(ctx,
			"SELECT id, name, account_number, status FROM customers ORDER BY id",
		)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var customers []domain.Customer
		for rows.Next() {
			var c domain.Customer
			if err := rows.Scan(&c.ID, &c.Name, &c.AccountNumber, &c.Status); err != nil {
				return nil, err
			}
			customers = append(customers, c)
		}
		return customers, rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("customer list failed: %w", err)
	}
	return result.([]domain.Customer), nil
}

// query runs fn through the breaker. sql.ErrNoRows is returned to the caller
// without counting as a failure.
func (r *SQLRepository) query(fn func() (interface{}, error)) (interface{}, error) {
	var notFound bool
	result, err := r.cb.Execute(func() (interface{}, error) {
		v, err := fn()
		if errors.Is(err, sql.ErrNoRows) {
			notFound = true
			return nil, nil
		}
		return v, err
	})
	if notFound {
		return nil, sql.ErrNoRows
	}
	return result, err
}
