// Package repository provides the user and customer directories: a fixed
// in-memory seed for development and a PostgreSQL-backed store.
package repository

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/domain"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/ports"
)

// SeedRepository serves a fixed user and customer set. It is read-only.
type SeedRepository struct {
	users     map[string]domain.User
	customers map[string]domain.Customer
}

var (
	_ ports.UserRepository     = (*SeedRepository)(nil)
	_ ports.CustomerRepository = (*SeedRepository)(nil)
)

func NewSeedRepository() *SeedRepository {
	created := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	cust := func(id string) *string { return &id }

	users := []domain.User{
		{ID: "ADM-001", Email: "admin@labcorp.com", Name: "Dana Whitfield", Role: domain.RoleAdmin, Status: domain.UserActive},
		{ID: "ADM-002", Email: "support@labcorp.com", Name: "Marcus Lee", Role: domain.RoleAdmin, Status: domain.UserActive},
		{ID: "ADM-003", Email: "former.admin@labcorp.com", Name: "Jo Carter", Role: domain.RoleAdmin, Status: domain.UserInactive},
		{ID: "USR-101", Email: "orders@northside.example", Name: "Priya Raman", Role: domain.RoleCustomer, CustomerID: cust("CUST-001"), Status: domain.UserActive},
		{ID: "USR-201", Email: "office@riverbend.example", Name: "Tom Okafor", Role: domain.RoleCustomer, CustomerID: cust("CUST-002"), Status: domain.UserActive},
	}
	customers := []domain.Customer{
		{ID: "CUST-001", Name: "Northside Family Clinic", AccountNumber: "LC-100245", Status: domain.CustomerActive},
		{ID: "CUST-002", Name: "Riverbend Pediatrics", AccountNumber: "LC-100871", Status: domain.CustomerActive},
		{ID: "CUST-003", Name: "Lakeview Occupational Health", AccountNumber: "LC-101332", Status: domain.CustomerSuspended},
	}

	r := &SeedRepository{
		users:     make(map[string]domain.User, len(users)),
		customers: make(map[string]domain.Customer, len(customers)),
	}
	for _, u := range users {
		u.CreatedAt = created
		r.users[u.Email] = u
	}
	for _, c := range customers {
		r.customers[c.ID] = c
	}
	return r
}

func (r *SeedRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, ok := r.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *SeedRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *SeedRepository) FindCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	return &c, nil
}

func (r *SeedRepository) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	out := make([]domain.Customer, 0, len(r.customers))
	for _, c := range r.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
