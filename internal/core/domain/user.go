package domain

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

// User is immutable for the lifetime of a session. CustomerID is nil for
// admins and set for customers.
type User struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	Role       Role       `json:"role"`
	CustomerID *string    `json:"customer_id,omitempty"`
	Status     UserStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (u User) Validate() error {
	if u.ID == "" || u.Email == "" {
		return fmt.Errorf("%w: id and email are required", ErrInvalidUser)
	}

	switch u.Role {
	case RoleAdmin:
		if u.CustomerID != nil {
			return fmt.Errorf("%w: admin %s must not belong to a customer", ErrInvalidUser, u.ID)
		}
	case RoleCustomer:
		if u.CustomerID == nil || *u.CustomerID == "" {
			return fmt.Errorf("%w: customer user %s has no customer id", ErrInvalidUser, u.ID)
		}
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidUser, u.Role)
	}

	switch u.Status {
	case UserActive, UserInactive:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidUser, u.Status)
	}
	return nil
}

func (u User) IsActive() bool {
	return u.Status == UserActive
}

// Customer returns the user's own customer affiliation.
func (u User) Customer() (string, bool) {
	if u.CustomerID == nil || *u.CustomerID == "" {
		return "", false
	}
	return *u.CustomerID, true
}
