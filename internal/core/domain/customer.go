package domain

type CustomerStatus string

const (
	CustomerActive    CustomerStatus = "active"
	CustomerSuspended CustomerStatus = "suspended"
)

// Customer is a partner account (clinic, practice, lab network) that owns
// sites and orders.
type Customer struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	AccountNumber string         `json:"account_number"`
	Status        CustomerStatus `json:"status"`
}
