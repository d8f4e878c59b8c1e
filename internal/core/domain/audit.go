package domain

import (
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditImpersonateStart   AuditAction = "impersonate_start"
	AuditImpersonateEnd     AuditAction = "impersonate_end"
	AuditImpersonatedAction AuditAction = "impersonated_action"
	AuditPatientDataAccess  AuditAction = "patient_data_access"
)

// AuditLogEntry records a sensitive admin action. Entries are append-only.
type AuditLogEntry struct {
	LogID        string            `json:"log_id"`
	Timestamp    time.Time         `json:"timestamp"`
	AdminID      string            `json:"admin_id"`
	AdminName    string            `json:"admin_name"`
	Action       AuditAction       `json:"action"`
	CustomerID   string            `json:"customer_id"`
	CustomerName string            `json:"customer_name"`
	Resource     string            `json:"resource"`
	Details      map[string]string `json:"details,omitempty"`
}

func NewAuditLogEntry(action AuditAction, admin User, customer Customer, resource string, details map[string]string, now time.Time) AuditLogEntry {
	return AuditLogEntry{
		LogID:        uuid.NewString(),
		Timestamp:    now.UTC(),
		AdminID:      admin.ID,
		AdminName:    admin.Name,
		Action:       action,
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
		Resource:     resource,
		Details:      details,
	}
}
