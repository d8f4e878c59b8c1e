package audit

import (
	"bytes"
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/domain"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/mocks"
)

func TestLogSink_Append(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(zerolog.New(&buf))

	entry := domain.NewAuditLogEntry(
		domain.AuditImpersonateEnd,
		mocks.CreateTestAdmin(),
		mocks.CreateTestCustomer("CUST-001", "Northside Family Clinic"),
		"/admin/impersonate/end",
		map[string]string{"duration_seconds": "90"},
		mocks.TestTime,
	)

	if err := sink.Append(context.Background(), entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}

	checks := map[string]string{
		"component":     "audit",
		"action":        "impersonate_end",
		"admin_id":      "ADM-001",
		"customer_id":   "CUST-001",
		"customer_name": "Northside Family Clinic",
		"log_id":        entry.LogID,
	}
	for field, want := range checks {
		if got[field] != want {
			t.Errorf("%s = %v, want %q", field, got[field], want)
		}
	}

	details, ok := got["details"].(map[string]interface{})
	if !ok || details["duration_seconds"] != "90" {
		t.Errorf("expected details carried, got %v", got["details"])
	}
}
