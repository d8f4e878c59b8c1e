package outbox

import (
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/domain"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/mocks"
)

const testEventType = "portal.audit"

func auditPayload(t *testing.T) ([]byte, domain.AuditLogEntry) {
	t.Helper()
	entry := domain.NewAuditLogEntry(
		domain.AuditImpersonateStart,
		mocks.CreateTestAdmin(),
		mocks.CreateTestCustomer("CUST-001", "Northside Family Clinic"),
		"/admin/impersonate",
		nil,
		mocks.TestTime,
	)
	b, err := json.Marshal(entry)
	if err != nil {
		t.Fatal(err)
	}
	return b, entry
}

func TestRelay_Dispatch(t *testing.T) {
	payload, entry := auditPayload(t)

	tests := []struct {
		name          string
		eventType     string
		payload       []byte
		publishErr    error
		wantErr       error
		wantPublished int
	}{
		{name: "publishes_audit_event", eventType: testEventType, payload: payload, wantPublished: 1},
		{name: "skips_other_event_types", eventType: "user.created", payload: payload},
		{name: "bad_payload", eventType: testEventType, payload: []byte("{oops"), wantErr: errBadPayload},
		{name: "missing_log_id", eventType: testEventType, payload: []byte(`{"action":"impersonate_start"}`), wantErr: errBadPayload},
		{name: "publish_failure", eventType: testEventType, payload: payload, publishErr: context.DeadlineExceeded, wantErr: context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := mocks.NewMockAuditEventPublisher()
			pub.PublishError = tt.publishErr
			relay := NewRelay(nil, "", testEventType, pub)

			err := relay.dispatch(context.Background(), tt.eventType, tt.payload)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			published := pub.Published()
			if len(published) != tt.wantPublished {
				t.Fatalf("expected %d published, got %d", tt.wantPublished, len(published))
			}
			if tt.wantPublished == 1 && published[0].LogID != entry.LogID {
				t.Errorf("expected log id %s, got %s", entry.LogID, published[0].LogID)
			}
		})
	}
}

func TestRelay_Health(t *testing.T) {
	relay := NewRelay(nil, "", testEventType, mocks.NewMockAuditEventPublisher())

	if !relay.IsHealthy() || !relay.IsReady() {
		t.Fatal("expected new relay healthy and ready")
	}

	relay.setHealthy(false)
	if relay.IsHealthy() || relay.IsReady() {
		t.Error("expected unhealthy relay to fail both checks")
	}

	relay.markProcessed()
	if !relay.IsHealthy() {
		t.Error("expected processing to restore health")
	}
}
