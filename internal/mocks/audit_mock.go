package mocks

import (
	"context"
	"sync"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/domain"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/ports"
)

// MockAuditSink records appended entries.
type MockAuditSink struct {
	mu      sync.RWMutex
	entries []domain.AuditLogEntry

	AppendError error
}

var _ ports.AuditSink = (*MockAuditSink)(nil)

func NewMockAuditSink() *MockAuditSink {
	return &MockAuditSink{}
}

func (m *MockAuditSink) Append(ctx context.Context, entry domain.AuditLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.AppendError != nil {
		return m.AppendError
	}
	m.entries = append(m.entries, entry)
	return nil
}

// Entries returns a copy of the appended entries.
func (m *MockAuditSink) Entries() []domain.AuditLogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.AuditLogEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// MockAuditEventPublisher implements ports.AuditEventPublisher for testing
// the relay without a RabbitMQ connection.
type MockAuditEventPublisher struct {
	mu sync.RWMutex

	PublishedEntries []domain.AuditLogEntry
	PublishError     error
	PublishCallCount int
}

var _ ports.AuditEventPublisher = (*MockAuditEventPublisher)(nil)

func NewMockAuditEventPublisher() *MockAuditEventPublisher {
	return &MockAuditEventPublisher{}
}

func (m *MockAuditEventPublisher) PublishAuditEntry(ctx context.Context, entry domain.AuditLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PublishCallCount++
	if m.PublishError != nil {
		return m.PublishError
	}
	m.PublishedEntries = append(m.PublishedEntries, entry)
	return nil
}

func (m *MockAuditEventPublisher) Published() []domain.AuditLogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.AuditLogEntry, len(m.PublishedEntries))
	copy(out, m.PublishedEntries)
	return out
}
