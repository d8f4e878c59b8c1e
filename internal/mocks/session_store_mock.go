package mocks

import (
	"context"
	"sync"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/domain"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/ports"
)

// MockSessionStore implements ports.SessionStore in memory. Stored values are
// copies, so callers observe only whole-session replacement.
type MockSessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session

	SetCalls int

	GetError   error
	SetError   error
	ClearError error
}

var _ ports.SessionStore = (*MockSessionStore)(nil)

func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{sessions: make(map[string]domain.Session)}
}

func (m *MockSessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.GetError != nil {
		return nil, m.GetError
	}
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &s, nil
}

func (m *MockSessionStore) Set(ctx context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SetCalls++
	if m.SetError != nil {
		return m.SetError
	}
	m.sessions[session.ID] = *session
	return nil
}

func (m *MockSessionStore) Clear(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ClearError != nil {
		return m.ClearError
	}
	delete(m.sessions, id)
	return nil
}

// Stored returns the stored session for assertions.
func (m *MockSessionStore) Stored(id string) (domain.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *MockSessionStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
