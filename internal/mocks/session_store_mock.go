package mocks

import (
	"context"
	"sync"

	"github.com/Olprog59/ehs-access/internal/domain"
	"github.com/Olprog59/ehs-access/internal/ports"
)

// MockSessionStore is an in-memory ports.SessionStore for testing
type MockSessionStore struct {
	mu sync.Mutex

	// Mock data storage
	Record *domain.SessionRecord

	// Mock behavior flags
	SaveError  error
	LoadError  error
	ClearError error

	// Call tracking
	SaveCalls  int
	LoadCalls  int
	ClearCalls int
}

// NewMockSessionStore creates a new empty mock session store
func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{}
}

func (m *MockSessionStore) Save(ctx context.Context, rec *domain.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.SaveError != nil {
		return m.SaveError
	}
	stored := *rec
	m.Record = &stored
	return nil
}

func (m *MockSessionStore) Load(ctx context.Context) (*domain.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LoadCalls++
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	if m.Record == nil {
		return nil, ports.ErrNotFound
	}
	loaded := *m.Record
	return &loaded, nil
}

func (m *MockSessionStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClearCalls++
	if m.ClearError != nil {
		return m.ClearError
	}
	m.Record = nil
	return nil
}

// Token returns the stored token, or "" when empty
func (m *MockSessionStore) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Record == nil {
		return ""
	}
	return m.Record.Token
}
