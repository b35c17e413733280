package mocks

import "sync"

// MockMetrics records session and access metric calls for testing
type MockMetrics struct {
	mu sync.Mutex

	LoginAttempts   map[string]int
	RestoreOutcomes map[string]int
	RoleSwitches    []string
	LookupMisses    map[string]int
	AccessChecks    int
	Denials         int

	LogoutCalls        int
	ExpiredCalls       int
	InvalidTokenCalls  int
	Authenticated      bool
	AuthenticatedCalls int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		LoginAttempts:   make(map[string]int),
		RestoreOutcomes: make(map[string]int),
		LookupMisses:    make(map[string]int),
	}
}

func (m *MockMetrics) RecordLoginAttempt(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LoginAttempts[status]++
}

func (m *MockMetrics) RecordLogout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LogoutCalls++
}

func (m *MockMetrics) RecordRoleSwitch(role string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RoleSwitches = append(m.RoleSwitches, role)
}

func (m *MockMetrics) RecordSessionRestore(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RestoreOutcomes[outcome]++
}

func (m *MockMetrics) RecordSessionExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExpiredCalls++
}

func (m *MockMetrics) RecordInvalidToken() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InvalidTokenCalls++
}

func (m *MockMetrics) SetAuthenticated(authenticated bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Authenticated = authenticated
	m.AuthenticatedCalls++
}

func (m *MockMetrics) RecordAccessCheck(module, action string, allowed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AccessChecks++
	if !allowed {
		m.Denials++
	}
}

func (m *MockMetrics) RecordAccessLookupMiss(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LookupMisses[reason]++
}

// Misses returns the lookup miss count for reason
func (m *MockMetrics) Misses(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LookupMisses[reason]
}

// Logins returns the login attempt count for status
func (m *MockMetrics) Logins(status string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LoginAttempts[status]
}
