package mocks

import "github.com/Olprog59/ehs-access/internal/domain"

// MockMatrix is a configurable permission matrix source for testing
type MockMatrix struct {
	AccessFunc  func(role domain.Role, module domain.Module) (domain.ModuleAccess, bool)
	AccessCalls int
}

func (m *MockMatrix) Access(role domain.Role, module domain.Module) (domain.ModuleAccess, bool) {
	m.AccessCalls++
	if m.AccessFunc != nil {
		return m.AccessFunc(role, module)
	}
	return domain.DefaultMatrix.Access(role, module)
}

// NewPanickingMatrix returns a source whose every lookup panics
func NewPanickingMatrix() *MockMatrix {
	return &MockMatrix{
		AccessFunc: func(domain.Role, domain.Module) (domain.ModuleAccess, bool) {
			panic("matrix source unavailable")
		},
	}
}
