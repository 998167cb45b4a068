package mocks

import (
	"reflect"

	"github.com/janmbaco/go-webcontainer/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockScopeFactory is a mock implementation of domain.ScopeFactory
type MockScopeFactory struct {
	mock.Mock
}

func (m *MockScopeFactory) NewScope() (domain.Scope, error) {
	args := m.Called()
	scope, _ := args.Get(0).(domain.Scope)
	return scope, args.Error(1)
}

// MockScope is a mock implementation of domain.Scope
type MockScope struct {
	mock.Mock
}

func (m *MockScope) RegisterInstance(key reflect.Type, value any) error {
	return m.Called(key, value).Error(0)
}

func (m *MockScope) RegisterClass(key reflect.Type, class domain.Class) error {
	return m.Called(key, class).Error(0)
}

func (m *MockScope) Resolve(class domain.Class) (any, error) {
	args := m.Called(class)
	return args.Get(0), args.Error(1)
}

func (m *MockScope) Component(key reflect.Type) (any, error) {
	args := m.Called(key)
	return args.Get(0), args.Error(1)
}

func (m *MockScope) NewChildScope() (domain.Scope, error) {
	args := m.Called()
	scope, _ := args.Get(0).(domain.Scope)
	return scope, args.Error(1)
}

func (m *MockScope) Release() error {
	return m.Called().Error(0)
}
