package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockStore is a testify mock of settings.Store.
type MockStore struct {
	mock.Mock
}

// NewMockStore creates a MockStore whose expectations are asserted on cleanup.
func NewMockStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStore {
	m := &MockStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockStore) GetSetting(ctx context.Context, key string) (*string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*string), args.Error(1)
}

func (m *MockStore) SetSetting(ctx context.Context, key string, value *string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockStore) All(ctx context.Context) (map[string]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}
