// test/mock/registry_store.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/albeach/DIVE-V3-sub011/model"
)

// MockRegistryStore is a mock implementation of registry.Store
type MockRegistryStore struct {
	mock.Mock
}

func (m *MockRegistryStore) ListInstances(ctx context.Context) ([]model.InstanceRegistryEntry, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.InstanceRegistryEntry), args.Error(1)
}

func (m *MockRegistryStore) GetInstance(ctx context.Context, instanceID string) (*model.InstanceRegistryEntry, error) {
	args := m.Called(ctx, instanceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.InstanceRegistryEntry), args.Error(1)
}

func (m *MockRegistryStore) UpsertInstance(ctx context.Context, entry model.InstanceRegistryEntry) (*model.InstanceRegistryEntry, error) {
	args := m.Called(ctx, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.InstanceRegistryEntry), args.Error(1)
}

func (m *MockRegistryStore) DeleteInstance(ctx context.Context, instanceID string) error {
	args := m.Called(ctx, instanceID)
	return args.Error(0)
}
