package mocks

import (
	"context"

	"github.com/ebrains-prov/provenance-api/pkg/auth"
	"github.com/stretchr/testify/mock"
)

// MockIdentityProvider is a mock implementation of auth.IdentityProvider interface.
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) UserInfo(ctx context.Context, token string) (*auth.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*auth.User), args.Error(1)
}

// MockCollabService is a mock implementation of auth.CollabService interface.
type MockCollabService struct {
	mock.Mock
}

func (m *MockCollabService) IsPublic(ctx context.Context, collabID, token string) (bool, error) {
	args := m.Called(ctx, collabID, token)

	return args.Bool(0), args.Error(1)
}

// MockGate is a mock implementation of the write authorization check used by
// the record services.
type MockGate struct {
	mock.Mock
}

func (m *MockGate) MayModify(ctx context.Context, space, token string) (bool, error) {
	args := m.Called(ctx, space, token)

	return args.Bool(0), args.Error(1)
}
