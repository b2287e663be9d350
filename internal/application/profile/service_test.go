package profile

import (
	"context"
	"testing"

	"github.com/corpsite-backoffice/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProfileStore struct{ mock.Mock }

func (m *mockProfileStore) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	args := m.Called(ctx, userID)
	if p, _ := args.Get(0).(*domain.Profile); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockProfileStore) UpdateRole(ctx context.Context, userID, role string) (*domain.Profile, error) {
	args := m.Called(ctx, userID, role)
	if p, _ := args.Get(0).(*domain.Profile); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestSetRole_RejectsUnknownRole(t *testing.T) {
	store := new(mockProfileStore)
	_, err := NewService(store).SetRole(context.Background(), "u1", "owner")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	store.AssertNotCalled(t, "UpdateRole", mock.Anything, mock.Anything, mock.Anything)
}

func TestSetRole_Success(t *testing.T) {
	store := new(mockProfileStore)
	store.On("UpdateRole", mock.Anything, "u1", domain.RoleSuperAdmin).
		Return(&domain.Profile{UserID: "u1", Role: domain.RoleSuperAdmin}, nil)

	p, err := NewService(store).SetRole(context.Background(), "u1", domain.RoleSuperAdmin)
	require.NoError(t, err)
	assert.True(t, p.IsSuperAdmin())
}

func TestGet_NotFound(t *testing.T) {
	store := new(mockProfileStore)
	store.On("Get", mock.Anything, "missing").Return(nil, domain.ErrNotFound)

	_, err := NewService(store).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
