package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Felix251/marketplace/internal/domain"
	apperrors "github.com/Felix251/marketplace/pkg/errors"
)

type storeTestEnv struct {
	stores *mockStoreRepository
	users  *mockUserRepository
	svc    *StoreService
}

func newStoreTestEnv(t *testing.T) *storeTestEnv {
	env := &storeTestEnv{
		stores: new(mockStoreRepository),
		users:  new(mockUserRepository),
	}
	env.svc = NewStoreService(env.stores, env.users, newTestCache(t), newTestLogger())
	return env
}

func TestCreateStore_PromotesBuyerToSeller(t *testing.T) {
	env := newStoreTestEnv(t)
	ctx := context.Background()

	owner := sampleUser("user-1", domain.RoleBuyer)
	env.stores.On("GetByOwnerID", ctx, "user-1").Return(nil, apperrors.ErrNotFound)
	env.stores.On("Create", ctx, mock.AnythingOfType("*domain.Store")).Return(nil)
	env.users.On("GetByID", ctx, "user-1").Return(owner, nil)
	env.users.On("Update", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.Role == domain.RoleSeller
	})).Return(nil)

	store, err := env.svc.CreateStore(ctx, "user-1", StoreInput{Name: "Jane's Woodshop"})

	require.NoError(t, err)
	assert.True(t, store.Active)
	assert.Equal(t, "user-1", store.OwnerID)
	env.users.AssertExpectations(t)
}

func TestCreateStore_SecondStoreRejected(t *testing.T) {
	env := newStoreTestEnv(t)
	ctx := context.Background()

	env.stores.On("GetByOwnerID", ctx, "user-1").Return(sampleStore("store-1", "user-1"), nil)

	_, err := env.svc.CreateStore(ctx, "user-1", StoreInput{Name: "Second Shop"})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	env.stores.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUpdateStore_ForeignSellerRejected(t *testing.T) {
	env := newStoreTestEnv(t)
	ctx := context.Background()

	env.stores.On("GetByID", ctx, "store-1").Return(sampleStore("store-1", "user-1"), nil)

	_, err := env.svc.UpdateStore(ctx, sampleUser("user-2", domain.RoleSeller), "store-1", StoreInput{Name: "Hijacked"})

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	env.stores.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateStore_AdminAllowed(t *testing.T) {
	env := newStoreTestEnv(t)
	ctx := context.Background()

	env.stores.On("GetByID", ctx, "store-1").Return(sampleStore("store-1", "user-1"), nil)
	env.stores.On("Update", ctx, mock.AnythingOfType("*domain.Store")).Return(nil)

	updated, err := env.svc.UpdateStore(ctx, sampleUser("admin-1", domain.RoleAdmin), "store-1", StoreInput{Name: "Renamed"})

	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
}

func TestDeleteStore_DemotesSellerOwner(t *testing.T) {
	env := newStoreTestEnv(t)
	ctx := context.Background()

	owner := sampleUser("user-1", domain.RoleSeller)
	env.stores.On("GetByID", ctx, "store-1").Return(sampleStore("store-1", "user-1"), nil)
	env.stores.On("Delete", ctx, "store-1").Return(nil)
	env.users.On("GetByID", ctx, "user-1").Return(owner, nil)
	env.users.On("Update", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.Role == domain.RoleBuyer
	})).Return(nil)

	err := env.svc.DeleteStore(ctx, sampleUser("user-1", domain.RoleSeller), "store-1")

	require.NoError(t, err)
	env.users.AssertExpectations(t)
}

func TestGetStore_CachesAfterFirstLoad(t *testing.T) {
	env := newStoreTestEnv(t)
	ctx := context.Background()

	env.stores.On("GetByID", ctx, "store-1").Return(sampleStore("store-1", "user-1"), nil).Once()

	first, err := env.svc.GetStore(ctx, "store-1")
	require.NoError(t, err)

	second, err := env.svc.GetStore(ctx, "store-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	env.stores.AssertNumberOfCalls(t, "GetByID", 1)
}
