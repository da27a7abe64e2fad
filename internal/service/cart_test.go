package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Felix251/marketplace/internal/domain"
	apperrors "github.com/Felix251/marketplace/pkg/errors"
)

type cartTestEnv struct {
	carts    *mockCartRepository
	products *mockProductRepository
	svc      *CartService
}

func newCartTestEnv() *cartTestEnv {
	env := &cartTestEnv{
		carts:    new(mockCartRepository),
		products: new(mockProductRepository),
	}
	env.svc = NewCartService(env.carts, env.products, newTestLogger())
	return env
}

func TestGetCart_CreatesLazily(t *testing.T) {
	env := newCartTestEnv()
	ctx := context.Background()

	env.carts.On("GetActiveByUserID", ctx, "user-1").Return(nil, apperrors.ErrNotFound)
	env.carts.On("Create", ctx, mock.AnythingOfType("*domain.Cart")).Return(nil)
	env.carts.On("ListItemDetails", ctx, mock.AnythingOfType("string")).Return([]domain.CartItemDetail{}, nil)

	view, err := env.svc.GetCart(ctx, "user-1")

	require.NoError(t, err)
	assert.True(t, view.Cart.Active)
	assert.Equal(t, "user-1", view.Cart.UserID)
	assert.Empty(t, view.Items)
	assert.True(t, view.Total.IsZero())
	env.carts.AssertExpectations(t)
}

func TestAddItem_NewLine(t *testing.T) {
	env := newCartTestEnv()
	ctx := context.Background()
	cart := sampleCartWithItems("user-1")

	env.products.On("GetByID", ctx, "prod-1").Return(sampleProduct("prod-1", "store-1", "19.99", 5), nil)
	env.carts.On("GetActiveByUserID", ctx, "user-1").Return(cart, nil)
	env.carts.On("GetItem", ctx, "cart-1", "prod-1").Return(nil, apperrors.ErrNotFound)
	env.carts.On("UpsertItem", ctx, mock.AnythingOfType("*domain.CartItem")).Return(nil)
	env.carts.On("Touch", ctx, "cart-1").Return(nil)
	env.carts.On("ListItemDetails", ctx, "cart-1").Return([]domain.CartItemDetail{
		{
			CartItem:    domain.CartItem{Base: sampleBase("ci-1"), CartID: "cart-1", ProductID: "prod-1", Quantity: 2},
			ProductName: "Product prod-1",
			UnitPrice:   decimal.RequireFromString("19.99"),
			LineTotal:   decimal.RequireFromString("39.98"),
		},
	}, nil)

	view, err := env.svc.AddItem(ctx, "user-1", "prod-1", 2)

	require.NoError(t, err)
	assert.Equal(t, 2, view.ItemCount)
	assert.Equal(t, "39.98", view.Total.StringFixed(2))
	env.carts.AssertExpectations(t)
}

func TestAddItem_CombinedQuantityExceedsStock(t *testing.T) {
	env := newCartTestEnv()
	ctx := context.Background()
	cart := sampleCartWithItems("user-1")

	env.products.On("GetByID", ctx, "prod-1").Return(sampleProduct("prod-1", "store-1", "19.99", 5), nil)
	env.carts.On("GetActiveByUserID", ctx, "user-1").Return(cart, nil)
	env.carts.On("GetItem", ctx, "cart-1", "prod-1").Return(&domain.CartItem{
		Base: sampleBase("ci-1"), CartID: "cart-1", ProductID: "prod-1", Quantity: 4,
	}, nil)

	_, err := env.svc.AddItem(ctx, "user-1", "prod-1", 2)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	env.carts.AssertNotCalled(t, "UpsertItem", mock.Anything, mock.Anything)
}

func TestAddItem_InactiveProduct(t *testing.T) {
	env := newCartTestEnv()
	ctx := context.Background()

	inactive := sampleProduct("prod-1", "store-1", "19.99", 5)
	inactive.Active = false
	env.products.On("GetByID", ctx, "prod-1").Return(inactive, nil)

	_, err := env.svc.AddItem(ctx, "user-1", "prod-1", 1)

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestAddItem_ZeroQuantity(t *testing.T) {
	env := newCartTestEnv()
	ctx := context.Background()

	_, err := env.svc.AddItem(ctx, "user-1", "prod-1", 0)

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestSetItemQuantity_ZeroRemovesLine(t *testing.T) {
	env := newCartTestEnv()
	ctx := context.Background()
	cart := sampleCartWithItems("user-1")

	env.carts.On("GetActiveByUserID", ctx, "user-1").Return(cart, nil)
	env.carts.On("RemoveItem", ctx, "cart-1", "prod-1").Return(nil)
	env.carts.On("Touch", ctx, "cart-1").Return(nil)
	env.carts.On("ListItemDetails", ctx, "cart-1").Return([]domain.CartItemDetail{}, nil)

	view, err := env.svc.SetItemQuantity(ctx, "user-1", "prod-1", 0)

	require.NoError(t, err)
	assert.Empty(t, view.Items)
	env.carts.AssertCalled(t, "RemoveItem", ctx, "cart-1", "prod-1")
	env.products.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestSetItemQuantity_ExceedsStock(t *testing.T) {
	env := newCartTestEnv()
	ctx := context.Background()
	cart := sampleCartWithItems("user-1")

	env.carts.On("GetActiveByUserID", ctx, "user-1").Return(cart, nil)
	env.products.On("GetByID", ctx, "prod-1").Return(sampleProduct("prod-1", "store-1", "19.99", 3), nil)

	_, err := env.svc.SetItemQuantity(ctx, "user-1", "prod-1", 5)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	env.carts.AssertNotCalled(t, "UpdateItemQuantity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestClearCart(t *testing.T) {
	env := newCartTestEnv()
	ctx := context.Background()
	cart := sampleCartWithItems("user-1")

	env.carts.On("GetActiveByUserID", ctx, "user-1").Return(cart, nil)
	env.carts.On("ClearItems", ctx, "cart-1").Return(nil)
	env.carts.On("Touch", ctx, "cart-1").Return(nil)

	err := env.svc.ClearCart(ctx, "user-1")

	require.NoError(t, err)
	env.carts.AssertCalled(t, "ClearItems", ctx, "cart-1")
}
