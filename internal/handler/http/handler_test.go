package http

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/Felix251/marketplace/internal/auth"
	"github.com/Felix251/marketplace/internal/cache"
	"github.com/Felix251/marketplace/internal/domain"
	"github.com/Felix251/marketplace/internal/repository"
	"github.com/Felix251/marketplace/internal/search"
	"github.com/Felix251/marketplace/internal/service"
	"github.com/Felix251/marketplace/pkg/middleware"
	"github.com/Felix251/marketplace/pkg/pagination"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepo) List(ctx context.Context, params pagination.Params) ([]domain.User, int, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]domain.User), args.Int(1), args.Error(2)
}

func (m *mockUserRepo) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockStoreRepo struct {
	mock.Mock
}

func (m *mockStoreRepo) Create(ctx context.Context, store *domain.Store) error {
	args := m.Called(ctx, store)
	return args.Error(0)
}

func (m *mockStoreRepo) GetByID(ctx context.Context, id string) (*domain.Store, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Store), args.Error(1)
}

func (m *mockStoreRepo) GetByOwnerID(ctx context.Context, ownerID string) (*domain.Store, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Store), args.Error(1)
}

func (m *mockStoreRepo) List(ctx context.Context, params pagination.Params) ([]domain.Store, int, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]domain.Store), args.Int(1), args.Error(2)
}

func (m *mockStoreRepo) Update(ctx context.Context, store *domain.Store) error {
	args := m.Called(ctx, store)
	return args.Error(0)
}

func (m *mockStoreRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockCategoryRepo struct {
	mock.Mock
}

func (m *mockCategoryRepo) Create(ctx context.Context, category *domain.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *mockCategoryRepo) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *mockCategoryRepo) List(ctx context.Context, params pagination.Params) ([]domain.Category, int, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]domain.Category), args.Int(1), args.Error(2)
}

func (m *mockCategoryRepo) ListRoots(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *mockCategoryRepo) ListActive(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *mockCategoryRepo) Search(ctx context.Context, keyword string) ([]domain.Category, error) {
	args := m.Called(ctx, keyword)
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *mockCategoryRepo) ListChildren(ctx context.Context, parentID string) ([]domain.Category, error) {
	args := m.Called(ctx, parentID)
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *mockCategoryRepo) Hierarchy(ctx context.Context) ([]domain.CategoryNode, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.CategoryNode), args.Error(1)
}

func (m *mockCategoryRepo) PathToRoot(ctx context.Context, id string) ([]domain.Category, error) {
	args := m.Called(ctx, id)
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *mockCategoryRepo) IsDescendant(ctx context.Context, ancestorID, candidateID string) (bool, error) {
	args := m.Called(ctx, ancestorID, candidateID)
	return args.Bool(0), args.Error(1)
}

func (m *mockCategoryRepo) TopByProductCount(ctx context.Context, limit int) ([]domain.CategoryProductCount, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.CategoryProductCount), args.Error(1)
}

func (m *mockCategoryRepo) Update(ctx context.Context, category *domain.Category) error {
	args := m.Called(ctx, category)
	return args.Error(0)
}

func (m *mockCategoryRepo) ReparentChildren(ctx context.Context, fromID string, toParentID *string) error {
	args := m.Called(ctx, fromID, toParentID)
	return args.Error(0)
}

func (m *mockCategoryRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockProductRepo struct {
	mock.Mock
}

func (m *mockProductRepo) Create(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepo) List(ctx context.Context, filter repository.ProductFilter, params pagination.Params) ([]domain.Product, int, error) {
	args := m.Called(ctx, filter, params)
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepo) ListPage(ctx context.Context, afterID string, limit int) ([]domain.Product, error) {
	args := m.Called(ctx, afterID, limit)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepo) ListTopSelling(ctx context.Context, limit int) ([]repository.ProductSales, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]repository.ProductSales), args.Error(1)
}

func (m *mockProductRepo) LockForUpdate(ctx context.Context, ids []string) ([]domain.Product, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepo) AdjustStock(ctx context.Context, id string, delta int) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

func (m *mockProductRepo) SetCategories(ctx context.Context, productID string, categoryIDs []string) error {
	args := m.Called(ctx, productID, categoryIDs)
	return args.Error(0)
}

func (m *mockProductRepo) Update(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockCartRepo struct {
	mock.Mock
}

func (m *mockCartRepo) Create(ctx context.Context, cart *domain.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *mockCartRepo) GetActiveByUserID(ctx context.Context, userID string) (*domain.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepo) GetItem(ctx context.Context, cartID, productID string) (*domain.CartItem, error) {
	args := m.Called(ctx, cartID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CartItem), args.Error(1)
}

func (m *mockCartRepo) UpsertItem(ctx context.Context, item *domain.CartItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *mockCartRepo) UpdateItemQuantity(ctx context.Context, cartID, productID string, quantity int) error {
	args := m.Called(ctx, cartID, productID, quantity)
	return args.Error(0)
}

func (m *mockCartRepo) RemoveItem(ctx context.Context, cartID, productID string) error {
	args := m.Called(ctx, cartID, productID)
	return args.Error(0)
}

func (m *mockCartRepo) ClearItems(ctx context.Context, cartID string) error {
	args := m.Called(ctx, cartID)
	return args.Error(0)
}

func (m *mockCartRepo) ListItemDetails(ctx context.Context, cartID string) ([]domain.CartItemDetail, error) {
	args := m.Called(ctx, cartID)
	return args.Get(0).([]domain.CartItemDetail), args.Error(1)
}

func (m *mockCartRepo) Touch(ctx context.Context, cartID string) error {
	args := m.Called(ctx, cartID)
	return args.Error(0)
}

func (m *mockCartRepo) CountAbandoned(ctx context.Context, cutoff time.Time) (int, error) {
	args := m.Called(ctx, cutoff)
	return args.Int(0), args.Error(1)
}

type mockIndex struct {
	mock.Mock
}

func (m *mockIndex) Index(ctx context.Context, doc *search.ProductDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *mockIndex) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockIndex) Search(ctx context.Context, query *search.Query) (*search.Result, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*search.Result), args.Error(1)
}

func (m *mockIndex) Suggest(ctx context.Context, prefix string, limit int) ([]search.Suggestion, error) {
	args := m.Called(ctx, prefix, limit)
	return args.Get(0).([]search.Suggestion), args.Error(1)
}

func (m *mockIndex) BulkIndex(ctx context.Context, docs []search.ProductDocument) error {
	args := m.Called(ctx, docs)
	return args.Error(0)
}

func (m *mockIndex) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type mockRepair struct {
	mock.Mock
}

func (m *mockRepair) EnqueueIndex(doc *search.ProductDocument) {
	m.Called(doc)
}

func (m *mockRepair) EnqueueDelete(id string) {
	m.Called(id)
}

// ============================================================================
// Test Helpers
// ============================================================================

const (
	testUserID     = "550e8400-e29b-41d4-a716-446655440001"
	testStoreID    = "550e8400-e29b-41d4-a716-446655440002"
	testProductID  = "550e8400-e29b-41d4-a716-446655440003"
	testCategoryID = "550e8400-e29b-41d4-a716-446655440004"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testCache(t *testing.T) *cache.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.New(client, testLogger(), cache.TTLs{})
}

func testHasher() *auth.Hasher {
	return auth.NewHasher(bcrypt.MinCost)
}

func testTokens() *auth.JWTManager {
	return auth.NewJWTManager("test-secret", time.Hour, 0)
}

// fakeResolver authenticates every request as the given principal,
// standing in for token validation in router tests.
func fakeResolver(p *middleware.Principal) middleware.PrincipalResolver {
	return func(ctx context.Context, token string) (*middleware.Principal, error) {
		return p, nil
	}
}

func testPrincipal(role string) *middleware.Principal {
	return &middleware.Principal{
		UserID: testUserID,
		Email:  "test@example.com",
		Role:   role,
	}
}

func sampleDomainProduct() *domain.Product {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Product{
		Base:     domain.Base{ID: testProductID, CreatedAt: now, UpdatedAt: now},
		Name:     "Walnut Desk Organizer",
		Price:    decimal.RequireFromString("49.99"),
		Quantity: 12,
		Active:   true,
		StoreID:  testStoreID,
	}
}

func sampleDomainStore() *domain.Store {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Store{
		Base:    domain.Base{ID: testStoreID, CreatedAt: now, UpdatedAt: now},
		Name:    "Jane's Woodshop",
		Active:  true,
		OwnerID: testUserID,
	}
}

func newProductTestService(t *testing.T, products *mockProductRepo, stores *mockStoreRepo, categories *mockCategoryRepo, index *mockIndex, repair *mockRepair) *service.ProductService {
	t.Helper()
	return service.NewProductService(products, stores, categories, index, repair, testCache(t), testLogger())
}
