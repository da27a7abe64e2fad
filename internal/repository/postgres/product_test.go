package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Felix251/marketplace/internal/domain"
	"github.com/Felix251/marketplace/internal/repository"
	apperrors "github.com/Felix251/marketplace/pkg/errors"
	"github.com/Felix251/marketplace/pkg/pagination"
)

func newProductTestFixture(t *testing.T) (*ProductRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	repo := NewProductRepository(mock)
	return repo, mock
}

func sampleProduct() *domain.Product {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Product{
		Base: domain.Base{
			ID:        "p-0001",
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:        "Walnut Desk",
		Description: "Solid walnut standing desk",
		Price:       decimal.RequireFromString("499.99"),
		Quantity:    12,
		Images:      []string{"https://img.example.com/desk.jpg"},
		Featured:    true,
		Active:      true,
		StoreID:     "s-0001",
		CategoryIDs: []string{"c-0001"},
	}
}

func productCols() []string {
	return []string{
		"id", "name", "description", "price", "quantity", "images",
		"featured", "active", "store_id", "created_at", "updated_at",
	}
}

func productRow(p *domain.Product) *pgxmock.Rows {
	return pgxmock.NewRows(productCols()).AddRow(
		p.ID, p.Name, p.Description, p.Price, p.Quantity, p.Images,
		p.Featured, p.Active, p.StoreID, p.CreatedAt, p.UpdatedAt,
	)
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestProductRepository_Create_Success(t *testing.T) {
	repo, mock := newProductTestFixture(t)
	defer mock.Close()

	p := sampleProduct()

	mock.ExpectExec("INSERT INTO products").
		WithArgs(
			p.ID, p.Name, p.Description, p.Price, p.Quantity, p.Images,
			p.Featured, p.Active, p.StoreID, p.CreatedAt, p.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("DELETE FROM product_categories").
		WithArgs(p.ID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("INSERT INTO product_categories").
		WithArgs(p.ID, "c-0001").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), p)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// GetByID
// ---------------------------------------------------------------------------

func TestProductRepository_GetByID_Success(t *testing.T) {
	repo, mock := newProductTestFixture(t)
	defer mock.Close()

	p := sampleProduct()
	rows := pgxmock.NewRows(append(productCols(), "category_ids")).AddRow(
		p.ID, p.Name, p.Description, p.Price, p.Quantity, p.Images,
		p.Featured, p.Active, p.StoreID, p.CreatedAt, p.UpdatedAt,
		[]string{"c-0001"},
	)

	mock.ExpectQuery("SELECT .+ FROM products p").
		WithArgs(p.ID).
		WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.True(t, p.Price.Equal(got.Price))
	assert.Equal(t, []string{"c-0001"}, got.CategoryIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// List filter composition
// ---------------------------------------------------------------------------

func TestProductRepository_List_NoFilter(t *testing.T) {
	repo, mock := newProductTestFixture(t)
	defer mock.Close()

	p := sampleProduct()
	rows := pgxmock.NewRows(append(productCols(), "total_count")).AddRow(
		p.ID, p.Name, p.Description, p.Price, p.Quantity, p.Images,
		p.Featured, p.Active, p.StoreID, p.CreatedAt, p.UpdatedAt, 1,
	)

	mock.ExpectQuery("SELECT .+ FROM products p").
		WithArgs(20, 0).
		WillReturnRows(rows)

	products, total, err := repo.List(context.Background(), repository.ProductFilter{}, pagination.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, products, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_List_CombinedCriteria(t *testing.T) {
	repo, mock := newProductTestFixture(t)
	defer mock.Close()

	p := sampleProduct()
	rows := pgxmock.NewRows(append(productCols(), "total_count")).AddRow(
		p.ID, p.Name, p.Description, p.Price, p.Quantity, p.Images,
		p.Featured, p.Active, p.StoreID, p.CreatedAt, p.UpdatedAt, 1,
	)

	name := "desk"
	minPrice := decimal.RequireFromString("100.00")
	maxPrice := decimal.RequireFromString("600.00")
	active := true
	categoryID := "c-0001"

	// Args follow the order the filter composes conditions.
	mock.ExpectQuery("SELECT .+ FROM products p WHERE").
		WithArgs("%desk%", minPrice, maxPrice, active, categoryID, 20, 0).
		WillReturnRows(rows)

	filter := repository.ProductFilter{
		Name:       &name,
		MinPrice:   &minPrice,
		MaxPrice:   &maxPrice,
		Active:     &active,
		CategoryID: &categoryID,
	}
	products, total, err := repo.List(context.Background(), filter, pagination.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, products, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// LockForUpdate
// ---------------------------------------------------------------------------

func TestProductRepository_LockForUpdate(t *testing.T) {
	repo, mock := newProductTestFixture(t)
	defer mock.Close()

	p := sampleProduct()

	mock.ExpectQuery("SELECT .+ FROM products .+ FOR UPDATE").
		WithArgs([]string{"p-0001", "p-0002"}).
		WillReturnRows(productRow(p))

	products, err := repo.LockForUpdate(context.Background(), []string{"p-0001", "p-0002"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, p.ID, products[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// ListTopSelling
// ---------------------------------------------------------------------------

func TestProductRepository_ListTopSelling(t *testing.T) {
	repo, mock := newProductTestFixture(t)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"id", "name", "price", "units_sold"}).
		AddRow("p-0001", "Walnut Desk", decimal.RequireFromString("499.99"), 42).
		AddRow("p-0002", "Oak Shelf", decimal.RequireFromString("89.50"), 17)

	mock.ExpectQuery(`JOIN order_items oi[\s\S]*ORDER BY units_sold DESC, p\.name`).
		WithArgs(10).
		WillReturnRows(rows)

	sales, err := repo.ListTopSelling(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, "p-0001", sales[0].ProductID)
	assert.Equal(t, 42, sales[0].UnitsSold)
	assert.True(t, decimal.RequireFromString("499.99").Equal(sales[0].Price))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// AdjustStock
// ---------------------------------------------------------------------------

func TestProductRepository_AdjustStock_Success(t *testing.T) {
	repo, mock := newProductTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE products").
		WithArgs(-3, pgxmock.AnyArg(), "p-0001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.AdjustStock(context.Background(), "p-0001", -3)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_AdjustStock_InsufficientStock(t *testing.T) {
	repo, mock := newProductTestFixture(t)
	defer mock.Close()

	// The guarded UPDATE matches no row when stock would go negative.
	mock.ExpectExec("UPDATE products").
		WithArgs(-100, pgxmock.AnyArg(), "p-0001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.AdjustStock(context.Background(), "p-0001", -100)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput), "expected ErrInvalidInput, got: %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
