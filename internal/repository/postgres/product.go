package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Felix251/marketplace/internal/domain"
	"github.com/Felix251/marketplace/internal/repository"
	"github.com/Felix251/marketplace/pkg/database"
	apperrors "github.com/Felix251/marketplace/pkg/errors"
	"github.com/Felix251/marketplace/pkg/pagination"
)

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, name, description, price, quantity, images, featured, active, store_id, created_at, updated_at`

// Create inserts a new product and its category links.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO products (id, name, description, price, quantity, images, featured, active, store_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.Price,
		p.Quantity,
		p.Images,
		p.Featured,
		p.Active,
		p.StoreID,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	return r.SetCategories(ctx, p.ID, p.CategoryIDs)
}

// GetByID retrieves a product by its ID, category links included.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `
		SELECT p.id, p.name, p.description, p.price, p.quantity, p.images, p.featured, p.active, p.store_id, p.created_at, p.updated_at,
			   COALESCE(array_agg(pc.category_id) FILTER (WHERE pc.category_id IS NOT NULL), '{}') AS category_ids
		FROM products p
		LEFT JOIN product_categories pc ON pc.product_id = p.id
		WHERE p.id = $1
		GROUP BY p.id`

	var p domain.Product
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Quantity,
		&p.Images,
		&p.Featured,
		&p.Active,
		&p.StoreID,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.CategoryIDs,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	return &p, nil
}

// GetByIDs retrieves the products with the given identifiers.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY id`
	return r.queryProducts(ctx, query, ids)
}

// List returns a page of products matching the filter with the total count.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter, params pagination.Params) ([]domain.Product, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	add := func(cond string, value any) {
		conditions = append(conditions, fmt.Sprintf(cond, argIndex))
		args = append(args, value)
		argIndex++
	}

	if filter.Name != nil {
		add("p.name ILIKE $%d", "%"+*filter.Name+"%")
	}
	if filter.StoreID != nil {
		add("p.store_id = $%d", *filter.StoreID)
	}
	if filter.MinPrice != nil {
		add("p.price >= $%d", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		add("p.price <= $%d", *filter.MaxPrice)
	}
	if filter.Featured != nil {
		add("p.featured = $%d", *filter.Featured)
	}
	if filter.Active != nil {
		add("p.active = $%d", *filter.Active)
	}
	if filter.InStock != nil && *filter.InStock {
		conditions = append(conditions, "p.quantity > 0")
	}
	if filter.CategoryID != nil {
		add("EXISTS (SELECT 1 FROM product_categories pc WHERE pc.product_id = p.id AND pc.category_id = $%d)", *filter.CategoryID)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	orderBy := params.OrderBy(map[string]string{
		"name":       "p.name",
		"price":      "p.price",
		"created_at": "p.created_at",
	})
	if orderBy == "id DESC" {
		orderBy = "p.id DESC"
	}

	query := fmt.Sprintf(`
		SELECT p.id, p.name, p.description, p.price, p.quantity, p.images, p.featured, p.active, p.store_id, p.created_at, p.updated_at,
			   count(*) OVER() AS total_count
		FROM products p
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		whereClause, orderBy, argIndex, argIndex+1,
	)

	args = append(args, params.Size, params.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var totalCount int
	products := make([]domain.Product, 0)

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Description,
			&p.Price,
			&p.Quantity,
			&p.Images,
			&p.Featured,
			&p.Active,
			&p.StoreID,
			&p.CreatedAt,
			&p.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, totalCount, nil
}

// ListPage returns products ordered by id, starting after the given id.
func (r *ProductRepository) ListPage(ctx context.Context, afterID string, limit int) ([]domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE id > $1
		ORDER BY id
		LIMIT $2`

	return r.queryProducts(ctx, query, afterID, limit)
}

// ListTopSelling returns the products with the most units sold across all
// orders, best sellers first. Products that never sold are not included.
func (r *ProductRepository) ListTopSelling(ctx context.Context, limit int) ([]repository.ProductSales, error) {
	query := `
		SELECT p.id, p.name, p.price, sum(oi.quantity)::int AS units_sold
		FROM products p
		JOIN order_items oi ON oi.product_id = p.id
		GROUP BY p.id, p.name, p.price
		ORDER BY units_sold DESC, p.name
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query top selling products: %w", err)
	}
	defer rows.Close()

	sales := make([]repository.ProductSales, 0)
	for rows.Next() {
		var s repository.ProductSales
		if err := rows.Scan(&s.ProductID, &s.Name, &s.Price, &s.UnitsSold); err != nil {
			return nil, fmt.Errorf("scan top selling product: %w", err)
		}
		sales = append(sales, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top selling products: %w", err)
	}

	return sales, nil
}

// LockForUpdate loads the given products with row locks. Ordering by id
// keeps concurrent checkouts acquiring locks in the same order, so they
// cannot deadlock on each other.
func (r *ProductRepository) LockForUpdate(ctx context.Context, ids []string) ([]domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`

	return r.queryProducts(ctx, query, ids)
}

// AdjustStock changes a product's quantity by delta. The quantity check is
// part of the UPDATE so a concurrent decrement cannot drive stock negative.
func (r *ProductRepository) AdjustStock(ctx context.Context, id string, delta int) error {
	query := `
		UPDATE products
		SET quantity = quantity + $1, updated_at = $2
		WHERE id = $3 AND quantity + $1 >= 0`

	ct, err := r.db.Exec(ctx, query, delta, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("adjust product stock: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.InvalidInput(fmt.Sprintf("insufficient stock for product %s", id))
	}

	return nil
}

// SetCategories replaces the product's category links.
func (r *ProductRepository) SetCategories(ctx context.Context, productID string, categoryIDs []string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM product_categories WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("clear product categories: %w", err)
	}

	for _, categoryID := range categoryIDs {
		_, err := r.db.Exec(ctx,
			`INSERT INTO product_categories (product_id, category_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			productID, categoryID,
		)
		if err != nil {
			return fmt.Errorf("link product category: %w", err)
		}
	}

	return nil
}

// Update modifies an existing product in the database.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, quantity = $4, images = $5,
		    featured = $6, active = $7, updated_at = $8
		WHERE id = $9`

	ct, err := r.db.Exec(ctx, query,
		p.Name,
		p.Description,
		p.Price,
		p.Quantity,
		p.Images,
		p.Featured,
		p.Active,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}

	return nil
}

// Delete removes a product from the database by its ID.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}

	return nil
}

func (r *ProductRepository) queryProducts(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Description,
			&p.Price,
			&p.Quantity,
			&p.Images,
			&p.Featured,
			&p.Active,
			&p.StoreID,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, nil
}
