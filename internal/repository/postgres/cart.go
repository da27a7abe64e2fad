package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Felix251/marketplace/internal/domain"
	"github.com/Felix251/marketplace/pkg/database"
	apperrors "github.com/Felix251/marketplace/pkg/errors"
)

// CartRepository implements repository.CartRepository using PostgreSQL.
type CartRepository struct {
	db database.DBTX
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(db database.DBTX) *CartRepository {
	return &CartRepository{db: db}
}

// Create inserts a new cart into the database.
func (r *CartRepository) Create(ctx context.Context, c *domain.Cart) error {
	query := `
		INSERT INTO carts (id, user_id, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query, c.ID, c.UserID, c.Active, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert cart: %w", err)
	}

	return nil
}

// GetActiveByUserID retrieves the user's active cart with its items.
func (r *CartRepository) GetActiveByUserID(ctx context.Context, userID string) (*domain.Cart, error) {
	query := `
		SELECT id, user_id, active, created_at, updated_at
		FROM carts
		WHERE user_id = $1 AND active = true`

	var c domain.Cart
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&c.ID,
		&c.UserID,
		&c.Active,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan cart: %w", err)
	}

	items, err := r.listItems(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Items = items

	return &c, nil
}

// GetItem retrieves one cart line by cart and product.
func (r *CartRepository) GetItem(ctx context.Context, cartID, productID string) (*domain.CartItem, error) {
	query := `
		SELECT id, cart_id, product_id, quantity, created_at, updated_at
		FROM cart_items
		WHERE cart_id = $1 AND product_id = $2`

	var item domain.CartItem
	err := r.db.QueryRow(ctx, query, cartID, productID).Scan(
		&item.ID,
		&item.CartID,
		&item.ProductID,
		&item.Quantity,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan cart item: %w", err)
	}

	return &item, nil
}

// UpsertItem inserts a cart line or adds to the quantity of an existing one.
func (r *CartRepository) UpsertItem(ctx context.Context, item *domain.CartItem) error {
	query := `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = EXCLUDED.updated_at`

	_, err := r.db.Exec(ctx, query,
		item.ID,
		item.CartID,
		item.ProductID,
		item.Quantity,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}

	return nil
}

// UpdateItemQuantity sets the quantity of a cart line.
func (r *CartRepository) UpdateItemQuantity(ctx context.Context, cartID, productID string, quantity int) error {
	query := `
		UPDATE cart_items
		SET quantity = $1, updated_at = $2
		WHERE cart_id = $3 AND product_id = $4`

	ct, err := r.db.Exec(ctx, query, quantity, time.Now().UTC(), cartID, productID)
	if err != nil {
		return fmt.Errorf("update cart item quantity: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("cart item", productID)
	}

	return nil
}

// RemoveItem deletes a cart line.
func (r *CartRepository) RemoveItem(ctx context.Context, cartID, productID string) error {
	ct, err := r.db.Exec(ctx,
		`DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`,
		cartID, productID,
	)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("cart item", productID)
	}

	return nil
}

// ClearItems deletes all lines of a cart.
func (r *CartRepository) ClearItems(ctx context.Context, cartID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}
	return nil
}

// ListItemDetails returns the cart's lines joined with current product data.
// Line totals are computed at the product's live price.
func (r *CartRepository) ListItemDetails(ctx context.Context, cartID string) ([]domain.CartItemDetail, error) {
	query := `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at,
			   p.name, p.price, p.price * ci.quantity AS line_total
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at`

	rows, err := r.db.Query(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart item details: %w", err)
	}
	defer rows.Close()

	details := make([]domain.CartItemDetail, 0)
	for rows.Next() {
		var d domain.CartItemDetail
		if err := rows.Scan(
			&d.ID,
			&d.CartID,
			&d.ProductID,
			&d.Quantity,
			&d.CreatedAt,
			&d.UpdatedAt,
			&d.ProductName,
			&d.UnitPrice,
			&d.LineTotal,
		); err != nil {
			return nil, fmt.Errorf("scan cart item detail: %w", err)
		}
		details = append(details, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart item details: %w", err)
	}

	return details, nil
}

// Touch bumps the cart's updated_at.
func (r *CartRepository) Touch(ctx context.Context, cartID string) error {
	if _, err := r.db.Exec(ctx, `UPDATE carts SET updated_at = $1 WHERE id = $2`, time.Now().UTC(), cartID); err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}

// CountAbandoned counts active, non-empty carts untouched since the cutoff.
func (r *CartRepository) CountAbandoned(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		SELECT count(*)
		FROM carts c
		WHERE c.active = true
		  AND c.updated_at < $1
		  AND EXISTS (SELECT 1 FROM cart_items ci WHERE ci.cart_id = c.id)`

	var count int
	if err := r.db.QueryRow(ctx, query, cutoff).Scan(&count); err != nil {
		return 0, fmt.Errorf("count abandoned carts: %w", err)
	}
	return count, nil
}

func (r *CartRepository) listItems(ctx context.Context, cartID string) ([]domain.CartItem, error) {
	query := `
		SELECT id, cart_id, product_id, quantity, created_at, updated_at
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.CartItem, 0)
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.Quantity,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan cart item row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart item rows: %w", err)
	}

	return items, nil
}
