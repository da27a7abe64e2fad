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

// WishlistRepository implements repository.WishlistRepository using PostgreSQL.
type WishlistRepository struct {
	db database.DBTX
}

// NewWishlistRepository creates a new PostgreSQL-backed wishlist repository.
func NewWishlistRepository(db database.DBTX) *WishlistRepository {
	return &WishlistRepository{db: db}
}

// Create inserts a new wishlist into the database.
func (r *WishlistRepository) Create(ctx context.Context, w *domain.Wishlist) error {
	query := `
		INSERT INTO wishlists (id, user_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query, w.ID, w.UserID, w.Name, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("wishlist", "name", w.Name)
		}
		return fmt.Errorf("insert wishlist: %w", err)
	}

	return nil
}

// GetByID retrieves a wishlist and its product ids.
func (r *WishlistRepository) GetByID(ctx context.Context, id string) (*domain.Wishlist, error) {
	query := `
		SELECT w.id, w.user_id, w.name, w.created_at, w.updated_at,
			   COALESCE(array_agg(wp.product_id) FILTER (WHERE wp.product_id IS NOT NULL), '{}') AS product_ids
		FROM wishlists w
		LEFT JOIN wishlist_products wp ON wp.wishlist_id = w.id
		WHERE w.id = $1
		GROUP BY w.id`

	var w domain.Wishlist
	err := r.db.QueryRow(ctx, query, id).Scan(
		&w.ID,
		&w.UserID,
		&w.Name,
		&w.CreatedAt,
		&w.UpdatedAt,
		&w.ProductIDs,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan wishlist: %w", err)
	}

	return &w, nil
}

// ListByUserID returns all wishlists of a user, products included.
func (r *WishlistRepository) ListByUserID(ctx context.Context, userID string) ([]domain.Wishlist, error) {
	query := `
		SELECT w.id, w.user_id, w.name, w.created_at, w.updated_at,
			   COALESCE(array_agg(wp.product_id) FILTER (WHERE wp.product_id IS NOT NULL), '{}') AS product_ids
		FROM wishlists w
		LEFT JOIN wishlist_products wp ON wp.wishlist_id = w.id
		WHERE w.user_id = $1
		GROUP BY w.id
		ORDER BY w.created_at`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list wishlists: %w", err)
	}
	defer rows.Close()

	wishlists := make([]domain.Wishlist, 0)
	for rows.Next() {
		var w domain.Wishlist
		if err := rows.Scan(
			&w.ID,
			&w.UserID,
			&w.Name,
			&w.CreatedAt,
			&w.UpdatedAt,
			&w.ProductIDs,
		); err != nil {
			return nil, fmt.Errorf("scan wishlist row: %w", err)
		}
		wishlists = append(wishlists, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wishlist rows: %w", err)
	}

	return wishlists, nil
}

// AddProduct links a product to a wishlist. Already-present products are a no-op.
func (r *WishlistRepository) AddProduct(ctx context.Context, wishlistID, productID string) error {
	query := `
		INSERT INTO wishlist_products (wishlist_id, product_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`

	if _, err := r.db.Exec(ctx, query, wishlistID, productID); err != nil {
		return fmt.Errorf("add wishlist product: %w", err)
	}

	return nil
}

// RemoveProduct unlinks a product from a wishlist. Absent products are a no-op.
func (r *WishlistRepository) RemoveProduct(ctx context.Context, wishlistID, productID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM wishlist_products WHERE wishlist_id = $1 AND product_id = $2`,
		wishlistID, productID,
	)
	if err != nil {
		return fmt.Errorf("remove wishlist product: %w", err)
	}

	return nil
}

// Rename changes a wishlist's name.
func (r *WishlistRepository) Rename(ctx context.Context, id, name string) error {
	ct, err := r.db.Exec(ctx,
		`UPDATE wishlists SET name = $1, updated_at = $2 WHERE id = $3`,
		name, time.Now().UTC(), id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("wishlist", "name", name)
		}
		return fmt.Errorf("rename wishlist: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("wishlist", id)
	}

	return nil
}

// Delete removes a wishlist and its product links.
func (r *WishlistRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM wishlists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete wishlist: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("wishlist", id)
	}

	return nil
}
