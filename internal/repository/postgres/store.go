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
	"github.com/Felix251/marketplace/pkg/pagination"
)

// StoreRepository implements repository.StoreRepository using PostgreSQL.
type StoreRepository struct {
	db database.DBTX
}

// NewStoreRepository creates a new PostgreSQL-backed store repository.
func NewStoreRepository(db database.DBTX) *StoreRepository {
	return &StoreRepository{db: db}
}

const storeColumns = `id, name, description, logo, banner, active, owner_id, created_at, updated_at`

// Create inserts a new store into the database.
func (r *StoreRepository) Create(ctx context.Context, s *domain.Store) error {
	query := `
		INSERT INTO stores (id, name, description, logo, banner, active, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		s.ID,
		s.Name,
		s.Description,
		s.Logo,
		s.Banner,
		s.Active,
		s.OwnerID,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("store", "owner", s.OwnerID)
		}
		return fmt.Errorf("insert store: %w", err)
	}

	return nil
}

// GetByID retrieves a store by its ID.
func (r *StoreRepository) GetByID(ctx context.Context, id string) (*domain.Store, error) {
	query := `SELECT ` + storeColumns + ` FROM stores WHERE id = $1`
	return r.scanStore(ctx, query, id)
}

// GetByOwnerID retrieves the store owned by the given user.
func (r *StoreRepository) GetByOwnerID(ctx context.Context, ownerID string) (*domain.Store, error) {
	query := `SELECT ` + storeColumns + ` FROM stores WHERE owner_id = $1`
	return r.scanStore(ctx, query, ownerID)
}

// List returns a page of stores with the total count.
func (r *StoreRepository) List(ctx context.Context, params pagination.Params) ([]domain.Store, int, error) {
	orderBy := params.OrderBy(map[string]string{
		"name":       "name",
		"created_at": "created_at",
	})

	query := fmt.Sprintf(`
		SELECT `+storeColumns+`,
			   count(*) OVER() AS total_count
		FROM stores
		ORDER BY %s
		LIMIT $1 OFFSET $2`, orderBy)

	rows, err := r.db.Query(ctx, query, params.Size, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()

	var totalCount int
	stores := make([]domain.Store, 0)

	for rows.Next() {
		var s domain.Store
		if err := rows.Scan(
			&s.ID,
			&s.Name,
			&s.Description,
			&s.Logo,
			&s.Banner,
			&s.Active,
			&s.OwnerID,
			&s.CreatedAt,
			&s.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan store row: %w", err)
		}
		stores = append(stores, s)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate store rows: %w", err)
	}

	return stores, totalCount, nil
}

// Update modifies an existing store in the database.
func (r *StoreRepository) Update(ctx context.Context, s *domain.Store) error {
	s.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE stores
		SET name = $1, description = $2, logo = $3, banner = $4, active = $5, updated_at = $6
		WHERE id = $7`

	ct, err := r.db.Exec(ctx, query,
		s.Name,
		s.Description,
		s.Logo,
		s.Banner,
		s.Active,
		s.UpdatedAt,
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("update store: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("store", s.ID)
	}

	return nil
}

// Delete removes a store from the database by its ID.
func (r *StoreRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM stores WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete store: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("store", id)
	}

	return nil
}

func (r *StoreRepository) scanStore(ctx context.Context, query string, args ...any) (*domain.Store, error) {
	var s domain.Store

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&s.ID,
		&s.Name,
		&s.Description,
		&s.Logo,
		&s.Banner,
		&s.Active,
		&s.OwnerID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan store: %w", err)
	}

	return &s, nil
}
