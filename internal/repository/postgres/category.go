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

// CategoryRepository implements repository.CategoryRepository using PostgreSQL.
type CategoryRepository struct {
	db database.DBTX
}

// NewCategoryRepository creates a new PostgreSQL-backed category repository.
func NewCategoryRepository(db database.DBTX) *CategoryRepository {
	return &CategoryRepository{db: db}
}

const categoryColumns = `id, name, description, image, active, parent_id, created_at, updated_at`

// Create inserts a new category into the database.
func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	query := `
		INSERT INTO categories (id, name, description, image, active, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		c.ID,
		c.Name,
		c.Description,
		c.Image,
		c.Active,
		c.ParentID,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("category", "name", c.Name)
		}
		return fmt.Errorf("insert category: %w", err)
	}

	return nil
}

// GetByID retrieves a category by its ID.
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

	var c domain.Category
	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.Image,
		&c.Active,
		&c.ParentID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan category: %w", err)
	}

	return &c, nil
}

// List returns a page of categories with the total count.
func (r *CategoryRepository) List(ctx context.Context, params pagination.Params) ([]domain.Category, int, error) {
	orderBy := params.OrderBy(map[string]string{
		"name":       "name",
		"created_at": "created_at",
	})

	query := fmt.Sprintf(`
		SELECT `+categoryColumns+`,
			   count(*) OVER() AS total_count
		FROM categories
		ORDER BY %s
		LIMIT $1 OFFSET $2`, orderBy)

	rows, err := r.db.Query(ctx, query, params.Size, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var totalCount int
	categories := make([]domain.Category, 0)

	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.Description,
			&c.Image,
			&c.Active,
			&c.ParentID,
			&c.CreatedAt,
			&c.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan category row: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate category rows: %w", err)
	}

	return categories, totalCount, nil
}

// ListRoots returns all categories without a parent.
func (r *CategoryRepository) ListRoots(ctx context.Context) ([]domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE parent_id IS NULL ORDER BY name`
	return r.queryCategories(ctx, query)
}

// ListActive returns every active category ordered by name.
func (r *CategoryRepository) ListActive(ctx context.Context) ([]domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE active ORDER BY name`
	return r.queryCategories(ctx, query)
}

// Search returns categories whose name or description contains the
// keyword, case-insensitively, ordered by name.
func (r *CategoryRepository) Search(ctx context.Context, keyword string) ([]domain.Category, error) {
	query := `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%'
		ORDER BY name`
	return r.queryCategories(ctx, query, keyword)
}

// ListChildren returns the direct children of a category.
func (r *CategoryRepository) ListChildren(ctx context.Context, parentID string) ([]domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE parent_id = $1 ORDER BY name`
	return r.queryCategories(ctx, query, parentID)
}

// Hierarchy returns the whole taxonomy as a flat list ordered by
// (depth, name) using a recursive CTE. Depth starts at 0 for roots, so
// every parent precedes its children.
func (r *CategoryRepository) Hierarchy(ctx context.Context) ([]domain.CategoryNode, error) {
	query := `
		WITH RECURSIVE tree AS (
			SELECT id, name, description, image, active, parent_id, created_at, updated_at,
				   0 AS depth
			FROM categories
			WHERE parent_id IS NULL
			UNION ALL
			SELECT c.id, c.name, c.description, c.image, c.active, c.parent_id, c.created_at, c.updated_at,
				   t.depth + 1
			FROM categories c
			JOIN tree t ON c.parent_id = t.id
		)
		SELECT id, name, description, image, active, parent_id, created_at, updated_at, depth
		FROM tree
		ORDER BY depth, name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query category hierarchy: %w", err)
	}
	defer rows.Close()

	nodes := make([]domain.CategoryNode, 0)
	for rows.Next() {
		var n domain.CategoryNode
		if err := rows.Scan(
			&n.ID,
			&n.Name,
			&n.Description,
			&n.Image,
			&n.Active,
			&n.ParentID,
			&n.CreatedAt,
			&n.UpdatedAt,
			&n.Depth,
		); err != nil {
			return nil, fmt.Errorf("scan category node: %w", err)
		}
		nodes = append(nodes, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category nodes: %w", err)
	}

	return nodes, nil
}

// PathToRoot returns the chain from the given category up to its root,
// starting with the category itself.
func (r *CategoryRepository) PathToRoot(ctx context.Context, id string) ([]domain.Category, error) {
	query := `
		WITH RECURSIVE chain AS (
			SELECT id, name, description, image, active, parent_id, created_at, updated_at, 0 AS depth
			FROM categories
			WHERE id = $1
			UNION ALL
			SELECT c.id, c.name, c.description, c.image, c.active, c.parent_id, c.created_at, c.updated_at, ch.depth + 1
			FROM categories c
			JOIN chain ch ON c.id = ch.parent_id
		)
		SELECT id, name, description, image, active, parent_id, created_at, updated_at
		FROM chain
		ORDER BY depth`

	path, err := r.queryCategories(ctx, query, id)
	if err != nil {
		return nil, err
	}
	if len(path) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return path, nil
}

// IsDescendant reports whether candidate lies in the subtree rooted at
// ancestor. The ancestor itself counts as a descendant.
func (r *CategoryRepository) IsDescendant(ctx context.Context, ancestorID, candidateID string) (bool, error) {
	query := `
		WITH RECURSIVE subtree AS (
			SELECT id FROM categories WHERE id = $1
			UNION ALL
			SELECT c.id FROM categories c JOIN subtree s ON c.parent_id = s.id
		)
		SELECT EXISTS (SELECT 1 FROM subtree WHERE id = $2)`

	var found bool
	if err := r.db.QueryRow(ctx, query, ancestorID, candidateID).Scan(&found); err != nil {
		return false, fmt.Errorf("check category descendant: %w", err)
	}
	return found, nil
}

// TopByProductCount returns the categories with the most linked products.
func (r *CategoryRepository) TopByProductCount(ctx context.Context, limit int) ([]domain.CategoryProductCount, error) {
	query := `
		SELECT c.id, c.name, c.description, c.image, c.active, c.parent_id, c.created_at, c.updated_at,
			   count(pc.product_id) AS product_count
		FROM categories c
		LEFT JOIN product_categories pc ON pc.category_id = c.id
		GROUP BY c.id
		ORDER BY product_count DESC, c.name
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query top categories: %w", err)
	}
	defer rows.Close()

	counts := make([]domain.CategoryProductCount, 0)
	for rows.Next() {
		var c domain.CategoryProductCount
		if err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.Description,
			&c.Image,
			&c.Active,
			&c.ParentID,
			&c.CreatedAt,
			&c.UpdatedAt,
			&c.ProductCount,
		); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category counts: %w", err)
	}

	return counts, nil
}

// Update modifies an existing category in the database.
func (r *CategoryRepository) Update(ctx context.Context, c *domain.Category) error {
	c.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE categories
		SET name = $1, description = $2, image = $3, active = $4, parent_id = $5, updated_at = $6
		WHERE id = $7`

	ct, err := r.db.Exec(ctx, query,
		c.Name,
		c.Description,
		c.Image,
		c.Active,
		c.ParentID,
		c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("category", "name", c.Name)
		}
		return fmt.Errorf("update category: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("category", c.ID)
	}

	return nil
}

// ReparentChildren moves all direct children of a category to a new parent.
func (r *CategoryRepository) ReparentChildren(ctx context.Context, fromID string, toParentID *string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE categories SET parent_id = $1, updated_at = $2 WHERE parent_id = $3`,
		toParentID, time.Now().UTC(), fromID,
	)
	if err != nil {
		return fmt.Errorf("reparent categories: %w", err)
	}
	return nil
}

// Delete removes a category from the database by its ID.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("category", id)
	}

	return nil
}

func (r *CategoryRepository) queryCategories(ctx context.Context, query string, args ...any) ([]domain.Category, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.Description,
			&c.Image,
			&c.Active,
			&c.ParentID,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}

	return categories, nil
}
