package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Felix251/marketplace/internal/cache"
	"github.com/Felix251/marketplace/internal/domain"
	"github.com/Felix251/marketplace/internal/repository"
	apperrors "github.com/Felix251/marketplace/pkg/errors"
	"github.com/Felix251/marketplace/pkg/pagination"
)

const hierarchyCacheKey = "hierarchy"

// CategoryService implements the business logic for the category taxonomy.
type CategoryService struct {
	categories repository.CategoryRepository
	cache      *cache.Store
	logger     *slog.Logger
}

// NewCategoryService creates a new category service.
func NewCategoryService(categories repository.CategoryRepository, cacheStore *cache.Store, logger *slog.Logger) *CategoryService {
	return &CategoryService{
		categories: categories,
		cache:      cacheStore,
		logger:     logger,
	}
}

// CategoryInput holds the parameters for creating or updating a category.
type CategoryInput struct {
	Name        string
	Description string
	Image       string
	Active      bool
	ParentID    *string
}

// CreateCategory adds a category, optionally under a parent.
func (s *CategoryService) CreateCategory(ctx context.Context, input CategoryInput) (*domain.Category, error) {
	if input.ParentID != nil {
		if _, err := s.categories.GetByID(ctx, *input.ParentID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.NotFound("category", *input.ParentID)
			}
			return nil, fmt.Errorf("get parent category: %w", err)
		}
	}

	now := time.Now().UTC()
	category := &domain.Category{
		Base: domain.Base{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:        input.Name,
		Description: input.Description,
		Image:       input.Image,
		Active:      input.Active,
		ParentID:    input.ParentID,
	}

	if err := s.categories.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	s.invalidateCategories(ctx)

	s.logger.InfoContext(ctx, "category created",
		slog.String("category_id", category.ID),
		slog.String("name", category.Name),
	)

	return category, nil
}

// GetCategory retrieves a category by id through the cache.
func (s *CategoryService) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	category, err := cache.GetOrLoad(ctx, s.cache, cache.RegionCategories, id, func(ctx context.Context) (*domain.Category, error) {
		return s.categories.GetByID(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return category, nil
}

// ListCategories returns a page of categories.
func (s *CategoryService) ListCategories(ctx context.Context, params pagination.Params) (pagination.Result[domain.Category], error) {
	categories, total, err := s.categories.List(ctx, params)
	if err != nil {
		return pagination.Result[domain.Category]{}, fmt.Errorf("list categories: %w", err)
	}
	return pagination.NewResult(categories, total, params), nil
}

// ListActiveCategories returns every active category, for storefront
// navigation that should not show disabled branches.
func (s *CategoryService) ListActiveCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categories.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active categories: %w", err)
	}
	return categories, nil
}

// SearchCategories returns categories whose name or description contains
// the keyword.
func (s *CategoryService) SearchCategories(ctx context.Context, keyword string) ([]domain.Category, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, apperrors.InvalidInput("search keyword is required")
	}

	categories, err := s.categories.Search(ctx, keyword)
	if err != nil {
		return nil, fmt.Errorf("search categories: %w", err)
	}
	return categories, nil
}

// ListRootCategories returns the top-level categories.
func (s *CategoryService) ListRootCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categories.ListRoots(ctx)
	if err != nil {
		return nil, fmt.Errorf("list root categories: %w", err)
	}
	return categories, nil
}

// ListSubcategories returns the direct children of a category.
func (s *CategoryService) ListSubcategories(ctx context.Context, parentID string) ([]domain.Category, error) {
	if _, err := s.categories.GetByID(ctx, parentID); err != nil {
		return nil, fmt.Errorf("get parent category: %w", err)
	}

	categories, err := s.categories.ListChildren(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("list subcategories: %w", err)
	}
	return categories, nil
}

// GetHierarchy returns the full taxonomy ordered by (depth, name). The whole
// tree is cached as one entry since it changes rarely and reads often.
func (s *CategoryService) GetHierarchy(ctx context.Context) ([]domain.CategoryNode, error) {
	nodes, err := cache.GetOrLoad(ctx, s.cache, cache.RegionCategories, hierarchyCacheKey, func(ctx context.Context) ([]domain.CategoryNode, error) {
		return s.categories.Hierarchy(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("get category hierarchy: %w", err)
	}
	return nodes, nil
}

// GetCategoryPath returns the chain from a category up to its root.
func (s *CategoryService) GetCategoryPath(ctx context.Context, id string) ([]domain.Category, error) {
	path, err := s.categories.PathToRoot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get category path: %w", err)
	}
	return path, nil
}

// TopCategories returns the categories with the most products.
func (s *CategoryService) TopCategories(ctx context.Context, limit int) ([]domain.CategoryProductCount, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	counts, err := s.categories.TopByProductCount(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("top categories: %w", err)
	}
	return counts, nil
}

// UpdateCategory changes a category. Moving a category under itself or
// under one of its own descendants is rejected, keeping the taxonomy a forest.
func (s *CategoryService) UpdateCategory(ctx context.Context, id string, input CategoryInput) (*domain.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get category for update: %w", err)
	}

	if input.ParentID != nil {
		if *input.ParentID == id {
			return nil, apperrors.InvalidInput("category cannot be its own parent")
		}

		if _, err := s.categories.GetByID(ctx, *input.ParentID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.NotFound("category", *input.ParentID)
			}
			return nil, fmt.Errorf("get new parent category: %w", err)
		}

		cyclic, err := s.categories.IsDescendant(ctx, id, *input.ParentID)
		if err != nil {
			return nil, fmt.Errorf("check category cycle: %w", err)
		}
		if cyclic {
			return nil, apperrors.InvalidInput("cannot move category under its own descendant")
		}
	}

	category.Name = input.Name
	category.Description = input.Description
	category.Image = input.Image
	category.Active = input.Active
	category.ParentID = input.ParentID

	if err := s.categories.Update(ctx, category); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}

	s.invalidateCategories(ctx)

	return category, nil
}

// DeleteCategory removes a category. Its children are reparented to the
// deleted category's parent, so a mid-tree delete lifts the subtree one
// level instead of orphaning it.
func (s *CategoryService) DeleteCategory(ctx context.Context, id string) error {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get category for delete: %w", err)
	}

	if err := s.categories.ReparentChildren(ctx, id, category.ParentID); err != nil {
		return fmt.Errorf("reparent children: %w", err)
	}

	if err := s.categories.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	s.invalidateCategories(ctx)

	s.logger.InfoContext(ctx, "category deleted",
		slog.String("category_id", id),
		slog.String("name", category.Name),
	)

	return nil
}

// invalidateCategories drops the whole category region: any structural
// change can affect the cached hierarchy and per-id entries alike.
func (s *CategoryService) invalidateCategories(ctx context.Context) {
	if err := s.cache.InvalidateRegion(ctx, cache.RegionCategories); err != nil {
		s.logger.WarnContext(ctx, "category cache invalidation failed",
			slog.String("error", err.Error()),
		)
	}
}
