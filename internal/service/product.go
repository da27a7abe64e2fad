package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Felix251/marketplace/internal/cache"
	"github.com/Felix251/marketplace/internal/domain"
	"github.com/Felix251/marketplace/internal/repository"
	"github.com/Felix251/marketplace/internal/search"
	apperrors "github.com/Felix251/marketplace/pkg/errors"
	"github.com/Felix251/marketplace/pkg/pagination"
)

// reindexBatchSize is how many products a reindex pass loads per page.
const reindexBatchSize = 200

// indexRepair receives index writes that failed on the synchronous path.
// *search.RepairQueue implements it.
type indexRepair interface {
	EnqueueIndex(doc *search.ProductDocument)
	EnqueueDelete(id string)
}

// ProductService implements the business logic for the product catalog.
// Every write lands in PostgreSQL first and is then indexed; an index
// failure never fails the write.
type ProductService struct {
	products   repository.ProductRepository
	stores     repository.StoreRepository
	categories repository.CategoryRepository
	index      search.Index
	repair     indexRepair
	cache      *cache.Store
	logger     *slog.Logger
}

// NewProductService creates a new product service.
func NewProductService(
	products repository.ProductRepository,
	stores repository.StoreRepository,
	categories repository.CategoryRepository,
	index search.Index,
	repair indexRepair,
	cacheStore *cache.Store,
	logger *slog.Logger,
) *ProductService {
	return &ProductService{
		products:   products,
		stores:     stores,
		categories: categories,
		index:      index,
		repair:     repair,
		cache:      cacheStore,
		logger:     logger,
	}
}

// ProductInput holds the parameters for creating or updating a product.
type ProductInput struct {
	Name        string
	Description string
	Price       string
	Quantity    int
	Images      []string
	Featured    bool
	Active      bool
	CategoryIDs []string
	// StoreID is only honored for admins; sellers always publish into
	// their own store.
	StoreID string
}

// CreateProduct publishes a product. Sellers publish into their own store;
// admins may target any store.
func (s *ProductService) CreateProduct(ctx context.Context, actor *domain.User, input ProductInput) (*domain.Product, error) {
	store, err := s.resolveStore(ctx, actor, input.StoreID)
	if err != nil {
		return nil, err
	}

	price, err := parsePrice(input.Price)
	if err != nil {
		return nil, err
	}

	if input.Quantity < 0 {
		return nil, apperrors.InvalidInput("quantity cannot be negative")
	}

	if err := s.checkCategories(ctx, input.CategoryIDs); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := &domain.Product{
		Base: domain.Base{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:        input.Name,
		Description: input.Description,
		Price:       price,
		Quantity:    input.Quantity,
		Images:      input.Images,
		Featured:    input.Featured,
		Active:      input.Active,
		StoreID:     store.ID,
		CategoryIDs: input.CategoryIDs,
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.syncIndex(ctx, product)

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("store_id", store.ID),
	)

	return product, nil
}

// GetProduct retrieves a product by id through the cache.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, err := cache.GetOrLoad(ctx, s.cache, cache.RegionProducts, id, func(ctx context.Context) (*domain.Product, error) {
		return s.products.GetByID(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

// ListProducts returns a filtered, paginated product listing straight from
// PostgreSQL. Keyword relevance queries go through SearchProducts instead.
func (s *ProductService) ListProducts(ctx context.Context, filter repository.ProductFilter, params pagination.Params) (pagination.Result[domain.Product], error) {
	products, total, err := s.products.List(ctx, filter, params)
	if err != nil {
		return pagination.Result[domain.Product]{}, fmt.Errorf("list products: %w", err)
	}
	return pagination.NewResult(products, total, params), nil
}

// SearchProducts runs a keyword query against the search index.
func (s *ProductService) SearchProducts(ctx context.Context, query *search.Query) (*search.Result, error) {
	result, err := s.index.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return result, nil
}

// SuggestProducts returns autocomplete suggestions for a prefix.
func (s *ProductService) SuggestProducts(ctx context.Context, prefix string, limit int) ([]search.Suggestion, error) {
	suggestions, err := s.index.Suggest(ctx, prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("suggest products: %w", err)
	}
	return suggestions, nil
}

// TopSellingProducts returns the products with the most units sold.
func (s *ProductService) TopSellingProducts(ctx context.Context, limit int) ([]repository.ProductSales, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	sales, err := s.products.ListTopSelling(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("top selling products: %w", err)
	}
	return sales, nil
}

// CheckAvailability reports whether the requested quantity of a product
// can currently be fulfilled. Reads stock straight from PostgreSQL so the
// answer is not staled by the cache.
func (s *ProductService) CheckAvailability(ctx context.Context, id string, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, apperrors.InvalidInput("quantity must be positive")
	}

	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("get product for availability: %w", err)
	}
	return product.IsAvailable(quantity), nil
}

// AdjustStock changes a product's quantity by delta without touching the
// rest of the listing. Only the owning seller or an admin may adjust it;
// a delta that would drive stock negative is rejected.
func (s *ProductService) AdjustStock(ctx context.Context, actor *domain.User, id string, delta int) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for stock adjust: %w", err)
	}

	if err := s.checkOwnership(ctx, actor, product); err != nil {
		return nil, err
	}

	if err := s.products.AdjustStock(ctx, id, delta); err != nil {
		return nil, err
	}

	product.Quantity += delta

	s.invalidateProduct(ctx, id)
	s.syncIndex(ctx, product)

	s.logger.InfoContext(ctx, "product stock adjusted",
		slog.String("product_id", id),
		slog.Int("delta", delta),
		slog.Int("quantity", product.Quantity),
	)

	return product, nil
}

// UpdateProduct changes a product. Only the owning seller or an admin may
// update it.
func (s *ProductService) UpdateProduct(ctx context.Context, actor *domain.User, id string, input ProductInput) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for update: %w", err)
	}

	if err := s.checkOwnership(ctx, actor, product); err != nil {
		return nil, err
	}

	price, err := parsePrice(input.Price)
	if err != nil {
		return nil, err
	}

	if input.Quantity < 0 {
		return nil, apperrors.InvalidInput("quantity cannot be negative")
	}

	if err := s.checkCategories(ctx, input.CategoryIDs); err != nil {
		return nil, err
	}

	product.Name = input.Name
	product.Description = input.Description
	product.Price = price
	product.Quantity = input.Quantity
	product.Images = input.Images
	product.Featured = input.Featured
	product.Active = input.Active
	product.CategoryIDs = input.CategoryIDs

	if err := s.products.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	if err := s.products.SetCategories(ctx, id, input.CategoryIDs); err != nil {
		return nil, fmt.Errorf("set product categories: %w", err)
	}

	s.invalidateProduct(ctx, id)
	s.syncIndex(ctx, product)

	return product, nil
}

// DeleteProduct removes a product and its index document. Only the owning
// seller or an admin may delete it.
func (s *ProductService) DeleteProduct(ctx context.Context, actor *domain.User, id string) error {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get product for delete: %w", err)
	}

	if err := s.checkOwnership(ctx, actor, product); err != nil {
		return err
	}

	if err := s.products.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	s.invalidateProduct(ctx, id)

	if err := s.index.Delete(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "product deindex failed, queued for repair",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
		s.repair.EnqueueDelete(id)
	}

	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))
	return nil
}

// ReindexAll rebuilds the search index from PostgreSQL: the index is
// cleared first so stale documents do not survive, then the catalog is
// streamed in stable batches. Cancelling the context stops between
// batches. Returns the number of products indexed.
func (s *ProductService) ReindexAll(ctx context.Context) (int, error) {
	if err := s.index.Clear(ctx); err != nil {
		return 0, fmt.Errorf("clear index: %w", err)
	}

	indexed := 0
	afterID := ""

	for {
		if err := ctx.Err(); err != nil {
			return indexed, fmt.Errorf("reindex cancelled: %w", err)
		}

		batch, err := s.products.ListPage(ctx, afterID, reindexBatchSize)
		if err != nil {
			return indexed, fmt.Errorf("load reindex batch: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		docs := make([]search.ProductDocument, 0, len(batch))
		for i := range batch {
			doc, err := s.buildDocument(ctx, &batch[i])
			if err != nil {
				return indexed, err
			}
			docs = append(docs, *doc)
		}

		if err := s.index.BulkIndex(ctx, docs); err != nil {
			return indexed, fmt.Errorf("bulk index batch: %w", err)
		}

		indexed += len(batch)
		afterID = batch[len(batch)-1].ID
	}

	s.logger.InfoContext(ctx, "reindex completed", slog.Int("indexed", indexed))
	return indexed, nil
}

// resolveStore returns the store a product write targets.
func (s *ProductService) resolveStore(ctx context.Context, actor *domain.User, storeID string) (*domain.Store, error) {
	if actor.IsAdmin() && storeID != "" {
		store, err := s.stores.GetByID(ctx, storeID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.NotFound("store", storeID)
			}
			return nil, fmt.Errorf("get store: %w", err)
		}
		return store, nil
	}

	store, err := s.stores.GetByOwnerID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Forbidden("seller has no store")
		}
		return nil, fmt.Errorf("get seller store: %w", err)
	}
	return store, nil
}

// checkOwnership verifies the actor may modify the product.
func (s *ProductService) checkOwnership(ctx context.Context, actor *domain.User, product *domain.Product) error {
	if actor.IsAdmin() {
		return nil
	}

	store, err := s.stores.GetByOwnerID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Forbidden("seller has no store")
		}
		return fmt.Errorf("get seller store: %w", err)
	}

	if product.StoreID != store.ID {
		return apperrors.Forbidden("product belongs to another store")
	}

	return nil
}

// checkCategories verifies every referenced category exists.
func (s *ProductService) checkCategories(ctx context.Context, categoryIDs []string) error {
	for _, id := range categoryIDs {
		if _, err := s.categories.GetByID(ctx, id); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.NotFound("category", id)
			}
			return fmt.Errorf("get category: %w", err)
		}
	}
	return nil
}

// syncIndex writes the product's document to the index. Failures queue a
// repair op instead of failing the caller: PostgreSQL already committed.
func (s *ProductService) syncIndex(ctx context.Context, product *domain.Product) {
	doc, err := s.buildDocument(ctx, product)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to build index document",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := s.index.Index(ctx, doc); err != nil {
		s.logger.WarnContext(ctx, "product index failed, queued for repair",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
		s.repair.EnqueueIndex(doc)
	}
}

func (s *ProductService) buildDocument(ctx context.Context, product *domain.Product) (*search.ProductDocument, error) {
	store, err := s.stores.GetByID(ctx, product.StoreID)
	if err != nil {
		return nil, fmt.Errorf("get store for document: %w", err)
	}

	names := make([]string, 0, len(product.CategoryIDs))
	for _, id := range product.CategoryIDs {
		category, err := s.categories.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("get category for document: %w", err)
		}
		names = append(names, category.Name)
	}

	return search.DocumentFromProduct(product, store.Name, names), nil
}

func (s *ProductService) invalidateProduct(ctx context.Context, id string) {
	if err := s.cache.Invalidate(ctx, cache.RegionProducts, id); err != nil {
		s.logger.WarnContext(ctx, "product cache invalidation failed",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}
}
