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
	apperrors "github.com/Felix251/marketplace/pkg/errors"
	"github.com/Felix251/marketplace/pkg/pagination"
)

// StoreService implements the business logic for seller stores.
type StoreService struct {
	stores repository.StoreRepository
	users  repository.UserRepository
	cache  *cache.Store
	logger *slog.Logger
}

// NewStoreService creates a new store service.
func NewStoreService(stores repository.StoreRepository, users repository.UserRepository, cacheStore *cache.Store, logger *slog.Logger) *StoreService {
	return &StoreService{
		stores: stores,
		users:  users,
		cache:  cacheStore,
		logger: logger,
	}
}

// StoreInput holds the parameters for creating or updating a store.
type StoreInput struct {
	Name        string
	Description string
	Logo        string
	Banner      string
}

// CreateStore opens a store for a user. A user owns at most one store;
// opening one promotes a buyer to seller.
func (s *StoreService) CreateStore(ctx context.Context, ownerID string, input StoreInput) (*domain.Store, error) {
	if _, err := s.stores.GetByOwnerID(ctx, ownerID); err == nil {
		return nil, apperrors.Conflict("user already owns a store")
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("check existing store: %w", err)
	}

	now := time.Now().UTC()
	store := &domain.Store{
		Base: domain.Base{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:        input.Name,
		Description: input.Description,
		Logo:        input.Logo,
		Banner:      input.Banner,
		Active:      true,
		OwnerID:     ownerID,
	}

	if err := s.stores.Create(ctx, store); err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}

	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get store owner: %w", err)
	}
	if owner.Role == domain.RoleBuyer {
		owner.Role = domain.RoleSeller
		if err := s.users.Update(ctx, owner); err != nil {
			return nil, fmt.Errorf("promote owner to seller: %w", err)
		}
		s.invalidateOwner(ctx, owner)
	}

	s.logger.InfoContext(ctx, "store created",
		slog.String("store_id", store.ID),
		slog.String("owner_id", ownerID),
	)

	return store, nil
}

// GetStore retrieves a store by id through the cache.
func (s *StoreService) GetStore(ctx context.Context, id string) (*domain.Store, error) {
	store, err := cache.GetOrLoad(ctx, s.cache, cache.RegionStores, id, func(ctx context.Context) (*domain.Store, error) {
		return s.stores.GetByID(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("get store: %w", err)
	}
	return store, nil
}

// GetOwnStore retrieves the caller's store.
func (s *StoreService) GetOwnStore(ctx context.Context, ownerID string) (*domain.Store, error) {
	store, err := s.stores.GetByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get own store: %w", err)
	}
	return store, nil
}

// ListStores returns a page of stores.
func (s *StoreService) ListStores(ctx context.Context, params pagination.Params) (pagination.Result[domain.Store], error) {
	stores, total, err := s.stores.List(ctx, params)
	if err != nil {
		return pagination.Result[domain.Store]{}, fmt.Errorf("list stores: %w", err)
	}
	return pagination.NewResult(stores, total, params), nil
}

// UpdateStore changes a store. Only the owner or an admin may update it.
func (s *StoreService) UpdateStore(ctx context.Context, actor *domain.User, storeID string, input StoreInput) (*domain.Store, error) {
	store, err := s.stores.GetByID(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("get store for update: %w", err)
	}

	if store.OwnerID != actor.ID && !actor.IsAdmin() {
		return nil, apperrors.Forbidden("store belongs to another seller")
	}

	store.Name = input.Name
	store.Description = input.Description
	store.Logo = input.Logo
	store.Banner = input.Banner

	if err := s.stores.Update(ctx, store); err != nil {
		return nil, fmt.Errorf("update store: %w", err)
	}

	s.invalidateStore(ctx, storeID)

	return store, nil
}

// SetStoreActive flips a store's visibility. Owner or admin only.
func (s *StoreService) SetStoreActive(ctx context.Context, actor *domain.User, storeID string, active bool) (*domain.Store, error) {
	store, err := s.stores.GetByID(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("get store for activation: %w", err)
	}

	if store.OwnerID != actor.ID && !actor.IsAdmin() {
		return nil, apperrors.Forbidden("store belongs to another seller")
	}

	store.Active = active
	if err := s.stores.Update(ctx, store); err != nil {
		return nil, fmt.Errorf("update store active: %w", err)
	}

	s.invalidateStore(ctx, storeID)

	return store, nil
}

// DeleteStore removes a store and demotes its owner back to buyer unless
// they are an admin. Owner or admin only.
func (s *StoreService) DeleteStore(ctx context.Context, actor *domain.User, storeID string) error {
	store, err := s.stores.GetByID(ctx, storeID)
	if err != nil {
		return fmt.Errorf("get store for delete: %w", err)
	}

	if store.OwnerID != actor.ID && !actor.IsAdmin() {
		return apperrors.Forbidden("store belongs to another seller")
	}

	if err := s.stores.Delete(ctx, storeID); err != nil {
		return fmt.Errorf("delete store: %w", err)
	}

	owner, err := s.users.GetByID(ctx, store.OwnerID)
	if err == nil && owner.Role == domain.RoleSeller {
		owner.Role = domain.RoleBuyer
		if err := s.users.Update(ctx, owner); err != nil {
			s.logger.WarnContext(ctx, "failed to demote store owner",
				slog.String("owner_id", owner.ID),
				slog.String("error", err.Error()),
			)
		} else {
			s.invalidateOwner(ctx, owner)
		}
	}

	s.invalidateStore(ctx, storeID)

	s.logger.InfoContext(ctx, "store deleted",
		slog.String("store_id", storeID),
		slog.String("actor_id", actor.ID),
	)

	return nil
}

func (s *StoreService) invalidateStore(ctx context.Context, storeID string) {
	if err := s.cache.Invalidate(ctx, cache.RegionStores, storeID); err != nil {
		s.logger.WarnContext(ctx, "store cache invalidation failed",
			slog.String("store_id", storeID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *StoreService) invalidateOwner(ctx context.Context, owner *domain.User) {
	for _, key := range []string{owner.ID, "email:" + owner.Email} {
		if err := s.cache.Invalidate(ctx, cache.RegionUsers, key); err != nil {
			s.logger.WarnContext(ctx, "user cache invalidation failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
}
