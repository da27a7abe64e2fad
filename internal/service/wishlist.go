package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Felix251/marketplace/internal/domain"
	"github.com/Felix251/marketplace/internal/repository"
	apperrors "github.com/Felix251/marketplace/pkg/errors"
)

// WishlistService implements the business logic for wishlists.
type WishlistService struct {
	wishlists repository.WishlistRepository
	products  repository.ProductRepository
	logger    *slog.Logger
}

// NewWishlistService creates a new wishlist service.
func NewWishlistService(wishlists repository.WishlistRepository, products repository.ProductRepository, logger *slog.Logger) *WishlistService {
	return &WishlistService{
		wishlists: wishlists,
		products:  products,
		logger:    logger,
	}
}

// CreateWishlist adds a named wishlist for a user. Names are unique per user.
func (s *WishlistService) CreateWishlist(ctx context.Context, userID, name string) (*domain.Wishlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.InvalidInput("wishlist name is required")
	}

	now := time.Now().UTC()
	wishlist := &domain.Wishlist{
		Base: domain.Base{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		UserID:     userID,
		Name:       name,
		ProductIDs: []string{},
	}

	if err := s.wishlists.Create(ctx, wishlist); err != nil {
		return nil, fmt.Errorf("create wishlist: %w", err)
	}

	s.logger.InfoContext(ctx, "wishlist created",
		slog.String("wishlist_id", wishlist.ID),
		slog.String("user_id", userID),
	)

	return wishlist, nil
}

// GetWishlist retrieves one of the user's wishlists.
func (s *WishlistService) GetWishlist(ctx context.Context, userID, wishlistID string) (*domain.Wishlist, error) {
	wishlist, err := s.wishlists.GetByID(ctx, wishlistID)
	if err != nil {
		return nil, fmt.Errorf("get wishlist: %w", err)
	}

	if wishlist.UserID != userID {
		return nil, apperrors.Forbidden("wishlist belongs to another user")
	}

	return wishlist, nil
}

// ListWishlists returns all of the user's wishlists.
func (s *WishlistService) ListWishlists(ctx context.Context, userID string) ([]domain.Wishlist, error) {
	wishlists, err := s.wishlists.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list wishlists: %w", err)
	}
	return wishlists, nil
}

// AddProduct puts a product on a wishlist. Adding a product that is already
// on the list is a no-op.
func (s *WishlistService) AddProduct(ctx context.Context, userID, wishlistID, productID string) (*domain.Wishlist, error) {
	if _, err := s.GetWishlist(ctx, userID, wishlistID); err != nil {
		return nil, err
	}

	if _, err := s.products.GetByID(ctx, productID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("product", productID)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	if err := s.wishlists.AddProduct(ctx, wishlistID, productID); err != nil {
		return nil, fmt.Errorf("add wishlist product: %w", err)
	}

	return s.wishlists.GetByID(ctx, wishlistID)
}

// RemoveProduct takes a product off a wishlist. Removing an absent product
// is a no-op.
func (s *WishlistService) RemoveProduct(ctx context.Context, userID, wishlistID, productID string) (*domain.Wishlist, error) {
	if _, err := s.GetWishlist(ctx, userID, wishlistID); err != nil {
		return nil, err
	}

	if err := s.wishlists.RemoveProduct(ctx, wishlistID, productID); err != nil {
		return nil, fmt.Errorf("remove wishlist product: %w", err)
	}

	return s.wishlists.GetByID(ctx, wishlistID)
}

// RenameWishlist changes a wishlist's name, which stays unique per user.
func (s *WishlistService) RenameWishlist(ctx context.Context, userID, wishlistID, name string) (*domain.Wishlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.InvalidInput("wishlist name is required")
	}

	wishlist, err := s.GetWishlist(ctx, userID, wishlistID)
	if err != nil {
		return nil, err
	}

	if err := s.wishlists.Rename(ctx, wishlistID, name); err != nil {
		return nil, fmt.Errorf("rename wishlist: %w", err)
	}

	wishlist.Name = name
	return wishlist, nil
}

// DeleteWishlist removes a wishlist and its product links.
func (s *WishlistService) DeleteWishlist(ctx context.Context, userID, wishlistID string) error {
	if _, err := s.GetWishlist(ctx, userID, wishlistID); err != nil {
		return err
	}

	if err := s.wishlists.Delete(ctx, wishlistID); err != nil {
		return fmt.Errorf("delete wishlist: %w", err)
	}

	s.logger.InfoContext(ctx, "wishlist deleted", slog.String("wishlist_id", wishlistID))
	return nil
}
