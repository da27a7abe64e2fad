package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Felix251/marketplace/internal/domain"
	"github.com/Felix251/marketplace/internal/repository"
	apperrors "github.com/Felix251/marketplace/pkg/errors"
)

// CartService implements the business logic for shopping carts.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	logger   *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(carts repository.CartRepository, products repository.ProductRepository, logger *slog.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		logger:   logger,
	}
}

// CartView is a cart with its lines priced at current product prices.
type CartView struct {
	Cart      *domain.Cart            `json:"cart"`
	Items     []domain.CartItemDetail `json:"items"`
	ItemCount int                     `json:"item_count"`
	Total     decimal.Decimal         `json:"total"`
}

// GetCart returns the user's active cart, creating an empty one on first use.
func (s *CartService) GetCart(ctx context.Context, userID string) (*CartView, error) {
	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, cart)
}

// AddItem puts a product in the cart. Adding a product already in the cart
// increments its quantity; the combined quantity must not exceed stock.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*CartView, error) {
	if quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("product", productID)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	if !product.Active {
		return nil, apperrors.Conflict("product is not available")
	}

	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	requested := quantity
	if existing, err := s.carts.GetItem(ctx, cart.ID, productID); err == nil {
		requested += existing.Quantity
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("get cart item: %w", err)
	}

	if !product.IsAvailable(requested) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("insufficient stock for product %s", productID))
	}

	now := time.Now().UTC()
	item := &domain.CartItem{
		Base: domain.Base{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		CartID:    cart.ID,
		ProductID: productID,
		Quantity:  quantity,
	}
	if err := s.carts.UpsertItem(ctx, item); err != nil {
		return nil, fmt.Errorf("upsert cart item: %w", err)
	}

	s.touch(ctx, cart.ID)

	s.logger.InfoContext(ctx, "cart item added",
		slog.String("cart_id", cart.ID),
		slog.String("product_id", productID),
		slog.Int("quantity", quantity),
	)

	return s.buildView(ctx, cart)
}

// SetItemQuantity sets the quantity of a cart line. A quantity of zero
// removes the line.
func (s *CartService) SetItemQuantity(ctx context.Context, userID, productID string, quantity int) (*CartView, error) {
	if quantity < 0 {
		return nil, apperrors.InvalidInput("quantity cannot be negative")
	}

	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	if quantity == 0 {
		if err := s.carts.RemoveItem(ctx, cart.ID, productID); err != nil {
			return nil, fmt.Errorf("remove cart item: %w", err)
		}
		s.touch(ctx, cart.ID)
		return s.buildView(ctx, cart)
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("product", productID)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	if !product.IsAvailable(quantity) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("insufficient stock for product %s", productID))
	}

	if err := s.carts.UpdateItemQuantity(ctx, cart.ID, productID, quantity); err != nil {
		return nil, fmt.Errorf("update cart item quantity: %w", err)
	}

	s.touch(ctx, cart.ID)

	return s.buildView(ctx, cart)
}

// RemoveItem deletes a product line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*CartView, error) {
	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.carts.RemoveItem(ctx, cart.ID, productID); err != nil {
		return nil, fmt.Errorf("remove cart item: %w", err)
	}

	s.touch(ctx, cart.ID)

	return s.buildView(ctx, cart)
}

// ClearCart empties the user's cart.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	cart, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.carts.ClearItems(ctx, cart.ID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	s.touch(ctx, cart.ID)

	s.logger.InfoContext(ctx, "cart cleared", slog.String("cart_id", cart.ID))
	return nil
}

func (s *CartService) getOrCreate(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.carts.GetActiveByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("get active cart: %w", err)
	}

	now := time.Now().UTC()
	cart = &domain.Cart{
		Base: domain.Base{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		UserID: userID,
		Active: true,
	}
	if err := s.carts.Create(ctx, cart); err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}

	s.logger.InfoContext(ctx, "cart created",
		slog.String("cart_id", cart.ID),
		slog.String("user_id", userID),
	)

	return cart, nil
}

// buildView prices the cart lines at the products' current prices.
func (s *CartService) buildView(ctx context.Context, cart *domain.Cart) (*CartView, error) {
	details, err := s.carts.ListItemDetails(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("list cart item details: %w", err)
	}

	total := decimal.Zero
	count := 0
	for _, d := range details {
		total = total.Add(d.LineTotal)
		count += d.Quantity
	}

	return &CartView{
		Cart:      cart,
		Items:     details,
		ItemCount: count,
		Total:     total,
	}, nil
}

func (s *CartService) touch(ctx context.Context, cartID string) {
	if err := s.carts.Touch(ctx, cartID); err != nil {
		s.logger.WarnContext(ctx, "failed to touch cart",
			slog.String("cart_id", cartID),
			slog.String("error", err.Error()),
		)
	}
}
