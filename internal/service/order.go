package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/Felix251/marketplace/internal/domain"
	"github.com/Felix251/marketplace/internal/repository"
	"github.com/Felix251/marketplace/pkg/database"
	apperrors "github.com/Felix251/marketplace/pkg/errors"
	"github.com/Felix251/marketplace/pkg/pagination"
)

const (
	orderNumberLength  = 10
	orderNumberCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// maxOrderNumberAttempts bounds the collision re-roll loop. With a
	// 36^10 space this never triggers in practice.
	maxOrderNumberAttempts = 5
)

// CheckoutRepos are the repositories a checkout needs inside one
// transaction. The factory builds them over the transaction's DBTX so
// every statement of a checkout shares the same serializable snapshot.
type CheckoutRepos struct {
	Orders   repository.OrderRepository
	Products repository.ProductRepository
	Carts    repository.CartRepository
}

// Pricing holds the checkout pricing parameters.
type Pricing struct {
	TaxRate     decimal.Decimal
	ShippingFee decimal.Decimal
}

// OrderService implements the order engine: serializable checkout, the
// fulfillment state machine, and cancellation with stock restoration.
type OrderService struct {
	db        database.TxBeginner
	txRepos   func(db database.DBTX) CheckoutRepos
	orders    repository.OrderRepository
	carts     repository.CartRepository
	addresses repository.AddressRepository
	pricing   Pricing
	logger    *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	db database.TxBeginner,
	txRepos func(db database.DBTX) CheckoutRepos,
	orders repository.OrderRepository,
	carts repository.CartRepository,
	addresses repository.AddressRepository,
	pricing Pricing,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		db:        db,
		txRepos:   txRepos,
		orders:    orders,
		carts:     carts,
		addresses: addresses,
		pricing:   pricing,
		logger:    logger,
	}
}

// CheckoutInput holds the parameters for placing an order.
type CheckoutInput struct {
	ShippingAddressID string
	// BillingAddressID defaults to the shipping address when empty.
	BillingAddressID string
}

// Checkout converts the user's cart into a PENDING order. It runs as one
// serializable transaction: product rows are locked in id order, stock is
// checked and decremented, and item prices are frozen at the current
// product price. The cart is emptied on success.
func (s *OrderService) Checkout(ctx context.Context, userID string, input CheckoutInput) (*domain.Order, error) {
	if input.ShippingAddressID == "" {
		return nil, apperrors.InvalidInput("shipping address is required")
	}
	if input.BillingAddressID == "" {
		input.BillingAddressID = input.ShippingAddressID
	}

	for _, addressID := range []string{input.ShippingAddressID, input.BillingAddressID} {
		address, err := s.addresses.GetByID(ctx, addressID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.NotFound("address", addressID)
			}
			return nil, fmt.Errorf("get address: %w", err)
		}
		if address.UserID != userID {
			return nil, apperrors.Forbidden("address belongs to another user")
		}
	}

	var order *domain.Order
	err := database.WithSerializableTransaction(ctx, s.db, func(tx pgx.Tx) error {
		repos := s.txRepos(tx)

		cart, err := repos.Carts.GetActiveByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.InvalidInput("cart is empty")
			}
			return fmt.Errorf("get active cart: %w", err)
		}
		if len(cart.Items) == 0 {
			return apperrors.InvalidInput("cart is empty")
		}

		ids := make([]string, 0, len(cart.Items))
		for _, item := range cart.Items {
			ids = append(ids, item.ProductID)
		}

		products, err := repos.Products.LockForUpdate(ctx, ids)
		if err != nil {
			return fmt.Errorf("lock products: %w", err)
		}
		byID := make(map[string]*domain.Product, len(products))
		for i := range products {
			byID[products[i].ID] = &products[i]
		}

		now := time.Now().UTC()
		subtotal := decimal.Zero
		items := make([]domain.OrderItem, 0, len(cart.Items))
		orderID := uuid.New().String()

		for _, line := range cart.Items {
			product, ok := byID[line.ProductID]
			if !ok {
				return apperrors.NotFound("product", line.ProductID)
			}
			if !product.IsAvailable(line.Quantity) {
				return apperrors.InvalidInput(fmt.Sprintf("insufficient stock for product %s", product.ID))
			}

			if err := repos.Products.AdjustStock(ctx, product.ID, -line.Quantity); err != nil {
				return fmt.Errorf("adjust stock: %w", err)
			}

			subtotal = subtotal.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
			items = append(items, domain.OrderItem{
				Base: domain.Base{
					ID:        uuid.New().String(),
					CreatedAt: now,
					UpdatedAt: now,
				},
				OrderID:   orderID,
				ProductID: product.ID,
				Quantity:  line.Quantity,
				Price:     product.Price,
			})
		}

		subtotal = subtotal.Round(2)
		tax := subtotal.Mul(s.pricing.TaxRate).Round(2)
		shipping := s.pricing.ShippingFee.Round(2)
		total := subtotal.Add(tax).Add(shipping)

		orderNumber, err := s.generateOrderNumber(ctx, repos.Orders)
		if err != nil {
			return err
		}

		order = &domain.Order{
			Base: domain.Base{
				ID:        orderID,
				CreatedAt: now,
				UpdatedAt: now,
			},
			OrderNumber:       orderNumber,
			UserID:            userID,
			Status:            domain.OrderStatusPending,
			Subtotal:          subtotal,
			Tax:               tax,
			Shipping:          shipping,
			Total:             total,
			OrderDate:         now,
			ShippingAddressID: input.ShippingAddressID,
			BillingAddressID:  input.BillingAddressID,
			Items:             items,
		}

		if err := repos.Orders.Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		if err := repos.Carts.ClearItems(ctx, cart.ID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("order_number", order.OrderNumber),
		slog.String("user_id", userID),
		slog.String("total", order.Total.StringFixed(2)),
	)

	return order, nil
}

// GetOrder retrieves an order. Buyers only see their own orders.
func (s *OrderService) GetOrder(ctx context.Context, actor *domain.User, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	if order.UserID != actor.ID && !actor.IsAdmin() {
		return nil, apperrors.Forbidden("order belongs to another user")
	}

	return order, nil
}

// TrackOrder retrieves an order by its public order number. Buyers only
// track their own orders.
func (s *OrderService) TrackOrder(ctx context.Context, actor *domain.User, orderNumber string) (*domain.Order, error) {
	order, err := s.orders.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("get order by number: %w", err)
	}

	if order.UserID != actor.ID && !actor.IsAdmin() {
		return nil, apperrors.Forbidden("order belongs to another user")
	}

	return order, nil
}

// ListOrders returns a page of the user's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID string, status *string, params pagination.Params) (pagination.Result[domain.Order], error) {
	filter := repository.OrderFilter{UserID: &userID, Status: status}
	orders, total, err := s.orders.List(ctx, filter, params)
	if err != nil {
		return pagination.Result[domain.Order]{}, fmt.Errorf("list orders: %w", err)
	}
	return pagination.NewResult(orders, total, params), nil
}

// ListAllOrders returns a page of all orders. Admin only; the handler
// enforces that.
func (s *OrderService) ListAllOrders(ctx context.Context, filter repository.OrderFilter, params pagination.Params) (pagination.Result[domain.Order], error) {
	orders, total, err := s.orders.List(ctx, filter, params)
	if err != nil {
		return pagination.Result[domain.Order]{}, fmt.Errorf("list all orders: %w", err)
	}
	return pagination.NewResult(orders, total, params), nil
}

// UpdateOrderStatus advances an order through the fulfillment state
// machine. Invalid transitions are rejected; cancellation goes through
// CancelOrder so stock is restored.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID, status string) (*domain.Order, error) {
	if !domain.IsValidOrderStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid order status %q", status))
	}
	if status == domain.OrderStatusCancelled {
		return nil, apperrors.InvalidInput("use the cancel operation to cancel an order")
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order for status update: %w", err)
	}

	if !order.CanTransitionTo(status) {
		return nil, apperrors.Conflict(fmt.Sprintf("cannot transition order from %s to %s", order.Status, status))
	}

	if status == domain.OrderStatusDelivered {
		deliveredAt := time.Now().UTC()
		if err := s.orders.SetDelivered(ctx, orderID, deliveredAt); err != nil {
			return nil, fmt.Errorf("mark order delivered: %w", err)
		}
		order.DeliveryDate = &deliveredAt
	} else {
		if err := s.orders.UpdateStatus(ctx, orderID, status); err != nil {
			return nil, fmt.Errorf("update order status: %w", err)
		}
	}
	order.Status = status

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", orderID),
		slog.String("status", status),
	)

	return order, nil
}

// CancelOrder cancels an order and restores the reserved stock. Only
// PENDING and PAID orders can be cancelled; the owner or an admin may
// cancel. The payment, if completed, stays COMPLETED and is settled
// through the refund flow.
func (s *OrderService) CancelOrder(ctx context.Context, actor *domain.User, orderID string) (*domain.Order, error) {
	var order *domain.Order
	err := database.WithSerializableTransaction(ctx, s.db, func(tx pgx.Tx) error {
		repos := s.txRepos(tx)

		var err error
		order, err = repos.Orders.GetByID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("get order for cancel: %w", err)
		}

		if order.UserID != actor.ID && !actor.IsAdmin() {
			return apperrors.Forbidden("order belongs to another user")
		}
		if !order.CanCancel() {
			return apperrors.Conflict(fmt.Sprintf("cannot cancel order in status %s", order.Status))
		}

		for _, item := range order.Items {
			if err := repos.Products.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
				return fmt.Errorf("restore stock: %w", err)
			}
		}

		if err := repos.Orders.UpdateStatus(ctx, orderID, domain.OrderStatusCancelled); err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		order.Status = domain.OrderStatusCancelled

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "order cancelled",
		slog.String("order_id", orderID),
		slog.String("actor_id", actor.ID),
	)

	return order, nil
}

// SetTracking attaches a shipment tracking number to an order.
func (s *OrderService) SetTracking(ctx context.Context, orderID, trackingNumber string) (*domain.Order, error) {
	if trackingNumber == "" {
		return nil, apperrors.InvalidInput("tracking number is required")
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order for tracking: %w", err)
	}

	if err := s.orders.SetTracking(ctx, orderID, trackingNumber); err != nil {
		return nil, fmt.Errorf("set tracking number: %w", err)
	}
	order.TrackingNumber = trackingNumber

	return order, nil
}

// generateOrderNumber produces a fresh 10-character uppercase alphanumeric
// order number, re-rolling on the off chance of a collision.
func (s *OrderService) generateOrderNumber(ctx context.Context, orders repository.OrderRepository) (string, error) {
	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		number, err := randomToken(orderNumberLength)
		if err != nil {
			return "", fmt.Errorf("generate order number: %w", err)
		}

		taken, err := orders.ExistsByOrderNumber(ctx, number)
		if err != nil {
			return "", fmt.Errorf("check order number: %w", err)
		}
		if !taken {
			return number, nil
		}
	}
	return "", fmt.Errorf("generate order number: exhausted %d attempts", maxOrderNumberAttempts)
}

// randomToken returns n crypto-random characters from the uppercase
// alphanumeric charset. Bytes outside the largest multiple of the charset
// size are rejected so every character is equally likely.
func randomToken(n int) (string, error) {
	limit := byte(256 - 256%len(orderNumberCharset))
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, orderNumberCharset[int(b)%len(orderNumberCharset)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
