package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Felix251/marketplace/internal/domain"
	"github.com/Felix251/marketplace/internal/payment"
	"github.com/Felix251/marketplace/internal/repository"
	apperrors "github.com/Felix251/marketplace/pkg/errors"
	"github.com/Felix251/marketplace/pkg/pagination"
)

const (
	transactionIDPrefix = "TXN-"
	transactionIDLength = 16

	// paymentCurrency is the only currency the marketplace settles in.
	paymentCurrency = "USD"
)

// PaymentService implements the business logic for payments. Payment and
// order status stay coupled: a completed charge marks the order PAID, a
// refund marks it REFUNDED, and a failed charge leaves it PENDING so the
// buyer can retry.
type PaymentService struct {
	payments  repository.PaymentRepository
	orders    repository.OrderRepository
	providers map[string]payment.Provider
	logger    *slog.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(payments repository.PaymentRepository, orders repository.OrderRepository, providers []payment.Provider, logger *slog.Logger) *PaymentService {
	byMethod := make(map[string]payment.Provider, len(providers))
	for _, p := range providers {
		byMethod[p.Method()] = p
	}
	return &PaymentService{
		payments:  payments,
		orders:    orders,
		providers: byMethod,
		logger:    logger,
	}
}

// ProcessPayment charges a PENDING order through the chosen provider.
// Each order has at most one payment record; a failed charge keeps the
// record in FAILED and the order in PENDING for a later retry via a new
// order, matching the one-payment-per-order constraint.
func (s *PaymentService) ProcessPayment(ctx context.Context, actor *domain.User, orderID, method string) (*domain.Payment, error) {
	if !domain.IsValidPaymentMethod(method) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid payment method %q", method))
	}

	provider, ok := s.providers[method]
	if !ok {
		return nil, apperrors.Conflict(fmt.Sprintf("payment method %s is not available", method))
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order for payment: %w", err)
	}
	if order.UserID != actor.ID && !actor.IsAdmin() {
		return nil, apperrors.Forbidden("order belongs to another user")
	}
	if order.Status != domain.OrderStatusPending {
		return nil, apperrors.Conflict(fmt.Sprintf("order in status %s cannot be paid", order.Status))
	}

	token, err := randomToken(transactionIDLength)
	if err != nil {
		return nil, fmt.Errorf("generate transaction id: %w", err)
	}
	transactionID := transactionIDPrefix + token

	now := time.Now().UTC()
	pay := &domain.Payment{
		Base: domain.Base{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		OrderID:       orderID,
		TransactionID: transactionID,
		Method:        method,
		Status:        domain.PaymentStatusPending,
		Amount:        order.Total,
	}
	if err := s.payments.Create(ctx, pay); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, apperrors.Conflict("order already has a payment")
		}
		return nil, fmt.Errorf("create payment: %w", err)
	}

	result, err := provider.Charge(ctx, payment.ChargeRequest{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		TransactionID: transactionID,
		Amount:        order.Total,
		Currency:      paymentCurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("charge payment: %w", err)
	}

	if !result.Succeeded {
		if err := s.payments.UpdateStatus(ctx, pay.ID, domain.PaymentStatusFailed, nil, result.ProviderData); err != nil {
			return nil, fmt.Errorf("record failed payment: %w", err)
		}
		pay.Status = domain.PaymentStatusFailed
		pay.ProviderData = result.ProviderData

		s.logger.WarnContext(ctx, "payment declined",
			slog.String("order_id", orderID),
			slog.String("transaction_id", transactionID),
			slog.String("method", method),
		)

		return pay, nil
	}

	paidAt := time.Now().UTC()
	if err := s.payments.UpdateStatus(ctx, pay.ID, domain.PaymentStatusCompleted, &paidAt, result.ProviderData); err != nil {
		return nil, fmt.Errorf("complete payment: %w", err)
	}
	pay.Status = domain.PaymentStatusCompleted
	pay.PaymentDate = &paidAt
	pay.ProviderData = result.ProviderData

	if err := s.orders.UpdateStatus(ctx, orderID, domain.OrderStatusPaid); err != nil {
		return nil, fmt.Errorf("mark order paid: %w", err)
	}

	s.logger.InfoContext(ctx, "payment completed",
		slog.String("order_id", orderID),
		slog.String("transaction_id", transactionID),
		slog.String("method", method),
		slog.String("amount", pay.Amount.StringFixed(2)),
	)

	return pay, nil
}

// GetPayment retrieves the payment of an order. Buyers only see their own.
func (s *PaymentService) GetPayment(ctx context.Context, actor *domain.User, orderID string) (*domain.Payment, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order for payment lookup: %w", err)
	}
	if order.UserID != actor.ID && !actor.IsAdmin() {
		return nil, apperrors.Forbidden("order belongs to another user")
	}

	pay, err := s.payments.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return pay, nil
}

// GetPaymentByTransactionID retrieves a payment by its transaction
// identifier. Admin only; the handler enforces that.
func (s *PaymentService) GetPaymentByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error) {
	pay, err := s.payments.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("get payment by transaction id: %w", err)
	}
	return pay, nil
}

// ListPayments returns a filtered page of payments, newest first. Admin
// only; the handler enforces that.
func (s *PaymentService) ListPayments(ctx context.Context, filter repository.PaymentFilter, params pagination.Params) (pagination.Result[domain.Payment], error) {
	payments, total, err := s.payments.List(ctx, filter, params)
	if err != nil {
		return pagination.Result[domain.Payment]{}, fmt.Errorf("list payments: %w", err)
	}
	return pagination.NewResult(payments, total, params), nil
}

// RefundPayment returns a completed payment and moves the order to
// REFUNDED. Only COMPLETED payments can be refunded, and only on orders
// that were not cancelled.
func (s *PaymentService) RefundPayment(ctx context.Context, actor *domain.User, orderID string) (*domain.Payment, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order for refund: %w", err)
	}
	if order.UserID != actor.ID && !actor.IsAdmin() {
		return nil, apperrors.Forbidden("order belongs to another user")
	}
	if !order.CanRefund() {
		return nil, apperrors.Conflict(fmt.Sprintf("order in status %s cannot be refunded", order.Status))
	}

	pay, err := s.payments.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get payment for refund: %w", err)
	}
	if pay.Status != domain.PaymentStatusCompleted {
		return nil, apperrors.Conflict(fmt.Sprintf("payment in status %s cannot be refunded", pay.Status))
	}

	provider, ok := s.providers[pay.Method]
	if !ok {
		return nil, apperrors.Conflict(fmt.Sprintf("payment method %s is not available", pay.Method))
	}

	result, err := provider.Refund(ctx, payment.RefundRequest{
		TransactionID: pay.TransactionID,
		Amount:        pay.Amount,
		ProviderData:  pay.ProviderData,
	})
	if err != nil {
		return nil, fmt.Errorf("refund payment: %w", err)
	}
	if !result.Succeeded {
		return nil, apperrors.Conflict("provider declined the refund")
	}

	if err := s.payments.UpdateStatus(ctx, pay.ID, domain.PaymentStatusRefunded, pay.PaymentDate, result.ProviderData); err != nil {
		return nil, fmt.Errorf("record refund: %w", err)
	}
	pay.Status = domain.PaymentStatusRefunded
	pay.ProviderData = result.ProviderData

	if err := s.orders.UpdateStatus(ctx, orderID, domain.OrderStatusRefunded); err != nil {
		return nil, fmt.Errorf("mark order refunded: %w", err)
	}

	s.logger.InfoContext(ctx, "payment refunded",
		slog.String("order_id", orderID),
		slog.String("transaction_id", pay.TransactionID),
	)

	return pay, nil
}
