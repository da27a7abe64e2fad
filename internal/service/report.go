package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Felix251/marketplace/internal/domain"
	"github.com/Felix251/marketplace/internal/repository"
)

// ReportService implements the admin reporting queries.
type ReportService struct {
	orders     repository.OrderRepository
	payments   repository.PaymentRepository
	carts      repository.CartRepository
	categories repository.CategoryRepository
	logger     *slog.Logger
}

// NewReportService creates a new report service.
func NewReportService(orders repository.OrderRepository, payments repository.PaymentRepository, carts repository.CartRepository, categories repository.CategoryRepository, logger *slog.Logger) *ReportService {
	return &ReportService{
		orders:     orders,
		payments:   payments,
		carts:      carts,
		categories: categories,
		logger:     logger,
	}
}

// SalesByMonth returns delivered-order revenue per calendar month,
// newest month first.
func (s *ReportService) SalesByMonth(ctx context.Context) ([]repository.MonthlySales, error) {
	sales, err := s.orders.SalesByMonth(ctx)
	if err != nil {
		return nil, fmt.Errorf("sales by month: %w", err)
	}
	return sales, nil
}

// OrderActivity is a snapshot of the order pipeline.
type OrderActivity struct {
	PendingOrders int `json:"pending_orders"`
	OrdersLast24h int `json:"orders_last_24h"`
}

// GetOrderActivity returns the pending-order backlog and the number of
// orders placed in the last 24 hours.
func (s *ReportService) GetOrderActivity(ctx context.Context) (*OrderActivity, error) {
	pending, err := s.orders.CountByStatus(ctx, domain.OrderStatusPending)
	if err != nil {
		return nil, fmt.Errorf("count pending orders: %w", err)
	}

	recent, err := s.orders.CountSince(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("count recent orders: %w", err)
	}

	return &OrderActivity{PendingOrders: pending, OrdersLast24h: recent}, nil
}

// OrdersByStore returns the number of orders containing each store's
// products, optionally bounded to orders placed inside [from, to].
func (s *ReportService) OrdersByStore(ctx context.Context, from, to *time.Time) ([]repository.StoreOrderCount, error) {
	counts, err := s.orders.CountByStore(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("orders by store: %w", err)
	}
	return counts, nil
}

// PaymentMethodBreakdown returns payment count and volume per method,
// optionally bounded to payments created inside [from, to].
func (s *ReportService) PaymentMethodBreakdown(ctx context.Context, from, to *time.Time) ([]repository.PaymentMethodStats, error) {
	stats, err := s.payments.MethodStats(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("payment method breakdown: %w", err)
	}
	return stats, nil
}

// PaymentActivity is a snapshot of recent payment traffic.
type PaymentActivity struct {
	FailedLast24h    int             `json:"failed_last_24h"`
	CompletedLast30d decimal.Decimal `json:"completed_last_30_days"`
}

// GetPaymentActivity returns the failed-payment count over the last 24
// hours and the completed payment volume over the last 30 days.
func (s *ReportService) GetPaymentActivity(ctx context.Context) (*PaymentActivity, error) {
	now := time.Now().UTC()

	failed, err := s.payments.CountFailedSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("count failed payments: %w", err)
	}

	completed, err := s.payments.SumCompletedSince(ctx, now.AddDate(0, 0, -30))
	if err != nil {
		return nil, fmt.Errorf("sum completed payments: %w", err)
	}

	return &PaymentActivity{FailedLast24h: failed, CompletedLast30d: completed}, nil
}

// CountAbandonedCarts counts active, non-empty carts untouched for the
// abandonment window.
func (s *ReportService) CountAbandonedCarts(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-domain.AbandonedCartWindow)
	count, err := s.carts.CountAbandoned(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("count abandoned carts: %w", err)
	}
	return count, nil
}

// TopCategories returns the categories with the most products.
func (s *ReportService) TopCategories(ctx context.Context, limit int) ([]domain.CategoryProductCount, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	counts, err := s.categories.TopByProductCount(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("top categories: %w", err)
	}
	return counts, nil
}
