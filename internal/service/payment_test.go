package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Felix251/marketplace/internal/domain"
	"github.com/Felix251/marketplace/internal/payment"
	apperrors "github.com/Felix251/marketplace/pkg/errors"
)

var transactionIDPattern = regexp.MustCompile(`^TXN-[A-Z0-9]{16}$`)

type paymentTestEnv struct {
	payments *mockPaymentRepository
	orders   *mockOrderRepository
	stripe   *mockPaymentProvider
	paypal   *mockPaymentProvider
	svc      *PaymentService
}

func newPaymentTestEnv() *paymentTestEnv {
	env := &paymentTestEnv{
		payments: new(mockPaymentRepository),
		orders:   new(mockOrderRepository),
		stripe:   &mockPaymentProvider{method: domain.PaymentMethodStripe},
		paypal:   &mockPaymentProvider{method: domain.PaymentMethodPayPal},
	}
	env.svc = NewPaymentService(env.payments, env.orders, []payment.Provider{env.stripe, env.paypal}, newTestLogger())
	return env
}

func pendingOrder(id, userID string) *domain.Order {
	return &domain.Order{
		Base:        sampleBase(id),
		OrderNumber: "AB12CD34EF",
		UserID:      userID,
		Status:      domain.OrderStatusPending,
		Total:       decimal.RequireFromString("157.52"),
	}
}

func TestProcessPayment_CompletedMarksOrderPaid(t *testing.T) {
	env := newPaymentTestEnv()
	ctx := context.Background()

	env.orders.On("GetByID", ctx, "order-1").Return(pendingOrder("order-1", "user-1"), nil)
	env.payments.On("Create", ctx, mock.AnythingOfType("*domain.Payment")).Return(nil)
	env.stripe.On("Charge", ctx, mock.AnythingOfType("payment.ChargeRequest")).
		Return(&payment.Result{Succeeded: true, ProviderData: `{"status":"succeeded"}`}, nil)
	env.payments.On("UpdateStatus", ctx, mock.AnythingOfType("string"), domain.PaymentStatusCompleted, mock.AnythingOfType("*time.Time"), `{"status":"succeeded"}`).Return(nil)
	env.orders.On("UpdateStatus", ctx, "order-1", domain.OrderStatusPaid).Return(nil)

	pay, err := env.svc.ProcessPayment(ctx, sampleUser("user-1", domain.RoleBuyer), "order-1", domain.PaymentMethodStripe)

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, pay.Status)
	assert.Regexp(t, transactionIDPattern, pay.TransactionID)
	assert.Equal(t, "157.52", pay.Amount.StringFixed(2))
	require.NotNil(t, pay.PaymentDate)

	env.payments.AssertExpectations(t)
	env.orders.AssertExpectations(t)
}

func TestProcessPayment_DeclinedLeavesOrderPending(t *testing.T) {
	env := newPaymentTestEnv()
	ctx := context.Background()

	env.orders.On("GetByID", ctx, "order-1").Return(pendingOrder("order-1", "user-1"), nil)
	env.payments.On("Create", ctx, mock.AnythingOfType("*domain.Payment")).Return(nil)
	env.paypal.On("Charge", ctx, mock.AnythingOfType("payment.ChargeRequest")).
		Return(&payment.Result{Succeeded: false, ProviderData: `{"name":"DECLINED"}`}, nil)
	env.payments.On("UpdateStatus", ctx, mock.AnythingOfType("string"), domain.PaymentStatusFailed, (*time.Time)(nil), `{"name":"DECLINED"}`).Return(nil)

	pay, err := env.svc.ProcessPayment(ctx, sampleUser("user-1", domain.RoleBuyer), "order-1", domain.PaymentMethodPayPal)

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, pay.Status)
	assert.Nil(t, pay.PaymentDate)
	env.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessPayment_NonPendingOrder(t *testing.T) {
	env := newPaymentTestEnv()
	ctx := context.Background()

	order := pendingOrder("order-1", "user-1")
	order.Status = domain.OrderStatusPaid
	env.orders.On("GetByID", ctx, "order-1").Return(order, nil)

	_, err := env.svc.ProcessPayment(ctx, sampleUser("user-1", domain.RoleBuyer), "order-1", domain.PaymentMethodStripe)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	env.payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProcessPayment_ForeignOrder(t *testing.T) {
	env := newPaymentTestEnv()
	ctx := context.Background()

	env.orders.On("GetByID", ctx, "order-1").Return(pendingOrder("order-1", "user-2"), nil)

	_, err := env.svc.ProcessPayment(ctx, sampleUser("user-1", domain.RoleBuyer), "order-1", domain.PaymentMethodStripe)

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestProcessPayment_InvalidMethod(t *testing.T) {
	env := newPaymentTestEnv()
	ctx := context.Background()

	_, err := env.svc.ProcessPayment(ctx, sampleUser("user-1", domain.RoleBuyer), "order-1", "BITCOIN")

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestProcessPayment_DuplicatePayment(t *testing.T) {
	env := newPaymentTestEnv()
	ctx := context.Background()

	env.orders.On("GetByID", ctx, "order-1").Return(pendingOrder("order-1", "user-1"), nil)
	env.payments.On("Create", ctx, mock.AnythingOfType("*domain.Payment")).
		Return(apperrors.AlreadyExists("payment", "order", "order-1"))

	_, err := env.svc.ProcessPayment(ctx, sampleUser("user-1", domain.RoleBuyer), "order-1", domain.PaymentMethodStripe)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	env.stripe.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
}

func TestRefundPayment_CompletedMovesOrderToRefunded(t *testing.T) {
	env := newPaymentTestEnv()
	ctx := context.Background()

	order := pendingOrder("order-1", "user-1")
	order.Status = domain.OrderStatusDelivered
	env.orders.On("GetByID", ctx, "order-1").Return(order, nil)

	paidAt := order.CreatedAt
	pay := &domain.Payment{
		Base:          sampleBase("pay-1"),
		OrderID:       "order-1",
		TransactionID: "TXN-ABCDEFGH12345678",
		Method:        domain.PaymentMethodStripe,
		Status:        domain.PaymentStatusCompleted,
		Amount:        order.Total,
		PaymentDate:   &paidAt,
	}
	env.payments.On("GetByOrderID", ctx, "order-1").Return(pay, nil)
	env.stripe.On("Refund", ctx, mock.AnythingOfType("payment.RefundRequest")).
		Return(&payment.Result{Succeeded: true, ProviderData: `{"status":"refunded"}`}, nil)
	env.payments.On("UpdateStatus", ctx, "pay-1", domain.PaymentStatusRefunded, &paidAt, `{"status":"refunded"}`).Return(nil)
	env.orders.On("UpdateStatus", ctx, "order-1", domain.OrderStatusRefunded).Return(nil)

	refunded, err := env.svc.RefundPayment(ctx, sampleUser("user-1", domain.RoleBuyer), "order-1")

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRefunded, refunded.Status)
	env.orders.AssertExpectations(t)
}

func TestRefundPayment_PendingPaymentRejected(t *testing.T) {
	env := newPaymentTestEnv()
	ctx := context.Background()

	order := pendingOrder("order-1", "user-1")
	env.orders.On("GetByID", ctx, "order-1").Return(order, nil)

	pay := &domain.Payment{
		Base:    sampleBase("pay-1"),
		OrderID: "order-1",
		Method:  domain.PaymentMethodStripe,
		Status:  domain.PaymentStatusPending,
	}
	env.payments.On("GetByOrderID", ctx, "order-1").Return(pay, nil)

	_, err := env.svc.RefundPayment(ctx, sampleUser("user-1", domain.RoleBuyer), "order-1")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	env.stripe.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything)
}

func TestRefundPayment_CancelledOrderRejected(t *testing.T) {
	env := newPaymentTestEnv()
	ctx := context.Background()

	order := pendingOrder("order-1", "user-1")
	order.Status = domain.OrderStatusCancelled
	env.orders.On("GetByID", ctx, "order-1").Return(order, nil)

	_, err := env.svc.RefundPayment(ctx, sampleUser("user-1", domain.RoleBuyer), "order-1")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	env.payments.AssertNotCalled(t, "GetByOrderID", mock.Anything, mock.Anything)
}

func TestGetPayment_ForeignOrder(t *testing.T) {
	env := newPaymentTestEnv()
	ctx := context.Background()

	env.orders.On("GetByID", ctx, "order-1").Return(pendingOrder("order-1", "user-2"), nil)

	_, err := env.svc.GetPayment(ctx, sampleUser("user-1", domain.RoleBuyer), "order-1")

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}
