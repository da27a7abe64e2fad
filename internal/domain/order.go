package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order status constants.
const (
	OrderStatusPending    = "PENDING"
	OrderStatusPaid       = "PAID"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusShipped    = "SHIPPED"
	OrderStatusDelivered  = "DELIVERED"
	OrderStatusCancelled  = "CANCELLED"
	OrderStatusRefunded   = "REFUNDED"
)

// Order is a priced, shippable snapshot of a cart. Item prices are frozen
// at checkout; totals satisfy total = subtotal + tax + shipping at scale 2.
type Order struct {
	Base
	OrderNumber       string          `json:"order_number"`
	UserID            string          `json:"user_id"`
	Status            string          `json:"status"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	Tax               decimal.Decimal `json:"tax"`
	Shipping          decimal.Decimal `json:"shipping"`
	Total             decimal.Decimal `json:"total"`
	OrderDate         time.Time       `json:"order_date"`
	TrackingNumber    string          `json:"tracking_number,omitempty"`
	DeliveryDate      *time.Time      `json:"delivery_date,omitempty"`
	ShippingAddressID string          `json:"shipping_address_id"`
	BillingAddressID  string          `json:"billing_address_id"`
	Items             []OrderItem     `json:"items,omitempty"`
}

// OrderItem is one product line in an order. Price is the product price
// captured at checkout; later price changes do not alter the order.
type OrderItem struct {
	Base
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// ValidOrderStatuses returns all valid order statuses.
func ValidOrderStatuses() []string {
	return []string{
		OrderStatusPending,
		OrderStatusPaid,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled,
		OrderStatusRefunded,
	}
}

// IsValidOrderStatus checks if a status string is valid.
func IsValidOrderStatus(status string) bool {
	for _, s := range ValidOrderStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// OrderTransitions defines which status transitions are valid.
// REFUNDED is reachable only through the payment refund flow, which may
// refund delivered orders; direct transitions never target it except from
// DELIVERED via refund.
func OrderTransitions() map[string][]string {
	return map[string][]string{
		OrderStatusPending:    {OrderStatusPaid, OrderStatusCancelled},
		OrderStatusPaid:       {OrderStatusProcessing, OrderStatusCancelled},
		OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
		OrderStatusShipped:    {OrderStatusDelivered},
		OrderStatusDelivered:  {},
		OrderStatusCancelled:  {},
		OrderStatusRefunded:   {},
	}
}

// CanTransitionTo checks if the order can transition to the target status
// through the regular state machine.
func (o *Order) CanTransitionTo(target string) bool {
	allowed, ok := OrderTransitions()[o.Status]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// CanCancel reports whether the order may still be cancelled.
// Cancellation restores stock and is only permitted before fulfillment starts.
func (o *Order) CanCancel() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusPaid
}

// CanRefund reports whether the payment refund flow may move the order to
// REFUNDED. Cancelled orders cannot be refunded; delivered orders can.
func (o *Order) CanRefund() bool {
	return o.Status != OrderStatusCancelled && o.Status != OrderStatusRefunded
}
