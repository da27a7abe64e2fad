// Package payment holds the payment provider adapters. Providers simulate
// the charge and refund calls of their gateways; the service layer owns
// the payment records and the order status coupling.
package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// ChargeRequest is one charge attempt against a provider.
type ChargeRequest struct {
	OrderID       string
	OrderNumber   string
	TransactionID string
	Amount        decimal.Decimal
	Currency      string
}

// RefundRequest is one refund of a previously completed charge.
type RefundRequest struct {
	TransactionID string
	Amount        decimal.Decimal
	ProviderData  string
}

// Result is the provider's answer to a charge or refund. Succeeded false
// is a declined transaction, not a transport error; transport errors come
// back as the error return.
type Result struct {
	Succeeded    bool
	ProviderData string
}

// Provider is a payment gateway adapter.
type Provider interface {
	// Method returns the payment method constant this provider handles.
	Method() string

	// Charge attempts to collect the amount.
	Charge(ctx context.Context, req ChargeRequest) (*Result, error)

	// Refund returns a completed charge to the payer.
	Refund(ctx context.Context, req RefundRequest) (*Result, error)
}
