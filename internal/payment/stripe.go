package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Felix251/marketplace/internal/domain"
	apperrors "github.com/Felix251/marketplace/pkg/errors"
)

// StripeProvider simulates the Stripe gateway. It validates its
// configuration and produces provider data shaped like a charge object;
// no network call is made.
type StripeProvider struct {
	apiKey string
	logger *slog.Logger
}

// NewStripeProvider creates a Stripe adapter.
func NewStripeProvider(apiKey string, logger *slog.Logger) *StripeProvider {
	return &StripeProvider{apiKey: apiKey, logger: logger}
}

// Method implements Provider.
func (p *StripeProvider) Method() string { return domain.PaymentMethodStripe }

// Charge implements Provider.
func (p *StripeProvider) Charge(ctx context.Context, req ChargeRequest) (*Result, error) {
	if p.apiKey == "" {
		return nil, apperrors.Conflict("stripe is not configured")
	}
	if !req.Amount.IsPositive() {
		return &Result{Succeeded: false, ProviderData: `{"error":"amount_too_small"}`}, nil
	}

	data, err := json.Marshal(map[string]any{
		"object":      "charge",
		"id":          "ch_" + req.TransactionID,
		"amount":      req.Amount.StringFixed(2),
		"currency":    req.Currency,
		"description": fmt.Sprintf("order %s", req.OrderNumber),
		"created":     time.Now().UTC().Unix(),
		"status":      "succeeded",
	})
	if err != nil {
		return nil, fmt.Errorf("encode stripe charge: %w", err)
	}

	p.logger.InfoContext(ctx, "stripe charge simulated",
		slog.String("transaction_id", req.TransactionID),
		slog.String("amount", req.Amount.StringFixed(2)),
	)

	return &Result{Succeeded: true, ProviderData: string(data)}, nil
}

// Refund implements Provider.
func (p *StripeProvider) Refund(ctx context.Context, req RefundRequest) (*Result, error) {
	if p.apiKey == "" {
		return nil, apperrors.Conflict("stripe is not configured")
	}

	data, err := json.Marshal(map[string]any{
		"object":  "refund",
		"id":      "re_" + req.TransactionID,
		"amount":  req.Amount.StringFixed(2),
		"created": time.Now().UTC().Unix(),
		"status":  "succeeded",
	})
	if err != nil {
		return nil, fmt.Errorf("encode stripe refund: %w", err)
	}

	p.logger.InfoContext(ctx, "stripe refund simulated",
		slog.String("transaction_id", req.TransactionID),
	)

	return &Result{Succeeded: true, ProviderData: string(data)}, nil
}
