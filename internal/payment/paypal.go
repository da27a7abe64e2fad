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

// PayPalProvider simulates the PayPal gateway. It validates its
// configuration and produces provider data shaped like a capture object;
// no network call is made.
type PayPalProvider struct {
	clientID     string
	clientSecret string
	logger       *slog.Logger
}

// NewPayPalProvider creates a PayPal adapter.
func NewPayPalProvider(clientID, clientSecret string, logger *slog.Logger) *PayPalProvider {
	return &PayPalProvider{clientID: clientID, clientSecret: clientSecret, logger: logger}
}

// Method implements Provider.
func (p *PayPalProvider) Method() string { return domain.PaymentMethodPayPal }

// Charge implements Provider.
func (p *PayPalProvider) Charge(ctx context.Context, req ChargeRequest) (*Result, error) {
	if p.clientID == "" || p.clientSecret == "" {
		return nil, apperrors.Conflict("paypal is not configured")
	}
	if !req.Amount.IsPositive() {
		return &Result{Succeeded: false, ProviderData: `{"name":"UNPROCESSABLE_ENTITY"}`}, nil
	}

	data, err := json.Marshal(map[string]any{
		"id":     "CAP-" + req.TransactionID,
		"status": "COMPLETED",
		"amount": map[string]string{
			"value":         req.Amount.StringFixed(2),
			"currency_code": req.Currency,
		},
		"invoice_id":  req.OrderNumber,
		"create_time": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("encode paypal capture: %w", err)
	}

	p.logger.InfoContext(ctx, "paypal charge simulated",
		slog.String("transaction_id", req.TransactionID),
		slog.String("amount", req.Amount.StringFixed(2)),
	)

	return &Result{Succeeded: true, ProviderData: string(data)}, nil
}

// Refund implements Provider.
func (p *PayPalProvider) Refund(ctx context.Context, req RefundRequest) (*Result, error) {
	if p.clientID == "" || p.clientSecret == "" {
		return nil, apperrors.Conflict("paypal is not configured")
	}

	data, err := json.Marshal(map[string]any{
		"id":     "REF-" + req.TransactionID,
		"status": "COMPLETED",
		"amount": map[string]string{
			"value": req.Amount.StringFixed(2),
		},
		"create_time": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("encode paypal refund: %w", err)
	}

	p.logger.InfoContext(ctx, "paypal refund simulated",
		slog.String("transaction_id", req.TransactionID),
	)

	return &Result{Succeeded: true, ProviderData: string(data)}, nil
}
