package service

import (
	"github.com/shopspring/decimal"

	apperrors "github.com/Felix251/marketplace/pkg/errors"
)

// parsePrice parses a decimal money string. Prices are positive and carry
// at most two decimal places.
func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, apperrors.InvalidInput("invalid price")
	}
	if !price.IsPositive() {
		return decimal.Decimal{}, apperrors.InvalidInput("price must be positive")
	}
	if price.Exponent() < -2 {
		return decimal.Decimal{}, apperrors.InvalidInput("price cannot have more than two decimal places")
	}
	return price, nil
}
