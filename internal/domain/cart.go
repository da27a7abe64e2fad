package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is a user's active shopping cart. At most one active cart exists
// per user; a fresh one is created lazily after checkout clears it.
type Cart struct {
	Base
	UserID string     `json:"user_id"`
	Active bool       `json:"active"`
	Items  []CartItem `json:"items,omitempty"`
}

// CartItem is one product line in a cart. Per (cart, product) there is at
// most one item; adding the same product again increments the quantity.
type CartItem struct {
	Base
	CartID    string `json:"cart_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CartItemDetail is a cart item joined with the current product data,
// priced at the product's live price (prices freeze only at checkout).
type CartItemDetail struct {
	CartItem
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// AbandonedCartWindow is how long an active, non-empty cart may sit
// untouched before it counts as abandoned.
const AbandonedCartWindow = 7 * 24 * time.Hour
