package domain

import (
	"github.com/shopspring/decimal"
)

// Product belongs to one store and zero or more categories.
// Price carries two decimal places; Quantity is the available stock.
type Product struct {
	Base
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Images      []string        `json:"images"`
	Featured    bool            `json:"featured"`
	Active      bool            `json:"active"`
	StoreID     string          `json:"store_id"`
	CategoryIDs []string        `json:"category_ids,omitempty"`
}

// IsAvailable reports whether the product can satisfy the requested quantity.
func (p *Product) IsAvailable(requested int) bool {
	return p.Active && p.Quantity >= requested
}
