// Package search provides hybrid product search: PostgreSQL remains the
// source of truth while Elasticsearch serves keyword queries. Writes index
// synchronously; failures land on a repair queue that retries in the
// background.
package search

import (
	"time"

	"github.com/Felix251/marketplace/internal/domain"
)

// ProductDocument is the denormalized product shape stored in the index.
type ProductDocument struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         float64   `json:"price"`
	Quantity      int       `json:"quantity"`
	Featured      bool      `json:"featured"`
	Active        bool      `json:"active"`
	StoreID       string    `json:"store_id"`
	StoreName     string    `json:"store_name"`
	CategoryIDs   []string  `json:"category_ids"`
	CategoryNames []string  `json:"category_names"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DocumentFromProduct flattens a product with its store and category names
// into an index document.
func DocumentFromProduct(p *domain.Product, storeName string, categoryNames []string) *ProductDocument {
	return &ProductDocument{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price.InexactFloat64(),
		Quantity:      p.Quantity,
		Featured:      p.Featured,
		Active:        p.Active,
		StoreID:       p.StoreID,
		StoreName:     storeName,
		CategoryIDs:   p.CategoryIDs,
		CategoryNames: categoryNames,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// Query is a hybrid search request. Advanced widens the match to
// description and category names with per-field boosts.
type Query struct {
	Keyword    string
	CategoryID *string
	StoreID    *string
	MinPrice   *float64
	MaxPrice   *float64
	Advanced   bool
	SortBy     string
	Page       int
	Size       int
}

// Sort options for search results.
const (
	SortRelevance = "relevance"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNewest    = "newest"
)

// Result is a page of search hits.
type Result struct {
	Products []ProductDocument `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Size     int               `json:"size"`
	TookMs   int64             `json:"took_ms"`
}

// Suggestion is one autocomplete entry: the product name plus a short
// description snippet.
type Suggestion struct {
	Name    string `json:"name"`
	Snippet string `json:"snippet,omitempty"`
}
