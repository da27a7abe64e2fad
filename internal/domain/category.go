package domain

// Category is a node in the product taxonomy. Categories form a rooted
// forest through ParentID; the service rejects parent updates that would
// introduce a cycle.
type Category struct {
	Base
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Image       string  `json:"image,omitempty"`
	Active      bool    `json:"active"`
	ParentID    *string `json:"parent_id,omitempty"`
}

// CategoryNode is a category annotated with its depth in the taxonomy,
// as returned by the recursive hierarchy read.
type CategoryNode struct {
	Category
	Depth int `json:"depth"`
}

// CategoryProductCount pairs a category with the number of products linked to it.
type CategoryProductCount struct {
	Category
	ProductCount int `json:"product_count"`
}
