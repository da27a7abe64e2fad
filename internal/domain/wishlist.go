package domain

// Wishlist is a named collection of products. Names are unique per user;
// add and remove are idempotent.
type Wishlist struct {
	Base
	UserID     string   `json:"user_id"`
	Name       string   `json:"name"`
	ProductIDs []string `json:"product_ids"`
}
