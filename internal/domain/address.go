package domain

// Address represents a shipping or billing address owned by a user.
// When a user has at least one address, exactly one is the default.
type Address struct {
	Base
	UserID     string `json:"user_id"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	IsDefault  bool   `json:"is_default"`
}
