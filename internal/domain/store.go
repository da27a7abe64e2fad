package domain

// Store is a seller's shop. A user owns at most one store.
type Store struct {
	Base
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Logo        string `json:"logo,omitempty"`
	Banner      string `json:"banner,omitempty"`
	Active      bool   `json:"active"`
	OwnerID     string `json:"owner_id"`
}
