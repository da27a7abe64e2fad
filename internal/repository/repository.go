// Package repository defines the persistence contracts for the marketplace.
// Implementations live in subpackages (postgres).
package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Felix251/marketplace/internal/domain"
	"github.com/Felix251/marketplace/pkg/pagination"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user. Fails with ErrAlreadyExists on a duplicate email.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by email, matched case-insensitively.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// ExistsByEmail reports whether a user with the given email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// List returns a page of users with the total count.
	List(ctx context.Context, params pagination.Params) ([]domain.User, int, error)

	// Update modifies an existing user.
	Update(ctx context.Context, user *domain.User) error

	// Delete removes a user by their identifier.
	Delete(ctx context.Context, id string) error
}

// AddressRepository defines the interface for address persistence operations.
type AddressRepository interface {
	// Create inserts a new address.
	Create(ctx context.Context, address *domain.Address) error

	// GetByID retrieves an address by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Address, error)

	// ListByUserID returns all addresses for the given user, default first.
	ListByUserID(ctx context.Context, userID string) ([]domain.Address, error)

	// Update modifies an existing address.
	Update(ctx context.Context, address *domain.Address) error

	// Delete removes an address by its identifier.
	Delete(ctx context.Context, id string) error

	// SetDefault marks the specified address as the user's default,
	// unsetting any previous default.
	SetDefault(ctx context.Context, userID, addressID string) error

	// UnsetDefaults clears the default flag on all of the user's addresses.
	UnsetDefaults(ctx context.Context, userID string) error
}

// StoreRepository defines the interface for store persistence operations.
type StoreRepository interface {
	// Create inserts a new store. Fails with ErrAlreadyExists when the owner
	// already has one.
	Create(ctx context.Context, store *domain.Store) error

	// GetByID retrieves a store by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Store, error)

	// GetByOwnerID retrieves the store owned by the given user.
	GetByOwnerID(ctx context.Context, ownerID string) (*domain.Store, error)

	// List returns a page of stores with the total count.
	List(ctx context.Context, params pagination.Params) ([]domain.Store, int, error)

	// Update modifies an existing store.
	Update(ctx context.Context, store *domain.Store) error

	// Delete removes a store by its identifier.
	Delete(ctx context.Context, id string) error
}

// CategoryRepository defines the interface for category persistence operations.
type CategoryRepository interface {
	// Create inserts a new category. Fails with ErrAlreadyExists on a
	// duplicate name.
	Create(ctx context.Context, category *domain.Category) error

	// GetByID retrieves a category by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Category, error)

	// List returns a page of categories with the total count.
	List(ctx context.Context, params pagination.Params) ([]domain.Category, int, error)

	// ListRoots returns all categories without a parent.
	ListRoots(ctx context.Context) ([]domain.Category, error)

	// ListActive returns every active category ordered by name.
	ListActive(ctx context.Context) ([]domain.Category, error)

	// Search returns categories whose name or description contains the
	// keyword, case-insensitively.
	Search(ctx context.Context, keyword string) ([]domain.Category, error)

	// ListChildren returns the direct children of a category.
	ListChildren(ctx context.Context, parentID string) ([]domain.Category, error)

	// Hierarchy returns the whole taxonomy as a flat list ordered by
	// (depth, name), each node annotated with its depth.
	Hierarchy(ctx context.Context) ([]domain.CategoryNode, error)

	// PathToRoot returns the chain from the given category up to its root,
	// starting with the category itself.
	PathToRoot(ctx context.Context, id string) ([]domain.Category, error)

	// IsDescendant reports whether candidate lies in the subtree rooted at
	// ancestor (the ancestor itself counts).
	IsDescendant(ctx context.Context, ancestorID, candidateID string) (bool, error)

	// TopByProductCount returns the categories with the most linked products.
	TopByProductCount(ctx context.Context, limit int) ([]domain.CategoryProductCount, error)

	// Update modifies an existing category.
	Update(ctx context.Context, category *domain.Category) error

	// ReparentChildren moves all direct children of a category to a new
	// parent (nil promotes them to roots).
	ReparentChildren(ctx context.Context, fromID string, toParentID *string) error

	// Delete removes a category by its identifier.
	Delete(ctx context.Context, id string) error
}

// ProductFilter holds the optional criteria for a product listing.
// Nil fields are not applied.
type ProductFilter struct {
	Name       *string
	CategoryID *string
	StoreID    *string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Featured   *bool
	Active     *bool
	InStock    *bool
}

// ProductSales is a product paired with the number of units it sold.
type ProductSales struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	UnitsSold int             `json:"units_sold"`
}

// ProductRepository defines the interface for product persistence operations.
type ProductRepository interface {
	// Create inserts a new product and its category links.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its unique identifier, category links
	// included.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetByIDs retrieves the products with the given identifiers.
	GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error)

	// List returns a page of products matching the filter with the total count.
	List(ctx context.Context, filter ProductFilter, params pagination.Params) ([]domain.Product, int, error)

	// ListPage returns products ordered by id, starting after the given id.
	// Used to walk the whole catalog in stable batches.
	ListPage(ctx context.Context, afterID string, limit int) ([]domain.Product, error)

	// ListTopSelling returns the products with the most units sold across
	// all orders, best sellers first.
	ListTopSelling(ctx context.Context, limit int) ([]ProductSales, error)

	// LockForUpdate loads the given products with row locks, ordered by id
	// so concurrent checkouts acquire locks in the same order.
	LockForUpdate(ctx context.Context, ids []string) ([]domain.Product, error)

	// AdjustStock changes a product's quantity by delta. Fails with
	// ErrInvalidInput when the result would be negative.
	AdjustStock(ctx context.Context, id string, delta int) error

	// SetCategories replaces the product's category links.
	SetCategories(ctx context.Context, productID string, categoryIDs []string) error

	// Update modifies an existing product.
	Update(ctx context.Context, product *domain.Product) error

	// Delete removes a product by its identifier.
	Delete(ctx context.Context, id string) error
}

// CartRepository defines the interface for cart persistence operations.
type CartRepository interface {
	// Create inserts a new cart.
	Create(ctx context.Context, cart *domain.Cart) error

	// GetActiveByUserID retrieves the user's active cart with its items.
	GetActiveByUserID(ctx context.Context, userID string) (*domain.Cart, error)

	// GetItem retrieves one cart line by cart and product.
	GetItem(ctx context.Context, cartID, productID string) (*domain.CartItem, error)

	// UpsertItem inserts a cart line or adds to the quantity of an existing
	// one for the same product.
	UpsertItem(ctx context.Context, item *domain.CartItem) error

	// UpdateItemQuantity sets the quantity of a cart line.
	UpdateItemQuantity(ctx context.Context, cartID, productID string, quantity int) error

	// RemoveItem deletes a cart line.
	RemoveItem(ctx context.Context, cartID, productID string) error

	// ClearItems deletes all lines of a cart.
	ClearItems(ctx context.Context, cartID string) error

	// ListItemDetails returns the cart's lines joined with current product
	// name and price.
	ListItemDetails(ctx context.Context, cartID string) ([]domain.CartItemDetail, error)

	// Touch bumps the cart's updated_at, used for abandonment tracking.
	Touch(ctx context.Context, cartID string) error

	// CountAbandoned counts active, non-empty carts untouched since the cutoff.
	CountAbandoned(ctx context.Context, cutoff time.Time) (int, error)
}

// WishlistRepository defines the interface for wishlist persistence operations.
type WishlistRepository interface {
	// Create inserts a new wishlist. Fails with ErrAlreadyExists when the
	// user already has one with the same name.
	Create(ctx context.Context, wishlist *domain.Wishlist) error

	// GetByID retrieves a wishlist and its product ids.
	GetByID(ctx context.Context, id string) (*domain.Wishlist, error)

	// ListByUserID returns all wishlists of a user, products included.
	ListByUserID(ctx context.Context, userID string) ([]domain.Wishlist, error)

	// AddProduct links a product to a wishlist; adding an already-present
	// product is a no-op.
	AddProduct(ctx context.Context, wishlistID, productID string) error

	// RemoveProduct unlinks a product from a wishlist; removing an absent
	// product is a no-op.
	RemoveProduct(ctx context.Context, wishlistID, productID string) error

	// Rename changes a wishlist's name.
	Rename(ctx context.Context, id, name string) error

	// Delete removes a wishlist and its product links.
	Delete(ctx context.Context, id string) error
}

// OrderFilter holds the optional criteria for an order listing.
type OrderFilter struct {
	UserID   *string
	Status   *string
	From     *time.Time
	To       *time.Time
	MinTotal *decimal.Decimal
}

// MonthlySales is one month of delivered-order revenue.
type MonthlySales struct {
	Year  int             `json:"year"`
	Month int             `json:"month"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// StoreOrderCount is the number of orders containing at least one product
// of a store.
type StoreOrderCount struct {
	StoreID   string `json:"store_id"`
	StoreName string `json:"store_name"`
	Count     int    `json:"count"`
}

// OrderRepository defines the interface for order persistence operations.
type OrderRepository interface {
	// Create inserts an order and its items.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order and its items.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// GetByOrderNumber retrieves an order by its public order number.
	GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error)

	// ExistsByOrderNumber reports whether an order number is taken.
	ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error)

	// List returns a page of orders matching the filter with the total count.
	List(ctx context.Context, filter OrderFilter, params pagination.Params) ([]domain.Order, int, error)

	// UpdateStatus changes the order status.
	UpdateStatus(ctx context.Context, id, status string) error

	// SetTracking sets the tracking number.
	SetTracking(ctx context.Context, id, trackingNumber string) error

	// SetDelivered marks the order delivered at the given time.
	SetDelivered(ctx context.Context, id string, deliveredAt time.Time) error

	// HasDeliveredProduct reports whether the user has a delivered order
	// containing the product.
	HasDeliveredProduct(ctx context.Context, userID, productID string) (bool, error)

	// CountByStatus counts orders in the given status.
	CountByStatus(ctx context.Context, status string) (int, error)

	// CountSince counts orders placed at or after the cutoff.
	CountSince(ctx context.Context, cutoff time.Time) (int, error)

	// SalesByMonth aggregates delivered orders per calendar month.
	SalesByMonth(ctx context.Context) ([]MonthlySales, error)

	// CountByStore counts orders per store over order items, optionally
	// bounded to orders placed inside [from, to].
	CountByStore(ctx context.Context, from, to *time.Time) ([]StoreOrderCount, error)
}

// PaymentFilter holds the optional criteria for a payment listing.
// Nil fields are not applied.
type PaymentFilter struct {
	Status    *string
	Method    *string
	From      *time.Time
	To        *time.Time
	MinAmount *decimal.Decimal
}

// PaymentMethodStats aggregates payments per method.
type PaymentMethodStats struct {
	Method string          `json:"method"`
	Count  int             `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

// PaymentRepository defines the interface for payment persistence operations.
type PaymentRepository interface {
	// Create inserts a new payment. Fails with ErrAlreadyExists when the
	// order already has one.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// GetByOrderID retrieves the payment of an order.
	GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error)

	// GetByTransactionID retrieves a payment by its transaction identifier.
	GetByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error)

	// List returns a page of payments matching the filter with the total count.
	List(ctx context.Context, filter PaymentFilter, params pagination.Params) ([]domain.Payment, int, error)

	// MethodStats aggregates payment count and amount per method, optionally
	// bounded to payments created inside [from, to].
	MethodStats(ctx context.Context, from, to *time.Time) ([]PaymentMethodStats, error)

	// CountFailedSince counts failed payments created at or after the cutoff.
	CountFailedSince(ctx context.Context, cutoff time.Time) (int, error)

	// SumCompletedSince sums completed payment amounts created at or after
	// the cutoff.
	SumCompletedSince(ctx context.Context, cutoff time.Time) (decimal.Decimal, error)

	// UpdateStatus changes the payment status, payment date and provider data.
	UpdateStatus(ctx context.Context, id, status string, paymentDate *time.Time, providerData string) error
}

// ReviewRepository defines the interface for review persistence operations.
type ReviewRepository interface {
	// Create inserts a new review. Fails with ErrAlreadyExists when the user
	// already reviewed the product.
	Create(ctx context.Context, review *domain.Review) error

	// GetByID retrieves a review by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// GetByUserAndProduct retrieves the user's review of a product.
	GetByUserAndProduct(ctx context.Context, userID, productID string) (*domain.Review, error)

	// ListByProduct returns a page of a product's reviews with the total count.
	ListByProduct(ctx context.Context, productID string, params pagination.Params) ([]domain.Review, int, error)

	// ListByUser returns all reviews written by a user.
	ListByUser(ctx context.Context, userID string) ([]domain.Review, error)

	// Summary returns the average rating and count for a product.
	Summary(ctx context.Context, productID string) (*domain.ReviewSummary, error)

	// Distribution returns the count of reviews per rating value (1..5).
	Distribution(ctx context.Context, productID string) (map[int]int, error)

	// Update modifies an existing review.
	Update(ctx context.Context, review *domain.Review) error

	// Delete removes a review by its identifier.
	Delete(ctx context.Context, id string) error
}
