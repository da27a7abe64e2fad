package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Felix251/marketplace/internal/domain"
	"github.com/Felix251/marketplace/internal/repository"
	"github.com/Felix251/marketplace/pkg/database"
	apperrors "github.com/Felix251/marketplace/pkg/errors"
	"github.com/Felix251/marketplace/pkg/pagination"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	db database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(db database.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, order_number, user_id, status, subtotal, tax, shipping, total, order_date, tracking_number, delivery_date, shipping_address_id, billing_address_id, created_at, updated_at`

// Create inserts an order and its items. Callers run this inside the
// checkout transaction so order and stock writes commit together.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	orderQuery := `
		INSERT INTO orders (id, order_number, user_id, status, subtotal, tax, shipping, total, order_date, tracking_number, delivery_date, shipping_address_id, billing_address_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.db.Exec(ctx, orderQuery,
		o.ID,
		o.OrderNumber,
		o.UserID,
		o.Status,
		o.Subtotal,
		o.Tax,
		o.Shipping,
		o.Total,
		o.OrderDate,
		o.TrackingNumber,
		o.DeliveryDate,
		o.ShippingAddressID,
		o.BillingAddressID,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("order", "order_number", o.OrderNumber)
		}
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, quantity, price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for _, item := range o.Items {
		_, err := r.db.Exec(ctx, itemQuery,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.Quantity,
			item.Price,
			item.CreatedAt,
			item.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return nil
}

// GetByID retrieves an order and its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.scanOrderWithItems(ctx, query, id)
}

// GetByOrderNumber retrieves an order by its public order number.
func (r *OrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`
	return r.scanOrderWithItems(ctx, query, orderNumber)
}

// ExistsByOrderNumber reports whether an order number is taken.
func (r *OrderRepository) ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE order_number = $1)`,
		orderNumber,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check order number exists: %w", err)
	}
	return exists, nil
}

// List returns a page of orders matching the filter with the total count.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter, params pagination.Params) ([]domain.Order, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIndex))
		args = append(args, *filter.UserID)
		argIndex++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("order_date >= $%d", argIndex))
		args = append(args, *filter.From)
		argIndex++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("order_date <= $%d", argIndex))
		args = append(args, *filter.To)
		argIndex++
	}
	if filter.MinTotal != nil {
		conditions = append(conditions, fmt.Sprintf("total > $%d", argIndex))
		args = append(args, *filter.MinTotal)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT `+orderColumns+`,
			   count(*) OVER() AS total_count
		FROM orders
		%s
		ORDER BY order_date DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1,
	)

	args = append(args, params.Size, params.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var totalCount int
	orders := make([]domain.Order, 0)

	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(
			&o.ID,
			&o.OrderNumber,
			&o.UserID,
			&o.Status,
			&o.Subtotal,
			&o.Tax,
			&o.Shipping,
			&o.Total,
			&o.OrderDate,
			&o.TrackingNumber,
			&o.DeliveryDate,
			&o.ShippingAddressID,
			&o.BillingAddressID,
			&o.CreatedAt,
			&o.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	// Batch-load items for all orders in a single query to avoid N+1.
	if len(orders) > 0 {
		orderIDs := make([]string, len(orders))
		for i := range orders {
			orderIDs[i] = orders[i].ID
		}

		itemsByOrderID, err := r.loadItemsByOrderIDs(ctx, orderIDs)
		if err != nil {
			return nil, 0, err
		}

		for i := range orders {
			if items, ok := itemsByOrderID[orders[i].ID]; ok {
				orders[i].Items = items
			} else {
				orders[i].Items = []domain.OrderItem{}
			}
		}
	}

	return orders, totalCount, nil
}

// UpdateStatus changes the order status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, status string) error {
	ct, err := r.db.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", id)
	}

	return nil
}

// SetTracking sets the tracking number.
func (r *OrderRepository) SetTracking(ctx context.Context, id, trackingNumber string) error {
	ct, err := r.db.Exec(ctx,
		`UPDATE orders SET tracking_number = $1, updated_at = $2 WHERE id = $3`,
		trackingNumber, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("set order tracking: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", id)
	}

	return nil
}

// SetDelivered marks the order delivered at the given time.
func (r *OrderRepository) SetDelivered(ctx context.Context, id string, deliveredAt time.Time) error {
	ct, err := r.db.Exec(ctx,
		`UPDATE orders SET status = $1, delivery_date = $2, updated_at = $3 WHERE id = $4`,
		domain.OrderStatusDelivered, deliveredAt, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("set order delivered: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", id)
	}

	return nil
}

// HasDeliveredProduct reports whether the user has a delivered order
// containing the product. Reviews are gated on this.
func (r *OrderRepository) HasDeliveredProduct(ctx context.Context, userID, productID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM orders o
			JOIN order_items oi ON oi.order_id = o.id
			WHERE o.user_id = $1 AND oi.product_id = $2 AND o.status = $3
		)`

	var exists bool
	err := r.db.QueryRow(ctx, query, userID, productID, domain.OrderStatusDelivered).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check delivered product: %w", err)
	}
	return exists, nil
}

// CountByStatus counts orders in the given status.
func (r *OrderRepository) CountByStatus(ctx context.Context, status string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM orders WHERE status = $1`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count orders by status: %w", err)
	}
	return count, nil
}

// CountSince counts orders placed at or after the cutoff.
func (r *OrderRepository) CountSince(ctx context.Context, cutoff time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM orders WHERE order_date >= $1`, cutoff).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count orders since: %w", err)
	}
	return count, nil
}

// SalesByMonth aggregates delivered orders per calendar month, most
// recent first.
func (r *OrderRepository) SalesByMonth(ctx context.Context) ([]repository.MonthlySales, error) {
	query := `
		SELECT EXTRACT(YEAR FROM order_date)::int AS year,
			   EXTRACT(MONTH FROM order_date)::int AS month,
			   count(*) AS order_count,
			   COALESCE(sum(total), 0) AS total
		FROM orders
		WHERE status = $1
		GROUP BY year, month
		ORDER BY year DESC, month DESC`

	rows, err := r.db.Query(ctx, query, domain.OrderStatusDelivered)
	if err != nil {
		return nil, fmt.Errorf("query monthly sales: %w", err)
	}
	defer rows.Close()

	sales := make([]repository.MonthlySales, 0)
	for rows.Next() {
		var s repository.MonthlySales
		if err := rows.Scan(&s.Year, &s.Month, &s.Count, &s.Total); err != nil {
			return nil, fmt.Errorf("scan monthly sales: %w", err)
		}
		sales = append(sales, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monthly sales: %w", err)
	}

	return sales, nil
}

// CountByStore counts distinct orders containing at least one product of
// each store, optionally bounded to orders placed inside [from, to].
func (r *OrderRepository) CountByStore(ctx context.Context, from, to *time.Time) ([]repository.StoreOrderCount, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if from != nil {
		conditions = append(conditions, fmt.Sprintf("o.order_date >= $%d", argIndex))
		args = append(args, *from)
		argIndex++
	}
	if to != nil {
		conditions = append(conditions, fmt.Sprintf("o.order_date <= $%d", argIndex))
		args = append(args, *to)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT s.id, s.name, count(DISTINCT oi.order_id) AS order_count
		FROM stores s
		JOIN products p ON p.store_id = s.id
		JOIN order_items oi ON oi.product_id = p.id
		JOIN orders o ON o.id = oi.order_id
		%s
		GROUP BY s.id, s.name
		ORDER BY order_count DESC, s.name`, whereClause)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders by store: %w", err)
	}
	defer rows.Close()

	counts := make([]repository.StoreOrderCount, 0)
	for rows.Next() {
		var c repository.StoreOrderCount
		if err := rows.Scan(&c.StoreID, &c.StoreName, &c.Count); err != nil {
			return nil, fmt.Errorf("scan store order count: %w", err)
		}
		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate store order counts: %w", err)
	}

	return counts, nil
}

func (r *OrderRepository) scanOrderWithItems(ctx context.Context, query string, args ...any) (*domain.Order, error) {
	var o domain.Order

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.Status,
		&o.Subtotal,
		&o.Tax,
		&o.Shipping,
		&o.Total,
		&o.OrderDate,
		&o.TrackingNumber,
		&o.DeliveryDate,
		&o.ShippingAddressID,
		&o.BillingAddressID,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	itemsByOrderID, err := r.loadItemsByOrderIDs(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	if items, ok := itemsByOrderID[o.ID]; ok {
		o.Items = items
	} else {
		o.Items = []domain.OrderItem{}
	}

	return &o, nil
}

func (r *OrderRepository) loadItemsByOrderIDs(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, quantity, price, created_at, updated_at
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id`

	rows, err := r.db.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	itemsByOrderID := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.Price,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		itemsByOrderID[item.OrderID] = append(itemsByOrderID[item.OrderID], item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order item rows: %w", err)
	}

	return itemsByOrderID, nil
}
