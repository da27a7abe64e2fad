package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/Felix251/marketplace/internal/domain"
	"github.com/Felix251/marketplace/internal/repository"
	"github.com/Felix251/marketplace/pkg/database"
	apperrors "github.com/Felix251/marketplace/pkg/errors"
	"github.com/Felix251/marketplace/pkg/pagination"
)

// PaymentRepository implements repository.PaymentRepository using PostgreSQL.
type PaymentRepository struct {
	db database.DBTX
}

// NewPaymentRepository creates a new PostgreSQL-backed payment repository.
func NewPaymentRepository(db database.DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, order_id, transaction_id, method, status, amount, payment_date, provider_data, created_at, updated_at`

// Create inserts a new payment into the database.
func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	query := `
		INSERT INTO payments (id, order_id, transaction_id, method, status, amount, payment_date, provider_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.OrderID,
		p.TransactionID,
		p.Method,
		p.Status,
		p.Amount,
		p.PaymentDate,
		p.ProviderData,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("payment", "order", p.OrderID)
		}
		return fmt.Errorf("insert payment: %w", err)
	}

	return nil
}

// GetByID retrieves a payment by its ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return r.scanPayment(ctx, query, id)
}

// GetByOrderID retrieves the payment of an order.
func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1`
	return r.scanPayment(ctx, query, orderID)
}

// GetByTransactionID retrieves a payment by its transaction identifier.
func (r *PaymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_id = $1`
	return r.scanPayment(ctx, query, transactionID)
}

// List returns a page of payments matching the filter with the total count.
func (r *PaymentRepository) List(ctx context.Context, filter repository.PaymentFilter, params pagination.Params) ([]domain.Payment, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}
	if filter.Method != nil {
		conditions = append(conditions, fmt.Sprintf("method = $%d", argIndex))
		args = append(args, *filter.Method)
		argIndex++
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIndex))
		args = append(args, *filter.From)
		argIndex++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIndex))
		args = append(args, *filter.To)
		argIndex++
	}
	if filter.MinAmount != nil {
		conditions = append(conditions, fmt.Sprintf("amount > $%d", argIndex))
		args = append(args, *filter.MinAmount)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT `+paymentColumns+`,
			   count(*) OVER() AS total_count
		FROM payments
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1,
	)

	args = append(args, params.Size, params.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var totalCount int
	payments := make([]domain.Payment, 0)

	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(
			&p.ID,
			&p.OrderID,
			&p.TransactionID,
			&p.Method,
			&p.Status,
			&p.Amount,
			&p.PaymentDate,
			&p.ProviderData,
			&p.CreatedAt,
			&p.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate payment rows: %w", err)
	}

	return payments, totalCount, nil
}

// MethodStats aggregates payment count and amount per method, optionally
// bounded to payments created inside [from, to].
func (r *PaymentRepository) MethodStats(ctx context.Context, from, to *time.Time) ([]repository.PaymentMethodStats, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if from != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIndex))
		args = append(args, *from)
		argIndex++
	}
	if to != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIndex))
		args = append(args, *to)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT method, count(*) AS payment_count, COALESCE(sum(amount), 0) AS total
		FROM payments
		%s
		GROUP BY method
		ORDER BY total DESC, method`, whereClause)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query payment method stats: %w", err)
	}
	defer rows.Close()

	stats := make([]repository.PaymentMethodStats, 0)
	for rows.Next() {
		var s repository.PaymentMethodStats
		if err := rows.Scan(&s.Method, &s.Count, &s.Total); err != nil {
			return nil, fmt.Errorf("scan payment method stats: %w", err)
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment method stats: %w", err)
	}

	return stats, nil
}

// CountFailedSince counts failed payments created at or after the cutoff.
func (r *PaymentRepository) CountFailedSince(ctx context.Context, cutoff time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM payments WHERE status = $1 AND created_at >= $2`,
		domain.PaymentStatusFailed, cutoff,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count failed payments: %w", err)
	}
	return count, nil
}

// SumCompletedSince sums completed payment amounts created at or after
// the cutoff.
func (r *PaymentRepository) SumCompletedSince(ctx context.Context, cutoff time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(sum(amount), 0) FROM payments WHERE status = $1 AND created_at >= $2`,
		domain.PaymentStatusCompleted, cutoff,
	).Scan(&total)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("sum completed payments: %w", err)
	}
	return total, nil
}

// UpdateStatus changes the payment status, payment date and provider data.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id, status string, paymentDate *time.Time, providerData string) error {
	query := `
		UPDATE payments
		SET status = $1, payment_date = $2, provider_data = $3, updated_at = $4
		WHERE id = $5`

	ct, err := r.db.Exec(ctx, query, status, paymentDate, providerData, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("payment", id)
	}

	return nil
}

func (r *PaymentRepository) scanPayment(ctx context.Context, query string, args ...any) (*domain.Payment, error) {
	var p domain.Payment

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&p.ID,
		&p.OrderID,
		&p.TransactionID,
		&p.Method,
		&p.Status,
		&p.Amount,
		&p.PaymentDate,
		&p.ProviderData,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}

	return &p, nil
}
