package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Felix251/marketplace/internal/domain"
	apperrors "github.com/Felix251/marketplace/pkg/errors"
)

func newReviewTestFixture(t *testing.T) (*ReviewRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	repo := NewReviewRepository(mock)
	return repo, mock
}

func sampleReview() *domain.Review {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Review{
		Base: domain.Base{
			ID:        "r-0001",
			CreatedAt: now,
			UpdatedAt: now,
		},
		ProductID: "p-0001",
		UserID:    "u-1234",
		Rating:    4,
		Comment:   "Sturdy, arrived on time.",
	}
}

func TestReviewRepository_Create_Duplicate(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	rev := sampleReview()

	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(rev.ID, rev.ProductID, rev.UserID, rev.Rating, rev.Comment, rev.CreatedAt, rev.UpdatedAt).
		WillReturnError(errors.New("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"))

	err := repo.Create(context.Background(), rev)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyExists))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Summary(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT COALESCE").
		WithArgs("p-0001").
		WillReturnRows(pgxmock.NewRows([]string{"avg", "count"}).AddRow(4.2, 11))

	summary, err := repo.Summary(context.Background(), "p-0001")
	require.NoError(t, err)
	assert.InDelta(t, 4.2, summary.AverageRating, 0.0001)
	assert.Equal(t, 11, summary.TotalCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_Distribution_FillsMissingRatings(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"rating", "count"}).
		AddRow(5, 7).
		AddRow(3, 2)

	mock.ExpectQuery("SELECT rating, count").
		WithArgs("p-0001").
		WillReturnRows(rows)

	dist, err := repo.Distribution(context.Background(), "p-0001")
	require.NoError(t, err)
	assert.Equal(t, map[int]int{1: 0, 2: 0, 3: 2, 4: 0, 5: 7}, dist)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_GetByUserAndProduct_NotFound(t *testing.T) {
	repo, mock := newReviewTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM reviews WHERE user_id =").
		WithArgs("u-1234", "p-0001").
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetByUserAndProduct(context.Background(), "u-1234", "p-0001")
	assert.Nil(t, got)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
