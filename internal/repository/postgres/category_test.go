package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Felix251/marketplace/internal/domain"
	apperrors "github.com/Felix251/marketplace/pkg/errors"
)

func newCategoryTestFixture(t *testing.T) (*CategoryRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	repo := NewCategoryRepository(mock)
	return repo, mock
}

func sampleCategory() *domain.Category {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Category{
		Base: domain.Base{
			ID:        "c-0001",
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:        "Furniture",
		Description: "Desks, chairs, shelving",
		Active:      true,
	}
}

func categoryCols() []string {
	return []string{
		"id", "name", "description", "image", "active", "parent_id",
		"created_at", "updated_at",
	}
}

func TestCategoryRepository_Create_DuplicateName(t *testing.T) {
	repo, mock := newCategoryTestFixture(t)
	defer mock.Close()

	c := sampleCategory()

	mock.ExpectExec("INSERT INTO categories").
		WithArgs(c.ID, c.Name, c.Description, c.Image, c.Active, c.ParentID, c.CreatedAt, c.UpdatedAt).
		WillReturnError(fmt.Errorf("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"))

	err := repo.Create(context.Background(), c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyExists))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_Hierarchy(t *testing.T) {
	repo, mock := newCategoryTestFixture(t)
	defer mock.Close()

	now := time.Now().UTC()
	parentID := "c-0001"
	rows := pgxmock.NewRows(append(categoryCols(), "depth")).
		AddRow("c-0001", "Furniture", "", "", true, nil, now, now, 0).
		AddRow("c-0002", "Desks", "", "", true, &parentID, now, now, 1)

	mock.ExpectQuery(`WITH RECURSIVE tree[\s\S]*ORDER BY depth, name`).
		WillReturnRows(rows)

	nodes, err := repo.Hierarchy(context.Background())
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, 0, nodes[0].Depth)
	assert.Equal(t, "Furniture", nodes[0].Name)
	assert.Equal(t, 1, nodes[1].Depth)
	require.NotNil(t, nodes[1].ParentID)
	assert.Equal(t, "c-0001", *nodes[1].ParentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_ListActive(t *testing.T) {
	repo, mock := newCategoryTestFixture(t)
	defer mock.Close()

	now := time.Now().UTC()
	rows := pgxmock.NewRows(categoryCols()).
		AddRow("c-0001", "Furniture", "", "", true, nil, now, now).
		AddRow("c-0002", "Lighting", "", "", true, nil, now, now)

	mock.ExpectQuery(`FROM categories WHERE active ORDER BY name`).
		WillReturnRows(rows)

	categories, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Furniture", categories[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_Search(t *testing.T) {
	repo, mock := newCategoryTestFixture(t)
	defer mock.Close()

	now := time.Now().UTC()
	rows := pgxmock.NewRows(categoryCols()).
		AddRow("c-0003", "Desks", "Standing and writing desks", "", true, nil, now, now)

	mock.ExpectQuery(`name ILIKE .+ OR description ILIKE`).
		WithArgs("desk").
		WillReturnRows(rows)

	categories, err := repo.Search(context.Background(), "desk")
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "Desks", categories[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_PathToRoot_NotFound(t *testing.T) {
	repo, mock := newCategoryTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("WITH RECURSIVE chain").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(categoryCols()))

	path, err := repo.PathToRoot(context.Background(), "missing")
	assert.Nil(t, path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_IsDescendant(t *testing.T) {
	repo, mock := newCategoryTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("WITH RECURSIVE subtree").
		WithArgs("c-0001", "c-0002").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	found, err := repo.IsDescendant(context.Background(), "c-0001", "c-0002")
	require.NoError(t, err)
	assert.True(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_ReparentChildren_ToRoot(t *testing.T) {
	repo, mock := newCategoryTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE categories SET parent_id").
		WithArgs(nil, pgxmock.AnyArg(), "c-0001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	err := repo.ReparentChildren(context.Background(), "c-0001", nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_TopByProductCount(t *testing.T) {
	repo, mock := newCategoryTestFixture(t)
	defer mock.Close()

	now := time.Now().UTC()
	rows := pgxmock.NewRows(append(categoryCols(), "product_count")).
		AddRow("c-0001", "Furniture", "", "", true, nil, now, now, 17).
		AddRow("c-0002", "Lighting", "", "", true, nil, now, now, 5)

	mock.ExpectQuery("SELECT .+ FROM categories c").
		WithArgs(10).
		WillReturnRows(rows)

	counts, err := repo.TopByProductCount(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, 17, counts[0].ProductCount)
	assert.Equal(t, "Furniture", counts[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
