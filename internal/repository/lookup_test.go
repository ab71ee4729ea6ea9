package repository

import (
	"context"
	"testing"

	"github.com/Geometrically/fabricate/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestLookupCategoryID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewLookupRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT .+ FROM "categories"`).
		WithArgs("technology", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	id, err := repo.CategoryID(ctx, "technology")
	require.NoError(t, err)
	assert.Equal(t, 7, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupCategoryIDUnknownName(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewLookupRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT .+ FROM "categories"`).
		WithArgs("no-such-category", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.CategoryID(ctx, "no-such-category")
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, "INVALID_REFERENCE", appErr.Code)
	assert.Contains(t, appErr.Message, "no-such-category")
}

func TestLookupStatusName(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewLookupRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT .+ FROM "statuses"`).
		WithArgs(3, 1).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("approved"))

	status, err := repo.StatusName(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, status)
}
