package postgres_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsgraph/internal/domain/entity"
	pg "newsgraph/internal/infra/adapter/persistence/postgres"
)

func TestReparseRepo_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO reparse_jobs")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	repo := pg.NewReparseRepo(db)
	id, err := repo.Create(context.Background(), &entity.ReparseJob{
		Status:        entity.ReparseStatusPending,
		TotalArticles: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestReparseRepo_UpdateProgress(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("SET processed_count = $1, succeeded_count = $2, failed_count = $3")).
		WithArgs(10, 9, 1, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := pg.NewReparseRepo(db)
	err = repo.UpdateProgress(context.Background(), 1, 10, 9, 1)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReparseRepo_RequestCancel_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("SET cancelled = TRUE")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := pg.NewReparseRepo(db)
	err = repo.RequestCancel(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestReparseRepo_IsCancelled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT cancelled FROM reparse_jobs")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"cancelled"}).AddRow(true))

	repo := pg.NewReparseRepo(db)
	cancelled, err := repo.IsCancelled(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, cancelled)
}
