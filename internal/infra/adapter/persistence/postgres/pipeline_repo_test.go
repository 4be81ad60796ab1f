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

func TestPipelineRepo_CreateRun(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO pipeline_runs")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	repo := pg.NewPipelineRepo(db)
	id, err := repo.CreateRun(context.Background(), &entity.PipelineRun{
		Name:         "daily",
		Status:       entity.PipelineStatusPending,
		CurrentStage: entity.StageFetch,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestPipelineRepo_ResetFromStage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM article_filter_results")).
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE pipeline_runs SET status")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := pg.NewPipelineRepo(db)
	err = repo.ResetFromStage(context.Background(), 1, entity.StageLLMAnalysis)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPipelineRepo_InsertFilterResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO article_filter_results")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	repo := pg.NewPipelineRepo(db)
	id, err := repo.InsertFilterResult(context.Background(), &entity.FilterResult{
		RunID:     1,
		ArticleID: 2,
		Stage:     entity.StageRuleFilter,
		Decision:  entity.DecisionKeep,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestPipelineRepo_SetBatchID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE pipeline_runs SET batch_id = $1 WHERE id = $2")).
		WithArgs("batch-42", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := pg.NewPipelineRepo(db)
	err = repo.SetBatchID(context.Background(), 7, "batch-42")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
