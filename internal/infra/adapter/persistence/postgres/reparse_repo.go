package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"newsgraph/internal/domain/entity"
	"newsgraph/internal/repository"
)

type ReparseRepo struct{ db *sql.DB }

func NewReparseRepo(db *sql.DB) repository.ReparseRepository {
	return &ReparseRepo{db: db}
}

const reparseColumns = `id, status, total_articles, processed_count, succeeded_count, failed_count,
       cancelled, started_at, finished_at, error`

func scanReparseJob(row interface{ Scan(...interface{}) error }) (*entity.ReparseJob, error) {
	var j entity.ReparseJob
	if err := row.Scan(
		&j.ID, &j.Status, &j.TotalArticles, &j.ProcessedCount, &j.SucceededCount, &j.FailedCount,
		&j.Cancelled, &j.StartedAt, &j.FinishedAt, &j.Error,
	); err != nil {
		return nil, err
	}
	return &j, nil
}

func (repo *ReparseRepo) Create(ctx context.Context, job *entity.ReparseJob) (int64, error) {
	const query = `
INSERT INTO reparse_jobs (status, total_articles, started_at)
VALUES ($1, $2, $3)
RETURNING id`
	var id int64
	err := repo.db.QueryRowContext(ctx, query, job.Status, job.TotalArticles, time.Now()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("Create: %w", err)
	}
	return id, nil
}

func (repo *ReparseRepo) Get(ctx context.Context, id int64) (*entity.ReparseJob, error) {
	query := `SELECT ` + reparseColumns + ` FROM reparse_jobs WHERE id = $1`
	row := repo.db.QueryRowContext(ctx, query, id)
	j, err := scanReparseJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return j, nil
}

func (repo *ReparseRepo) UpdateProgress(ctx context.Context, id int64, processedCount, succeededCount, failedCount int) error {
	const query = `
UPDATE reparse_jobs SET processed_count = $1, succeeded_count = $2, failed_count = $3
WHERE id = $4`
	_, err := repo.db.ExecContext(ctx, query, processedCount, succeededCount, failedCount, id)
	if err != nil {
		return fmt.Errorf("UpdateProgress: %w", err)
	}
	return nil
}

func (repo *ReparseRepo) UpdateStatus(ctx context.Context, id int64, status entity.ReparseStatus, errMsg string) error {
	const query = `
UPDATE reparse_jobs SET status = $1, error = $2, finished_at = $3
WHERE id = $4`
	var finishedAt interface{}
	if status == entity.ReparseStatusCompleted || status == entity.ReparseStatusCancelled || status == entity.ReparseStatusFailed {
		finishedAt = time.Now()
	}
	_, err := repo.db.ExecContext(ctx, query, status, errMsg, finishedAt, id)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	return nil
}

func (repo *ReparseRepo) RequestCancel(ctx context.Context, id int64) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE reparse_jobs SET cancelled = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("RequestCancel: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("RequestCancel: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *ReparseRepo) IsCancelled(ctx context.Context, id int64) (bool, error) {
	var cancelled bool
	err := repo.db.QueryRowContext(ctx, `SELECT cancelled FROM reparse_jobs WHERE id = $1`, id).Scan(&cancelled)
	if err == sql.ErrNoRows {
		return false, fmt.Errorf("IsCancelled: %w", entity.ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("IsCancelled: %w", err)
	}
	return cancelled, nil
}
