package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"newsgraph/internal/domain/entity"
	"newsgraph/internal/repository"
)

type AnalysisRepo struct{ db *sql.DB }

func NewAnalysisRepo(db *sql.DB) repository.AnalysisRepository {
	return &AnalysisRepo{db: db}
}

func (repo *AnalysisRepo) CreateTracking(ctx context.Context, t *entity.AnalysisTracking) (int64, error) {
	const query = `
INSERT INTO article_analysis_tracking (article_id, batch_id, status, result_json, error_message)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`
	var id int64
	err := repo.db.QueryRowContext(ctx, query, t.ArticleID, t.BatchID, t.Status, t.ResultJSON, t.ErrorMessage).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("CreateTracking: %w", err)
	}
	return id, nil
}

func (repo *AnalysisRepo) GetTracking(ctx context.Context, articleID int64, batchID string) (*entity.AnalysisTracking, error) {
	const query = `
SELECT id, article_id, batch_id, status, result_json, error_message, created_at
FROM article_analysis_tracking
WHERE article_id = $1 AND batch_id = $2`
	var t entity.AnalysisTracking
	err := repo.db.QueryRowContext(ctx, query, articleID, batchID).Scan(
		&t.ID, &t.ArticleID, &t.BatchID, &t.Status, &t.ResultJSON, &t.ErrorMessage, &t.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetTracking: %w", err)
	}
	return &t, nil
}

func (repo *AnalysisRepo) UpdateStatus(ctx context.Context, id int64, status entity.AnalysisStatus, resultJSON []byte, errMsg string) error {
	const query = `
UPDATE article_analysis_tracking SET status = $1, result_json = $2, error_message = $3
WHERE id = $4`
	_, err := repo.db.ExecContext(ctx, query, status, resultJSON, errMsg, id)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	return nil
}

func (repo *AnalysisRepo) listByStatus(ctx context.Context, batchID string, status entity.AnalysisStatus) ([]*entity.AnalysisTracking, error) {
	const query = `
SELECT id, article_id, batch_id, status, result_json, error_message, created_at
FROM article_analysis_tracking
WHERE batch_id = $1 AND status = $2
ORDER BY id ASC`
	rows, err := repo.db.QueryContext(ctx, query, batchID, status)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	results := make([]*entity.AnalysisTracking, 0, 64)
	for rows.Next() {
		var t entity.AnalysisTracking
		if err := rows.Scan(&t.ID, &t.ArticleID, &t.BatchID, &t.Status, &t.ResultJSON, &t.ErrorMessage, &t.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, &t)
	}
	return results, rows.Err()
}

func (repo *AnalysisRepo) ListByBatch(ctx context.Context, batchID string, status entity.AnalysisStatus) ([]*entity.AnalysisTracking, error) {
	results, err := repo.listByStatus(ctx, batchID, status)
	if err != nil {
		return nil, fmt.Errorf("ListByBatch: %w", err)
	}
	return results, nil
}

func (repo *AnalysisRepo) ListFailed(ctx context.Context, batchID string) ([]*entity.AnalysisTracking, error) {
	results, err := repo.listByStatus(ctx, batchID, entity.AnalysisStatusFailed)
	if err != nil {
		return nil, fmt.Errorf("ListFailed: %w", err)
	}
	return results, nil
}

func (repo *AnalysisRepo) ListStoreFailed(ctx context.Context, batchID string) ([]*entity.AnalysisTracking, error) {
	results, err := repo.listByStatus(ctx, batchID, entity.AnalysisStatusStoreFailed)
	if err != nil {
		return nil, fmt.Errorf("ListStoreFailed: %w", err)
	}
	return results, nil
}

func (repo *AnalysisRepo) AppendResult(ctx context.Context, articleID int64, batchID string, resultJSON []byte) (int64, error) {
	const query = `
INSERT INTO article_analysis_results (article_id, batch_id, result_json)
VALUES ($1, $2, $3)
RETURNING id`
	var id int64
	err := repo.db.QueryRowContext(ctx, query, articleID, batchID, resultJSON).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("AppendResult: %w", err)
	}
	return id, nil
}

func (repo *AnalysisRepo) DeleteTracking(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.db.ExecContext(ctx, `DELETE FROM article_analysis_tracking WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("DeleteTracking: %w", err)
	}
	return nil
}

func (repo *AnalysisRepo) DeleteByBatch(ctx context.Context, batchID string) error {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("DeleteByBatch: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM article_analysis_results WHERE batch_id = $1`, batchID); err != nil {
		return fmt.Errorf("DeleteByBatch: results: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM article_analysis_tracking WHERE batch_id = $1`, batchID); err != nil {
		return fmt.Errorf("DeleteByBatch: tracking: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("DeleteByBatch: commit: %w", err)
	}
	return nil
}

func (repo *AnalysisRepo) GetResult(ctx context.Context, articleID int64, batchID string) ([]byte, error) {
	const query = `
SELECT result_json FROM article_analysis_results
WHERE article_id = $1 AND batch_id = $2
ORDER BY id DESC
LIMIT 1`
	var result []byte
	err := repo.db.QueryRowContext(ctx, query, articleID, batchID).Scan(&result)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetResult: %w", err)
	}
	return result, nil
}
