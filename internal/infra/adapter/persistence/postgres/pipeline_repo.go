package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"newsgraph/internal/domain/entity"
	"newsgraph/internal/repository"
)

// stagesFrom returns fromStage and every stage after it in pipeline order,
// so ResetFromStage can target exactly the stages a resume must redo.
func stagesFrom(fromStage entity.PipelineStage) []string {
	stages := []string{string(fromStage)}
	for s := entity.NextStage(fromStage); s != entity.StageNone; s = entity.NextStage(s) {
		stages = append(stages, string(s))
	}
	return stages
}

type PipelineRepo struct{ db *sql.DB }

func NewPipelineRepo(db *sql.DB) repository.PipelineRepository {
	return &PipelineRepo{db: db}
}

const pipelineRunColumns = `id, name, status, current_stage, date_from, date_to, total_articles,
       rule_filtered_count, rule_passed_count, analyzed_count, force_included_count, batch_id,
       started_at, completed_at, error_log`

func scanPipelineRun(row interface{ Scan(...interface{}) error }) (*entity.PipelineRun, error) {
	var r entity.PipelineRun
	if err := row.Scan(
		&r.ID, &r.Name, &r.Status, &r.CurrentStage, &r.DateFrom, &r.DateTo, &r.TotalArticles,
		&r.RuleFilteredCount, &r.RulePassedCount, &r.AnalyzedCount, &r.ForceIncludedCount, &r.BatchID,
		&r.StartedAt, &r.CompletedAt, &r.ErrorLog,
	); err != nil {
		return nil, err
	}
	return &r, nil
}

func (repo *PipelineRepo) CreateRun(ctx context.Context, run *entity.PipelineRun) (int64, error) {
	const query = `
INSERT INTO pipeline_runs (name, status, current_stage, date_from, date_to, batch_id, started_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`
	var id int64
	err := repo.db.QueryRowContext(ctx, query,
		run.Name, run.Status, run.CurrentStage, run.DateFrom, run.DateTo, run.BatchID, time.Now(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("CreateRun: %w", err)
	}
	return id, nil
}

func (repo *PipelineRepo) GetRun(ctx context.Context, id int64) (*entity.PipelineRun, error) {
	query := `SELECT ` + pipelineRunColumns + ` FROM pipeline_runs WHERE id = $1`
	row := repo.db.QueryRowContext(ctx, query, id)
	r, err := scanPipelineRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetRun: %w", err)
	}
	return r, nil
}

func (repo *PipelineRepo) UpdateRunStage(ctx context.Context, id int64, status entity.PipelineStatus, stage entity.PipelineStage) error {
	const query = `UPDATE pipeline_runs SET status = $1, current_stage = $2 WHERE id = $3`
	_, err := repo.db.ExecContext(ctx, query, status, stage, id)
	if err != nil {
		return fmt.Errorf("UpdateRunStage: %w", err)
	}
	return nil
}

func (repo *PipelineRepo) UpdateRunCounters(ctx context.Context, id int64, totalArticles, ruleFiltered, rulePassed, analyzed, forceIncluded int) error {
	const query = `
UPDATE pipeline_runs SET
       total_articles       = $1,
       rule_filtered_count  = $2,
       rule_passed_count    = $3,
       analyzed_count       = $4,
       force_included_count = $5
WHERE id = $6`
	_, err := repo.db.ExecContext(ctx, query, totalArticles, ruleFiltered, rulePassed, analyzed, forceIncluded, id)
	if err != nil {
		return fmt.Errorf("UpdateRunCounters: %w", err)
	}
	return nil
}

func (repo *PipelineRepo) FinishRun(ctx context.Context, id int64, status entity.PipelineStatus, errorLog string) error {
	const query = `
UPDATE pipeline_runs SET status = $1, current_stage = $2, completed_at = $3, error_log = $4
WHERE id = $5`
	_, err := repo.db.ExecContext(ctx, query, status, entity.StageNone, time.Now(), errorLog, id)
	if err != nil {
		return fmt.Errorf("FinishRun: %w", err)
	}
	return nil
}

func (repo *PipelineRepo) SetBatchID(ctx context.Context, id int64, batchID string) error {
	const query = `UPDATE pipeline_runs SET batch_id = $1 WHERE id = $2`
	_, err := repo.db.ExecContext(ctx, query, batchID, id)
	if err != nil {
		return fmt.Errorf("SetBatchID: %w", err)
	}
	return nil
}

func (repo *PipelineRepo) ResetFromStage(ctx context.Context, id int64, fromStage entity.PipelineStage) error {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ResetFromStage: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM article_filter_results WHERE run_id = $1 AND stage = ANY($2)`, id, pq.Array(stagesFrom(fromStage)),
	); err != nil {
		return fmt.Errorf("ResetFromStage: delete filter results: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE pipeline_runs SET status = $1, current_stage = $2, completed_at = NULL WHERE id = $3`,
		entity.PipelineStatusPending, fromStage, id,
	); err != nil {
		return fmt.Errorf("ResetFromStage: update run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ResetFromStage: commit: %w", err)
	}
	return nil
}

func (repo *PipelineRepo) InsertFilterResult(ctx context.Context, fr *entity.FilterResult) (int64, error) {
	const query = `
INSERT INTO article_filter_results (run_id, article_id, stage, decision, confidence, rule_name, reason)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`
	var id int64
	err := repo.db.QueryRowContext(ctx, query,
		fr.RunID, fr.ArticleID, fr.Stage, fr.Decision, fr.Confidence, fr.RuleName, fr.Reason,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("InsertFilterResult: %w", err)
	}
	return id, nil
}

func (repo *PipelineRepo) ListFilterResults(ctx context.Context, runID int64, stage entity.PipelineStage) ([]*entity.FilterResult, error) {
	const query = `
SELECT id, run_id, article_id, stage, decision, confidence, rule_name, reason, created_at
FROM article_filter_results
WHERE run_id = $1 AND stage = $2
ORDER BY id ASC`
	rows, err := repo.db.QueryContext(ctx, query, runID, stage)
	if err != nil {
		return nil, fmt.Errorf("ListFilterResults: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]*entity.FilterResult, 0, 64)
	for rows.Next() {
		var fr entity.FilterResult
		if err := rows.Scan(
			&fr.ID, &fr.RunID, &fr.ArticleID, &fr.Stage, &fr.Decision, &fr.Confidence, &fr.RuleName,
			&fr.Reason, &fr.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ListFilterResults: %w", err)
		}
		results = append(results, &fr)
	}
	return results, rows.Err()
}
