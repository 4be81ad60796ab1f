package repository

import (
	"context"

	"newsgraph/internal/domain/entity"
)

// PipelineRepository is the C8 pipeline stage machine's persistence interface
// for pipeline_runs and its owned per-article artifacts in
// article_filter_results.
type PipelineRepository interface {
	CreateRun(ctx context.Context, run *entity.PipelineRun) (int64, error)
	GetRun(ctx context.Context, id int64) (*entity.PipelineRun, error)
	UpdateRunStage(ctx context.Context, id int64, status entity.PipelineStatus, stage entity.PipelineStage) error
	// UpdateRunCounters persists total_articles and the four running counts a
	// run accumulates across FETCH, RULE_FILTER, and LLM_ANALYSIS.
	UpdateRunCounters(ctx context.Context, id int64, totalArticles, ruleFiltered, rulePassed, analyzed, forceIncluded int) error
	FinishRun(ctx context.Context, id int64, status entity.PipelineStatus, errorLog string) error
	// SetBatchID persists the batch id C9 obtained from SubmitBatch before any
	// AnalysisTracking row is written, so a crashed or paused run can resume
	// polling the same batch (§4.9).
	SetBatchID(ctx context.Context, id int64, batchID string) error
	// ResetFromStage deletes every FilterResult for id at or after fromStage
	// and rewinds the run to PENDING at fromStage, for C8's documented
	// resume/reset operation.
	ResetFromStage(ctx context.Context, id int64, fromStage entity.PipelineStage) error

	InsertFilterResult(ctx context.Context, fr *entity.FilterResult) (int64, error)
	ListFilterResults(ctx context.Context, runID int64, stage entity.PipelineStage) ([]*entity.FilterResult, error)
}
