package repository

import (
	"context"

	"newsgraph/internal/domain/entity"
)

// AnalysisRepository is the C9 LLM analysis pipeline's persistence interface
// for article_analysis_tracking (mutable current status) and
// article_analysis_results (immutable per-batch raw output log).
type AnalysisRepository interface {
	CreateTracking(ctx context.Context, t *entity.AnalysisTracking) (int64, error)
	GetTracking(ctx context.Context, articleID int64, batchID string) (*entity.AnalysisTracking, error)
	// UpdateStatus transitions a tracking row's status, optionally setting
	// resultJSON (non-nil only while status is STORE_FAILED, per §8
	// invariant 4) and an error message.
	UpdateStatus(ctx context.Context, id int64, status entity.AnalysisStatus, resultJSON []byte, errMsg string) error
	ListByBatch(ctx context.Context, batchID string, status entity.AnalysisStatus) ([]*entity.AnalysisTracking, error)
	ListFailed(ctx context.Context, batchID string) ([]*entity.AnalysisTracking, error)
	ListStoreFailed(ctx context.Context, batchID string) ([]*entity.AnalysisTracking, error)

	AppendResult(ctx context.Context, articleID int64, batchID string, resultJSON []byte) (int64, error)
	GetResult(ctx context.Context, articleID int64, batchID string) ([]byte, error)

	// DeleteTracking removes specific tracking rows by id, for RetryFailed's
	// delete-then-resubmit flow (§4.9).
	DeleteTracking(ctx context.Context, ids []int64) error
	// DeleteByBatch removes every tracking and result row for batchID, for
	// ResetPipelineRun's rewind when LLM_ANALYSIS is included in the reset.
	DeleteByBatch(ctx context.Context, batchID string) error
}
