package repository

import (
	"context"

	"newsgraph/internal/domain/entity"
)

// ReparseRepository is the C7 bulk reparse worker's persistence interface.
type ReparseRepository interface {
	Create(ctx context.Context, job *entity.ReparseJob) (int64, error)
	Get(ctx context.Context, id int64) (*entity.ReparseJob, error)
	// UpdateProgress persists processed/succeeded/failed counters as the
	// worker advances through TotalArticles: every commitEvery (10) articles
	// and once more when the job finishes.
	UpdateProgress(ctx context.Context, id int64, processedCount, succeededCount, failedCount int) error
	UpdateStatus(ctx context.Context, id int64, status entity.ReparseStatus, errMsg string) error
	// RequestCancel sets the cooperative cancellation flag polled by the
	// worker between articles; it does not itself change Status.
	RequestCancel(ctx context.Context, id int64) error
	IsCancelled(ctx context.Context, id int64) (bool, error)
}
