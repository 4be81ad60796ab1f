package repository

import (
	"context"
	"time"

	"newsgraph/internal/domain/entity"
)

// CrawlerConfigRepository is the C1 registry's persistence interface. A
// CrawlerConfig row is both the crawler's static configuration and its
// mutable last-run state, so Update covers both concerns.
type CrawlerConfigRepository interface {
	Create(ctx context.Context, cfg *entity.CrawlerConfig) (int64, error)
	Get(ctx context.Context, id int64) (*entity.CrawlerConfig, error)
	GetByName(ctx context.Context, name string) (*entity.CrawlerConfig, error)
	List(ctx context.Context) ([]*entity.CrawlerConfig, error)
	ListActive(ctx context.Context) ([]*entity.CrawlerConfig, error)
	Update(ctx context.Context, cfg *entity.CrawlerConfig) error
	Delete(ctx context.Context, id int64) error
	// MarkRunning transitions a crawler to RUNNING ahead of an invocation;
	// it is a no-op failure if the crawler is already RUNNING, enforcing
	// the single-instance-per-crawler invariant.
	MarkRunning(ctx context.Context, id int64, now time.Time) error
	// MarkFinished records a run's outcome: status, item counts, the next
	// scheduled run time, and (for FAILED runs) a truncated error log.
	MarkFinished(ctx context.Context, id int64, status entity.RunStatus, itemsCount int, nextRunTime time.Time, errorLog string, now time.Time) error
	// ResetStuckRunning forces every RUNNING crawler back to IDLE, for
	// crash-recovery at process startup.
	ResetStuckRunning(ctx context.Context) (int64, error)
}
