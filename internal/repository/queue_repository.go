package repository

import (
	"context"
	"time"

	"newsgraph/internal/domain/entity"
)

// QueueRepository is the C2 URL work queue's persistence interface.
type QueueRepository interface {
	// AddURLs inserts new PendingUrl rows, skipping any whose url_hash
	// already exists. Returns the number of rows actually inserted.
	AddURLs(ctx context.Context, urls []*entity.PendingUrl) (int64, error)
	// LeaseURLs atomically claims up to limit PENDING (or re-eligible
	// FAILED) rows for source, marking them PROCESSING under leasedBy,
	// and returns the leased rows. Implementations use SELECT ... FOR
	// UPDATE SKIP LOCKED so concurrent article crawlers never double-lease
	// the same URL.
	LeaseURLs(ctx context.Context, source string, leasedBy string, limit int, now time.Time) ([]*entity.PendingUrl, error)
	MarkCompleted(ctx context.Context, id int64) error
	// MarkFailed increments attempts and records lastErr; the row is left
	// FAILED and, per CanLease, eligible for another lease until attempts
	// reaches DefaultMaxAttempts.
	MarkFailed(ctx context.Context, id int64, lastErr string) error
	// ResetStaleProcessing reclaims PROCESSING rows whose lease has been
	// held longer than staleAfter, setting them back to PENDING.
	ResetStaleProcessing(ctx context.Context, staleAfter time.Duration, now time.Time) (int64, error)
	// ForceResetAllProcessing resets every PROCESSING row to PENDING
	// regardless of lease age, for crash-recovery at process startup.
	ForceResetAllProcessing(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, source string, status entity.QueueStatus) (int64, error)
}
