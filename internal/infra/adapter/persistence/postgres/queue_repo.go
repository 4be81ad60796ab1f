package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"newsgraph/internal/domain/entity"
	"newsgraph/internal/repository"
)

type QueueRepo struct{ db *sql.DB }

func NewQueueRepo(db *sql.DB) repository.QueueRepository {
	return &QueueRepo{db: db}
}

const pendingURLColumns = `id, url, url_hash, source, crawler_name, status, attempts,
       leased_at, leased_by, discovered_at, last_error`

func scanPendingURL(row interface{ Scan(...interface{}) error }) (*entity.PendingUrl, error) {
	var p entity.PendingUrl
	if err := row.Scan(
		&p.ID, &p.URL, &p.URLHash, &p.Source, &p.CrawlerName, &p.Status, &p.Attempts,
		&p.LeasedAt, &p.LeasedBy, &p.DiscoveredAt, &p.LastError,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

// AddURLs inserts every row whose url_hash is not already present; the
// unique index on url_hash makes ON CONFLICT DO NOTHING the dedup boundary
// named by PendingUrl's doc comment.
func (repo *QueueRepo) AddURLs(ctx context.Context, urls []*entity.PendingUrl) (int64, error) {
	if len(urls) == 0 {
		return 0, nil
	}
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("AddURLs: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `
INSERT INTO pending_urls (url, url_hash, source, crawler_name)
VALUES ($1, $2, $3, $4)
ON CONFLICT (url_hash) DO NOTHING`

	var inserted int64
	for _, u := range urls {
		res, err := tx.ExecContext(ctx, query, u.URL, u.URLHash, u.Source, u.CrawlerName)
		if err != nil {
			return 0, fmt.Errorf("AddURLs: %w", err)
		}
		n, _ := res.RowsAffected()
		inserted += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("AddURLs: commit: %w", err)
	}
	return inserted, nil
}

// LeaseURLs claims up to limit eligible rows for source using a
// SELECT ... FOR UPDATE SKIP LOCKED CTE, so concurrent article crawlers
// never block on or double-lease the same row.
func (repo *QueueRepo) LeaseURLs(ctx context.Context, source string, leasedBy string, limit int, now time.Time) ([]*entity.PendingUrl, error) {
	const query = `
WITH picked AS (
    SELECT id
    FROM pending_urls
    WHERE source = $1
      AND (status = 'PENDING' OR (status = 'FAILED' AND attempts < $2))
    ORDER BY discovered_at ASC
    FOR UPDATE SKIP LOCKED
    LIMIT $3
)
UPDATE pending_urls pu
SET status = 'PROCESSING', leased_at = $4, leased_by = $5
FROM picked
WHERE pu.id = picked.id
RETURNING pu.id, pu.url, pu.url_hash, pu.source, pu.crawler_name,
          pu.status, pu.attempts, pu.leased_at, pu.leased_by, pu.discovered_at, pu.last_error`

	rows, err := repo.db.QueryContext(ctx, query, source, entity.DefaultMaxAttempts, limit, now, leasedBy)
	if err != nil {
		return nil, fmt.Errorf("LeaseURLs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	leased := make([]*entity.PendingUrl, 0, limit)
	for rows.Next() {
		p, err := scanPendingURL(rows)
		if err != nil {
			return nil, fmt.Errorf("LeaseURLs: %w", err)
		}
		leased = append(leased, p)
	}
	return leased, rows.Err()
}

func (repo *QueueRepo) MarkCompleted(ctx context.Context, id int64) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE pending_urls SET status = 'COMPLETED' WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("MarkCompleted: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("MarkCompleted: %w", entity.ErrNotFound)
	}
	return nil
}

// MarkFailed increments attempts and, once DefaultMaxAttempts is reached,
// parks the row as FAILED; otherwise it returns the row to PENDING so the
// next lease picks it up again, per PendingUrl.CanLease.
func (repo *QueueRepo) MarkFailed(ctx context.Context, id int64, lastErr string) error {
	const query = `
UPDATE pending_urls
SET attempts = attempts + 1,
    last_error = $1,
    leased_at = NULL,
    leased_by = '',
    status = CASE WHEN attempts + 1 >= $2 THEN 'FAILED' ELSE 'PENDING' END
WHERE id = $3`
	res, err := repo.db.ExecContext(ctx, query, lastErr, entity.DefaultMaxAttempts, id)
	if err != nil {
		return fmt.Errorf("MarkFailed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("MarkFailed: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *QueueRepo) ResetStaleProcessing(ctx context.Context, staleAfter time.Duration, now time.Time) (int64, error) {
	cutoff := now.Add(-staleAfter)
	const query = `
UPDATE pending_urls SET status = 'PENDING', leased_at = NULL, leased_by = ''
WHERE status = 'PROCESSING' AND leased_at < $1`
	res, err := repo.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("ResetStaleProcessing: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (repo *QueueRepo) ForceResetAllProcessing(ctx context.Context) (int64, error) {
	const query = `
UPDATE pending_urls SET status = 'PENDING', leased_at = NULL, leased_by = ''
WHERE status = 'PROCESSING'`
	res, err := repo.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("ForceResetAllProcessing: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (repo *QueueRepo) CountByStatus(ctx context.Context, source string, status entity.QueueStatus) (int64, error) {
	const query = `SELECT COUNT(*) FROM pending_urls WHERE source = $1 AND status = $2`
	var count int64
	if err := repo.db.QueryRowContext(ctx, query, source, status).Scan(&count); err != nil {
		return 0, fmt.Errorf("CountByStatus: %w", err)
	}
	return count, nil
}
