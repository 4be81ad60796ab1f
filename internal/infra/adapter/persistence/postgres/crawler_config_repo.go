package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"newsgraph/internal/domain/entity"
	"newsgraph/internal/repository"
)

type CrawlerConfigRepo struct{ db *sql.DB }

func NewCrawlerConfigRepo(db *sql.DB) repository.CrawlerConfigRepository {
	return &CrawlerConfigRepo{db: db}
}

const crawlerConfigColumns = `id, name, display_name, source, kind, is_active, interval_minutes,
       timeout_seconds, last_run_status, last_run_time, next_run_time, error_log,
       last_run_items_count, total_items_count`

func scanCrawlerConfig(row interface{ Scan(...interface{}) error }) (*entity.CrawlerConfig, error) {
	var c entity.CrawlerConfig
	if err := row.Scan(
		&c.ID, &c.Name, &c.DisplayName, &c.Source, &c.Kind, &c.IsActive, &c.IntervalMinutes,
		&c.TimeoutSeconds, &c.LastRunStatus, &c.LastRunTime, &c.NextRunTime, &c.ErrorLog,
		&c.LastRunItemsCount, &c.TotalItemsCount,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func (repo *CrawlerConfigRepo) Create(ctx context.Context, cfg *entity.CrawlerConfig) (int64, error) {
	const query = `
INSERT INTO crawler_configs (name, display_name, source, kind, is_active, interval_minutes, timeout_seconds)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`
	var id int64
	err := repo.db.QueryRowContext(ctx, query,
		cfg.Name, cfg.DisplayName, cfg.Source, cfg.Kind, cfg.IsActive, cfg.IntervalMinutes, cfg.TimeoutSeconds,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("Create: %w", err)
	}
	return id, nil
}

func (repo *CrawlerConfigRepo) Get(ctx context.Context, id int64) (*entity.CrawlerConfig, error) {
	query := `SELECT ` + crawlerConfigColumns + ` FROM crawler_configs WHERE id = $1`
	row := repo.db.QueryRowContext(ctx, query, id)
	c, err := scanCrawlerConfig(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return c, nil
}

func (repo *CrawlerConfigRepo) GetByName(ctx context.Context, name string) (*entity.CrawlerConfig, error) {
	query := `SELECT ` + crawlerConfigColumns + ` FROM crawler_configs WHERE name = $1`
	row := repo.db.QueryRowContext(ctx, query, name)
	c, err := scanCrawlerConfig(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByName: %w", err)
	}
	return c, nil
}

func (repo *CrawlerConfigRepo) queryConfigs(ctx context.Context, query string, args ...interface{}) ([]*entity.CrawlerConfig, error) {
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	configs := make([]*entity.CrawlerConfig, 0, 16)
	for rows.Next() {
		c, err := scanCrawlerConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

func (repo *CrawlerConfigRepo) List(ctx context.Context) ([]*entity.CrawlerConfig, error) {
	query := `SELECT ` + crawlerConfigColumns + ` FROM crawler_configs ORDER BY id ASC`
	configs, err := repo.queryConfigs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return configs, nil
}

func (repo *CrawlerConfigRepo) ListActive(ctx context.Context) ([]*entity.CrawlerConfig, error) {
	query := `SELECT ` + crawlerConfigColumns + ` FROM crawler_configs WHERE is_active = TRUE ORDER BY id ASC`
	configs, err := repo.queryConfigs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListActive: %w", err)
	}
	return configs, nil
}

func (repo *CrawlerConfigRepo) Update(ctx context.Context, cfg *entity.CrawlerConfig) error {
	const query = `
UPDATE crawler_configs SET
       name                 = $1,
       display_name         = $2,
       source               = $3,
       kind                 = $4,
       is_active            = $5,
       interval_minutes     = $6,
       timeout_seconds      = $7,
       last_run_status      = $8,
       last_run_time        = $9,
       next_run_time        = $10,
       error_log            = $11,
       last_run_items_count = $12,
       total_items_count    = $13
WHERE id = $14`
	res, err := repo.db.ExecContext(ctx, query,
		cfg.Name, cfg.DisplayName, cfg.Source, cfg.Kind, cfg.IsActive, cfg.IntervalMinutes, cfg.TimeoutSeconds,
		cfg.LastRunStatus, cfg.LastRunTime, cfg.NextRunTime, cfg.ErrorLog, cfg.LastRunItemsCount, cfg.TotalItemsCount,
		cfg.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Update: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *CrawlerConfigRepo) Delete(ctx context.Context, id int64) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM crawler_configs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Delete: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *CrawlerConfigRepo) MarkRunning(ctx context.Context, id int64, now time.Time) error {
	const query = `
UPDATE crawler_configs SET last_run_status = 'RUNNING', last_run_time = $1
WHERE id = $2 AND last_run_status != 'RUNNING'`
	res, err := repo.db.ExecContext(ctx, query, now, id)
	if err != nil {
		return fmt.Errorf("MarkRunning: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("MarkRunning: %w", entity.ErrAlreadyLeased)
	}
	return nil
}

func (repo *CrawlerConfigRepo) MarkFinished(ctx context.Context, id int64, status entity.RunStatus, itemsCount int, nextRunTime time.Time, errorLog string, now time.Time) error {
	errorLog = entity.TruncateErrorLog(errorLog)
	const query = `
UPDATE crawler_configs SET
       last_run_status      = $1,
       last_run_time        = $2,
       next_run_time        = $3,
       error_log            = $4,
       last_run_items_count = $5,
       total_items_count    = total_items_count + $5
WHERE id = $6`
	_, err := repo.db.ExecContext(ctx, query, status, now, nextRunTime, errorLog, itemsCount, id)
	if err != nil {
		return fmt.Errorf("MarkFinished: %w", err)
	}
	return nil
}

func (repo *CrawlerConfigRepo) ResetStuckRunning(ctx context.Context) (int64, error) {
	res, err := repo.db.ExecContext(ctx, `UPDATE crawler_configs SET last_run_status = 'IDLE' WHERE last_run_status = 'RUNNING'`)
	if err != nil {
		return 0, fmt.Errorf("ResetStuckRunning: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
