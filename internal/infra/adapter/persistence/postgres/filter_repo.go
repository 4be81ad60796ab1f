package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"newsgraph/internal/domain/entity"
	"newsgraph/internal/repository"
)

type FilterRepo struct{ db *sql.DB }

func NewFilterRepo(db *sql.DB) repository.FilterRepository {
	return &FilterRepo{db: db}
}

func (repo *FilterRepo) Create(ctx context.Context, rule *entity.FilterRule) (int64, error) {
	const query = `
INSERT INTO filter_rules (name, description, rule_type, is_active, config)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`
	var id int64
	err := repo.db.QueryRowContext(ctx, query,
		rule.Name, rule.Description, rule.RuleType, rule.IsActive, rule.Config,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("Create: %w", err)
	}
	return id, nil
}

func (repo *FilterRepo) ListActive(ctx context.Context) ([]*entity.FilterRule, error) {
	const query = `
SELECT id, name, description, rule_type, is_active, config, total_filtered_count
FROM filter_rules
WHERE is_active = TRUE
ORDER BY id ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListActive: %w", err)
	}
	defer func() { _ = rows.Close() }()

	rules := make([]*entity.FilterRule, 0, 16)
	for rows.Next() {
		var r entity.FilterRule
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.RuleType, &r.IsActive, &r.Config, &r.TotalFilteredCount); err != nil {
			return nil, fmt.Errorf("ListActive: %w", err)
		}
		rules = append(rules, &r)
	}
	return rules, rows.Err()
}

func (repo *FilterRepo) Update(ctx context.Context, rule *entity.FilterRule) error {
	const query = `
UPDATE filter_rules SET
       name        = $1,
       description = $2,
       rule_type   = $3,
       is_active   = $4,
       config      = $5
WHERE id = $6`
	res, err := repo.db.ExecContext(ctx, query, rule.Name, rule.Description, rule.RuleType, rule.IsActive, rule.Config, rule.ID)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Update: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *FilterRepo) Delete(ctx context.Context, id int64) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM filter_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Delete: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *FilterRepo) IncrementFilteredCount(ctx context.Context, id int64, delta int64) error {
	_, err := repo.db.ExecContext(ctx, `UPDATE filter_rules SET total_filtered_count = total_filtered_count + $1 WHERE id = $2`, delta, id)
	if err != nil {
		return fmt.Errorf("IncrementFilteredCount: %w", err)
	}
	return nil
}

func (repo *FilterRepo) AddForceInclude(ctx context.Context, fi *entity.ForceInclude) (int64, error) {
	const query = `
INSERT INTO force_include_articles (article_id, reason, added_by)
VALUES ($1, $2, $3)
ON CONFLICT (article_id) DO UPDATE SET reason = EXCLUDED.reason, added_by = EXCLUDED.added_by
RETURNING id`
	var id int64
	err := repo.db.QueryRowContext(ctx, query, fi.ArticleID, fi.Reason, fi.AddedBy).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("AddForceInclude: %w", err)
	}
	return id, nil
}

func (repo *FilterRepo) IsForceIncluded(ctx context.Context, articleID int64) (bool, error) {
	var exists bool
	err := repo.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM force_include_articles WHERE article_id = $1)`, articleID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("IsForceIncluded: %w", err)
	}
	return exists, nil
}

func (repo *FilterRepo) RemoveForceInclude(ctx context.Context, articleID int64) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM force_include_articles WHERE article_id = $1`, articleID)
	if err != nil {
		return fmt.Errorf("RemoveForceInclude: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("RemoveForceInclude: %w", entity.ErrNotFound)
	}
	return nil
}
