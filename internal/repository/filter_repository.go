package repository

import (
	"context"

	"newsgraph/internal/domain/entity"
)

// FilterRepository is the C8.8 rule-filter stage's persistence interface for
// filter_rules and force_include_articles.
type FilterRepository interface {
	Create(ctx context.Context, rule *entity.FilterRule) (int64, error)
	// ListActive returns active rules in registration (id ascending) order,
	// the order the spec's rule evaluation walks them in.
	ListActive(ctx context.Context) ([]*entity.FilterRule, error)
	Update(ctx context.Context, rule *entity.FilterRule) error
	Delete(ctx context.Context, id int64) error
	IncrementFilteredCount(ctx context.Context, id int64, delta int64) error

	AddForceInclude(ctx context.Context, fi *entity.ForceInclude) (int64, error)
	IsForceIncluded(ctx context.Context, articleID int64) (bool, error)
	RemoveForceInclude(ctx context.Context, articleID int64) error
}
