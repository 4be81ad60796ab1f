package repository

import (
	"context"
	"time"

	"newsgraph/internal/domain/entity"
)

// AnalyticalStoreRepository is the C10 analytical store writer's persistence
// interface: the graph of articles, entities, events, sub-events, and their
// junction/relation tables distinct from the operational store.
type AnalyticalStoreRepository interface {
	// FindArticleByExternalID scans for a dedup match within the ±7-day
	// window centered on publishedAt, per AnalyticalArticle's doc comment.
	FindArticleByExternalID(ctx context.Context, externalID string, publishedAt time.Time, window time.Duration) (*entity.AnalyticalArticle, error)
	// StoreBatch writes one article's full analysis result — article,
	// entities, events, sub-events, junctions, relations — inside a single
	// transaction, classifying any failure via entity.StoreFailure so the
	// caller can tell a transient store error from a data-class one.
	StoreBatch(ctx context.Context, article *entity.AnalyticalArticle, entities []*entity.Entity, events []*entity.Event,
		subEvents []*entity.SubEvent, articleEntities []*entity.ArticleEntity, articleEvents []*entity.ArticleEvent,
		entityRelations []*entity.EntityRelation, eventRelations []*entity.EventRelation) (articleID int64, err error)
	DeleteByExternalIDs(ctx context.Context, externalIDs []string) (int64, error)
}
