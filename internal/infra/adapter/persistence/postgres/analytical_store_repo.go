package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"newsgraph/internal/domain/entity"
	"newsgraph/internal/repository"
)

type AnalyticalStoreRepo struct{ db *sql.DB }

func NewAnalyticalStoreRepo(db *sql.DB) repository.AnalyticalStoreRepository {
	return &AnalyticalStoreRepo{db: db}
}

func (repo *AnalyticalStoreRepo) FindArticleByExternalID(ctx context.Context, externalID string, publishedAt time.Time, window time.Duration) (*entity.AnalyticalArticle, error) {
	const query = `
SELECT id, external_id, title, published_at, source
FROM analytical_articles
WHERE external_id = $1 AND published_at BETWEEN $2 AND $3
ORDER BY published_at DESC
LIMIT 1`
	var a entity.AnalyticalArticle
	err := repo.db.QueryRowContext(ctx, query, externalID, publishedAt.Add(-window), publishedAt.Add(window)).
		Scan(&a.ID, &a.ExternalID, &a.Title, &a.PublishedAt, &a.Source)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindArticleByExternalID: %w", err)
	}
	return &a, nil
}

// StoreBatch writes one article's graph in Article -> Entities -> Events ->
// SubEvents -> junctions -> relations order inside a single transaction,
// classifying the first failure via entity.StoreFailure: a connection-class
// pgconn error is transient (retry the store), anything else is data-class
// (the article needs re-analysis).
func (repo *AnalyticalStoreRepo) StoreBatch(ctx context.Context, article *entity.AnalyticalArticle, entities []*entity.Entity, events []*entity.Event,
	subEvents []*entity.SubEvent, articleEntities []*entity.ArticleEntity, articleEvents []*entity.ArticleEvent,
	entityRelations []*entity.EntityRelation, eventRelations []*entity.EventRelation) (int64, error) {

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, classifyStoreFailure(err)
	}
	defer func() { _ = tx.Rollback() }()

	var articleID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO analytical_articles (external_id, title, published_at, source) VALUES ($1, $2, $3, $4) RETURNING id`,
		article.ExternalID, article.Title, article.PublishedAt, article.Source,
	).Scan(&articleID)
	if err != nil {
		return 0, classifyStoreFailure(err)
	}

	entityIDs := make(map[int64]int64, len(entities))
	for _, e := range entities {
		var id int64
		err := tx.QueryRowContext(ctx, `
INSERT INTO entities (name, name_normalized, type, alias)
VALUES ($1, $2, $3, $4)
ON CONFLICT (name_normalized, type) DO UPDATE SET name = EXCLUDED.name, alias = EXCLUDED.alias
RETURNING id`, e.Name, e.NameNormalized, e.Type, e.Alias).Scan(&id)
		if err != nil {
			return 0, classifyStoreFailure(err)
		}
		entityIDs[e.ID] = id
		e.ID = id
	}

	eventIDs := make(map[int64]int64, len(events))
	for _, ev := range events {
		tagsJSON, err := json.Marshal(ev.Tags)
		if err != nil {
			return 0, &entity.StoreFailure{IsTransient: false, Err: err}
		}
		var id int64
		err = tx.QueryRowContext(ctx, `
INSERT INTO events (name, name_normalized, topic_normalized, type, tags)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (name_normalized) DO UPDATE SET name = EXCLUDED.name, topic_normalized = EXCLUDED.topic_normalized,
       type = EXCLUDED.type, tags = EXCLUDED.tags
RETURNING id`, ev.Name, ev.NameNormalized, ev.TopicNormalized, ev.Type, tagsJSON).Scan(&id)
		if err != nil {
			return 0, classifyStoreFailure(err)
		}
		eventIDs[ev.ID] = id
		ev.ID = id
	}

	for _, se := range subEvents {
		eventID, ok := eventIDs[se.EventID]
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO sub_events (event_id, name, event_time)
VALUES ($1, $2, $3)
ON CONFLICT (event_id, name) DO UPDATE SET event_time = EXCLUDED.event_time`,
			eventID, se.Name, se.EventTime); err != nil {
			return 0, classifyStoreFailure(err)
		}
	}

	for _, ae := range articleEntities {
		entityID, ok := entityIDs[ae.EntityID]
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO article_entities (article_id, entity_id, role)
VALUES ($1, $2, $3)
ON CONFLICT (article_id, entity_id, role) DO NOTHING`, articleID, entityID, ae.Role); err != nil {
			return 0, classifyStoreFailure(err)
		}
	}

	for _, aev := range articleEvents {
		eventID, ok := eventIDs[aev.EventID]
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO article_events (article_id, event_id, published_at)
VALUES ($1, $2, $3)
ON CONFLICT (published_at, article_id, event_id) DO NOTHING`, articleID, eventID, aev.PublishedAt); err != nil {
			return 0, classifyStoreFailure(err)
		}
	}

	for _, er := range entityRelations {
		fromID, fromOK := entityIDs[er.FromEntityID]
		toID, toOK := entityIDs[er.ToEntityID]
		if !fromOK || !toOK {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO entity_relations (from_entity_id, to_entity_id, relation_type)
VALUES ($1, $2, $3)
ON CONFLICT (from_entity_id, to_entity_id, relation_type) DO NOTHING`, fromID, toID, er.RelationType); err != nil {
			return 0, classifyStoreFailure(err)
		}
	}

	for _, evr := range eventRelations {
		fromID, fromOK := eventIDs[evr.FromEventID]
		toID, toOK := eventIDs[evr.ToEventID]
		if !fromOK || !toOK {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO event_relations (from_event_id, to_event_id, relation_type)
VALUES ($1, $2, $3)
ON CONFLICT (from_event_id, to_event_id, relation_type) DO NOTHING`, fromID, toID, evr.RelationType); err != nil {
			return 0, classifyStoreFailure(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, classifyStoreFailure(err)
	}
	return articleID, nil
}

func (repo *AnalyticalStoreRepo) DeleteByExternalIDs(ctx context.Context, externalIDs []string) (int64, error) {
	if len(externalIDs) == 0 {
		return 0, nil
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM analytical_articles WHERE external_id = ANY($1)`, pq.Array(externalIDs))
	if err != nil {
		return 0, fmt.Errorf("DeleteByExternalIDs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// classifyStoreFailure distinguishes a connection/timeout failure (safe to
// retry the store step alone) from everything else, including constraint
// violations, which mean the article's analysis must be redone.
func classifyStoreFailure(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 (connection exception) and 57014 (query canceled) are
		// transient; everything else (constraint violations, bad input) is not.
		if (len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08") || pgErr.Code == "57014" {
			return &entity.StoreFailure{IsTransient: true, Err: err}
		}
		return &entity.StoreFailure{IsTransient: false, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sql.ErrConnDone) {
		return &entity.StoreFailure{IsTransient: true, Err: err}
	}
	return &entity.StoreFailure{IsTransient: false, Err: err}
}
