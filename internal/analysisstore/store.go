// Package analysisstore implements the C10 analysis store writer: it decodes
// one article's structured LLM output into the analytical graph's rows and
// writes them through AnalyticalStoreRepository.StoreBatch inside a single
// per-article transaction.
package analysisstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"newsgraph/internal/domain/entity"
	"newsgraph/internal/repository"
)

// dedupWindow is the +/- window around published_at StoreOne scans for an
// existing article sharing the same external_id (§4.10 step 2).
const dedupWindow = 7 * 24 * time.Hour

// Store wraps AnalyticalStoreRepository with the payload-to-graph translation
// C10 owns.
type Store struct {
	repo   repository.AnalyticalStoreRepository
	logger *slog.Logger
}

func NewStore(repo repository.AnalyticalStoreRepository, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{repo: repo, logger: logger}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// StoreOne writes one decoded AnalysisResultPayload. stored is false (with a
// nil error) when an existing article with the same external_id was found
// within the dedup window and the payload was skipped.
func (s *Store) StoreOne(ctx context.Context, payload *entity.AnalysisResultPayload) (articleID int64, stored bool, err error) {
	published := payload.PublishedAt
	if published.IsZero() {
		published = time.Now()
	}
	published = published.UTC()

	existing, err := s.repo.FindArticleByExternalID(ctx, payload.ExternalID, published, dedupWindow)
	if err != nil {
		return 0, false, fmt.Errorf("StoreOne: dedup lookup: %w", err)
	}
	if existing != nil {
		s.logger.InfoContext(ctx, "analysis store skipped duplicate article",
			slog.String("external_id", payload.ExternalID), slog.Int64("existing_id", existing.ID))
		return existing.ID, false, nil
	}

	article := &entity.AnalyticalArticle{
		ExternalID:  payload.ExternalID,
		Title:       payload.Title,
		PublishedAt: published,
		Source:      payload.Source,
	}

	entities := make([]*entity.Entity, 0, len(payload.Entities))
	for i, e := range payload.Entities {
		entities = append(entities, &entity.Entity{
			ID: int64(i), Name: e.Name, NameNormalized: normalize(e.Name), Type: e.Type, Alias: e.Alias,
		})
	}

	events := make([]*entity.Event, 0, len(payload.Events))
	subEvents := make([]*entity.SubEvent, 0)
	for i, ev := range payload.Events {
		events = append(events, &entity.Event{
			ID: int64(i), Name: ev.Name, NameNormalized: normalize(ev.Name),
			TopicNormalized: ev.TopicNormalized, Type: ev.Type, Tags: ev.Tags,
		})
		for _, se := range ev.SubEvents {
			subEvents = append(subEvents, &entity.SubEvent{EventID: int64(i), Name: se.Name, EventTime: se.EventTime})
		}
	}

	articleEntities := make([]*entity.ArticleEntity, 0, len(payload.ArticleEntities))
	for _, ae := range payload.ArticleEntities {
		if ae.EntityIndex < 0 || ae.EntityIndex >= len(entities) {
			continue
		}
		articleEntities = append(articleEntities, &entity.ArticleEntity{EntityID: int64(ae.EntityIndex), Role: ae.Role})
	}

	articleEvents := make([]*entity.ArticleEvent, 0, len(payload.ArticleEvents))
	for _, aev := range payload.ArticleEvents {
		if aev.EventIndex < 0 || aev.EventIndex >= len(events) {
			continue
		}
		articleEvents = append(articleEvents, &entity.ArticleEvent{EventID: int64(aev.EventIndex), PublishedAt: published})
	}

	entityRelations := make([]*entity.EntityRelation, 0, len(payload.EntityRelations))
	for _, er := range payload.EntityRelations {
		if er.FromIndex < 0 || er.FromIndex >= len(entities) || er.ToIndex < 0 || er.ToIndex >= len(entities) {
			continue
		}
		entityRelations = append(entityRelations, &entity.EntityRelation{
			FromEntityID: int64(er.FromIndex), ToEntityID: int64(er.ToIndex), RelationType: er.RelationType,
		})
	}

	eventRelations := make([]*entity.EventRelation, 0, len(payload.EventRelations))
	for _, evr := range payload.EventRelations {
		if evr.FromIndex < 0 || evr.FromIndex >= len(events) || evr.ToIndex < 0 || evr.ToIndex >= len(events) {
			continue
		}
		eventRelations = append(eventRelations, &entity.EventRelation{
			FromEventID: int64(evr.FromIndex), ToEventID: int64(evr.ToIndex), RelationType: evr.RelationType,
		})
	}

	id, err := s.repo.StoreBatch(ctx, article, entities, events, subEvents, articleEntities, articleEvents, entityRelations, eventRelations)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// DeleteByExternalIDs removes the stored articles (and their junction rows)
// for externalIDs, leaving shared entities/events/relations in place (§4.10).
func (s *Store) DeleteByExternalIDs(ctx context.Context, externalIDs []string) (int64, error) {
	n, err := s.repo.DeleteByExternalIDs(ctx, externalIDs)
	if err != nil {
		return 0, fmt.Errorf("DeleteByExternalIDs: %w", err)
	}
	return n, nil
}
