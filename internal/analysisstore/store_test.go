package analysisstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsgraph/internal/domain/entity"
	"newsgraph/internal/repository"
)

type fakeAnalyticalStoreRepo struct {
	repository.AnalyticalStoreRepository
	existing       *entity.AnalyticalArticle
	storeBatchErr  error
	storedArticle  *entity.AnalyticalArticle
	storedEntities []*entity.Entity
	storedJunction []*entity.ArticleEntity
	deletedIDs     []string
}

func (f *fakeAnalyticalStoreRepo) FindArticleByExternalID(ctx context.Context, externalID string, publishedAt time.Time, window time.Duration) (*entity.AnalyticalArticle, error) {
	return f.existing, nil
}

func (f *fakeAnalyticalStoreRepo) StoreBatch(ctx context.Context, article *entity.AnalyticalArticle, entities []*entity.Entity, events []*entity.Event,
	subEvents []*entity.SubEvent, articleEntities []*entity.ArticleEntity, articleEvents []*entity.ArticleEvent,
	entityRelations []*entity.EntityRelation, eventRelations []*entity.EventRelation) (int64, error) {
	if f.storeBatchErr != nil {
		return 0, f.storeBatchErr
	}
	f.storedArticle = article
	f.storedEntities = entities
	f.storedJunction = articleEntities
	return 42, nil
}

func (f *fakeAnalyticalStoreRepo) DeleteByExternalIDs(ctx context.Context, externalIDs []string) (int64, error) {
	f.deletedIDs = externalIDs
	return int64(len(externalIDs)), nil
}

func TestStore_StoreOne_WritesGraphFromPayload(t *testing.T) {
	repo := &fakeAnalyticalStoreRepo{}
	s := NewStore(repo, nil)

	payload := &entity.AnalysisResultPayload{
		ExternalID:  "ext-1",
		Title:       "Big Event",
		PublishedAt: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		Source:      "acme",
		Entities: []entity.AnalysisEntity{
			{Name: "Jane Doe", Type: "PERSON"},
			{Name: "Acme Corp", Type: "ORG"},
		},
		ArticleEntities: []entity.AnalysisArticleEntity{
			{EntityIndex: 0, Role: "subject"},
			{EntityIndex: 5, Role: "out-of-range, must be skipped"},
		},
	}

	id, stored, err := s.StoreOne(context.Background(), payload)
	require.NoError(t, err)
	assert.True(t, stored)
	assert.Equal(t, int64(42), id)
	require.NotNil(t, repo.storedArticle)
	assert.Equal(t, "ext-1", repo.storedArticle.ExternalID)
	require.Len(t, repo.storedEntities, 2)
	assert.Equal(t, "jane doe", repo.storedEntities[0].NameNormalized)
	require.Len(t, repo.storedJunction, 1)
	assert.Equal(t, "subject", repo.storedJunction[0].Role)
}

func TestStore_StoreOne_SkipsDuplicateWithinWindow(t *testing.T) {
	repo := &fakeAnalyticalStoreRepo{existing: &entity.AnalyticalArticle{ID: 7, ExternalID: "ext-1"}}
	s := NewStore(repo, nil)

	id, stored, err := s.StoreOne(context.Background(), &entity.AnalysisResultPayload{ExternalID: "ext-1"})
	require.NoError(t, err)
	assert.False(t, stored)
	assert.Equal(t, int64(7), id)
	assert.Nil(t, repo.storedArticle, "StoreBatch must not be called on a dedup hit")
}

func TestStore_StoreOne_PropagatesStoreFailureForCallerClassification(t *testing.T) {
	repo := &fakeAnalyticalStoreRepo{storeBatchErr: &entity.StoreFailure{IsTransient: true}}
	s := NewStore(repo, nil)

	_, _, err := s.StoreOne(context.Background(), &entity.AnalysisResultPayload{ExternalID: "ext-2"})
	require.Error(t, err)
	var sf *entity.StoreFailure
	require.ErrorAs(t, err, &sf)
	assert.True(t, sf.IsTransient)
}

func TestStore_DeleteByExternalIDs(t *testing.T) {
	repo := &fakeAnalyticalStoreRepo{}
	s := NewStore(repo, nil)

	n, err := s.DeleteByExternalIDs(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, []string{"a", "b"}, repo.deletedIDs)
}
