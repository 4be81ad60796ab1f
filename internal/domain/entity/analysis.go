package entity

import "time"

// AnalysisStatus is the per-article-per-batch LLM analysis attempt status.
// PENDING is set on submit; SUCCESS on a usable LLM output (ResultJSON cleared
// once C10 has stored it); FAILED on an LLM-side error needing re-analysis;
// STORE_FAILED on a transient store error, which retains ResultJSON for a
// storage-only retry instead of re-invoking the LLM.
type AnalysisStatus string

const (
	AnalysisStatusPending     AnalysisStatus = "PENDING"
	AnalysisStatusSuccess     AnalysisStatus = "SUCCESS"
	AnalysisStatusFailed      AnalysisStatus = "FAILED"
	AnalysisStatusStoreFailed AnalysisStatus = "STORE_FAILED"
)

// AnalysisTracking is the authoritative status for one article within one
// batch. ResultJSON is non-nil only while Status is STORE_FAILED (§8 invariant
// 4); on every other status it is cleared.
type AnalysisTracking struct {
	ID           int64
	ArticleID    int64
	BatchID      string
	Status       AnalysisStatus
	ResultJSON   []byte
	ErrorMessage string
	CreatedAt    time.Time
}

// StoreFailure classifies a failure encountered while C10 writes one article's
// analysis result. IsTransient distinguishes a connection/timeout failure,
// which only needs the store step retried, from a data-class failure such as a
// constraint violation, which requires the article to be re-analyzed.
type StoreFailure struct {
	IsTransient bool
	Err         error
}

func (f *StoreFailure) Error() string {
	if f.Err == nil {
		return "store failure"
	}
	return f.Err.Error()
}

func (f *StoreFailure) Unwrap() error {
	return f.Err
}

// AnalysisRequest is one article submitted to the LLM batch coordinator.
type AnalysisRequest struct {
	ArticleID int64
	Title     string
	Content   string
	Source    string
}

// AnalysisResponse is one parsed output or error line retrieved from a
// completed batch.
type AnalysisResponse struct {
	ArticleID    int64
	Success      bool
	ResultJSON   []byte
	ErrorMessage string
}

// AnalysisResultPayload is the structured-output shape every batch request
// constrains the model's response to (§4.9, §4.10). Indices in the junction
// and relation slices are positions into Entities/Events, resolved to real
// graph ids by C10 inside a single store transaction.
type AnalysisResultPayload struct {
	ExternalID  string    `json:"external_id"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"published_at"`
	Source      string    `json:"source"`

	Entities []AnalysisEntity `json:"entities"`
	Events   []AnalysisEvent  `json:"events"`

	ArticleEntities []AnalysisArticleEntity `json:"article_entities"`
	ArticleEvents   []AnalysisArticleEvent  `json:"article_events"`

	EntityRelations []AnalysisEntityRelation `json:"entity_relations"`
	EventRelations  []AnalysisEventRelation  `json:"event_relations"`
}

type AnalysisEntity struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Alias string `json:"alias"`
}

type AnalysisSubEvent struct {
	Name      string     `json:"name"`
	EventTime *time.Time `json:"event_time"`
}

type AnalysisEvent struct {
	Name            string             `json:"name"`
	TopicNormalized string             `json:"topic_normalized"`
	Type            string             `json:"type"`
	Tags            []string           `json:"tags"`
	SubEvents       []AnalysisSubEvent `json:"sub_events"`
}

// AnalysisArticleEntity indexes into Entities by position.
type AnalysisArticleEntity struct {
	EntityIndex int    `json:"entity_index"`
	Role        string `json:"role"`
}

// AnalysisArticleEvent indexes into Events by position.
type AnalysisArticleEvent struct {
	EventIndex int `json:"event_index"`
}

// AnalysisEntityRelation indexes into Entities by position at both ends.
type AnalysisEntityRelation struct {
	FromIndex    int    `json:"from_index"`
	ToIndex      int    `json:"to_index"`
	RelationType string `json:"relation_type"`
}

// AnalysisEventRelation indexes into Events by position at both ends.
type AnalysisEventRelation struct {
	FromIndex    int    `json:"from_index"`
	ToIndex      int    `json:"to_index"`
	RelationType string `json:"relation_type"`
}
