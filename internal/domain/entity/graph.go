package entity

import "time"

// AnalyticalArticle is the row C10 inserts for one stored analysis, in the
// separate analytical store (distinct from the operational Article produced
// by crawling). ExternalID is the dedup key scanned within a ±7-day window.
type AnalyticalArticle struct {
	ID          int64
	ExternalID  string
	Title       string
	PublishedAt time.Time // always timezone-aware; normalized to UTC if the source omitted a zone
	Source      string
}

// Entity is a named actor (person, organization, place, ...) extracted from
// analysis output, upserted by (NameNormalized, Type).
type Entity struct {
	ID             int64
	Name           string
	NameNormalized string
	Type           string
	Alias          string
}

// Event is a named occurrence extracted from analysis output, upserted by
// NameNormalized.
type Event struct {
	ID              int64
	Name            string
	NameNormalized  string
	TopicNormalized string
	Type            string
	Tags            []string
}

// SubEvent refines an Event with a concrete occurrence time. Inserts are
// unique-on-conflict update of EventTime, keyed by (EventID, Name).
type SubEvent struct {
	ID        int64
	EventID   int64
	Name      string
	EventTime *time.Time
}

// ArticleEntity links one analytical article to one entity it mentions.
// Conflict on the (ArticleID, EntityID, Role) triple is a no-op.
type ArticleEntity struct {
	ArticleID int64
	EntityID  int64
	Role      string
}

// ArticleEvent links one analytical article to one event it covers. Conflict
// on (PublishedAt, ArticleID, EventID) is a no-op.
type ArticleEvent struct {
	ArticleID   int64
	EventID     int64
	PublishedAt time.Time
}

// EntityRelation is a directed, typed edge between two entities. Upserts
// silently skip when either endpoint id is not the id of an entity passed in
// the same store call (the entity was not produced by this article's analysis).
type EntityRelation struct {
	ID           int64
	FromEntityID int64
	ToEntityID   int64
	RelationType string
}

// EventRelation is a directed, typed edge between two events, with the same
// missing-endpoint skip behavior as EntityRelation.
type EventRelation struct {
	ID           int64
	FromEventID  int64
	ToEventID    int64
	RelationType string
}
