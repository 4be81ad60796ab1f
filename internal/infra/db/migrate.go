package db

import (
	"database/sql"
	_ "embed"
)

//go:embed seeds/filter_rules.sql
var seedFilterRulesSQL string

// MigrateUp creates every operational and analytical store table named in the
// external interfaces section, idempotently (CREATE TABLE IF NOT EXISTS), then
// seeds the default filter rule set. It never drops or alters existing data.
func MigrateUp(db *sql.DB) error {
	statements := []string{
		crawlerConfigsDDL,
		newsArticlesDDL,
		pendingUrlsDDL,
		rawHTMLArchivesDDL,
		reparseJobsDDL,
		pipelineRunsDDL,
		filterRulesDDL,
		forceIncludeArticlesDDL,
		articleFilterResultsDDL,
		articleAnalysisTrackingDDL,
		articleAnalysisResultsDDL,
		analyticalArticlesDDL,
		entitiesDDL,
		eventsDDL,
		subEventsDDL,
		articleEntitiesDDL,
		articleEventsDDL,
		entityRelationsDDL,
		eventRelationsDDL,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	for _, idx := range indexStatements {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	if _, err := db.Exec(seedFilterRulesSQL); err != nil {
		return err
	}

	return nil
}

const crawlerConfigsDDL = `
CREATE TABLE IF NOT EXISTS crawler_configs (
    id                   SERIAL PRIMARY KEY,
    name                 TEXT NOT NULL UNIQUE,
    display_name         TEXT NOT NULL DEFAULT '',
    source               TEXT NOT NULL,
    kind                 VARCHAR(10) NOT NULL CHECK (kind IN ('LIST', 'ARTICLE')),
    is_active            BOOLEAN NOT NULL DEFAULT TRUE,
    interval_minutes     INT NOT NULL DEFAULT 15,
    timeout_seconds      INT NOT NULL DEFAULT 300,
    last_run_status      VARCHAR(10) NOT NULL DEFAULT 'IDLE',
    last_run_time        TIMESTAMPTZ,
    next_run_time        TIMESTAMPTZ,
    error_log            TEXT NOT NULL DEFAULT '',
    last_run_items_count INT NOT NULL DEFAULT 0,
    total_items_count    BIGINT NOT NULL DEFAULT 0
)`

const newsArticlesDDL = `
CREATE TABLE IF NOT EXISTS news_articles (
    id            SERIAL PRIMARY KEY,
    url           TEXT NOT NULL UNIQUE,
    url_hash      BYTEA NOT NULL UNIQUE,
    title         TEXT NOT NULL,
    content       TEXT NOT NULL DEFAULT '',
    summary       TEXT NOT NULL DEFAULT '',
    author        TEXT NOT NULL DEFAULT '',
    source        TEXT NOT NULL,
    crawler_name  TEXT NOT NULL,
    category      TEXT NOT NULL DEFAULT '',
    sub_category  TEXT NOT NULL DEFAULT '',
    tags          JSONB NOT NULL DEFAULT '[]',
    published_at  TIMESTAMPTZ,
    crawled_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    raw_html      TEXT,
    images        JSONB NOT NULL DEFAULT '[]'
)`

const pendingUrlsDDL = `
CREATE TABLE IF NOT EXISTS pending_urls (
    id            SERIAL PRIMARY KEY,
    url           TEXT NOT NULL,
    url_hash      BYTEA NOT NULL UNIQUE,
    source        TEXT NOT NULL,
    crawler_name  TEXT NOT NULL,
    status        VARCHAR(10) NOT NULL DEFAULT 'PENDING',
    attempts      INT NOT NULL DEFAULT 0,
    leased_at     TIMESTAMPTZ,
    leased_by     TEXT NOT NULL DEFAULT '',
    discovered_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    last_error    TEXT NOT NULL DEFAULT ''
)`

const rawHTMLArchivesDDL = `
CREATE TABLE IF NOT EXISTS raw_html_archives (
    id              SERIAL PRIMARY KEY,
    article_id      INTEGER NOT NULL UNIQUE REFERENCES news_articles(id) ON DELETE CASCADE,
    archive_file    TEXT NOT NULL,
    offset_bytes    BIGINT NOT NULL DEFAULT 0,
    compressed_size BIGINT NOT NULL DEFAULT 0,
    status          VARCHAR(10) NOT NULL DEFAULT 'PENDING',
    archived_at     TIMESTAMPTZ
)`

const reparseJobsDDL = `
CREATE TABLE IF NOT EXISTS reparse_jobs (
    id              SERIAL PRIMARY KEY,
    status          VARCHAR(10) NOT NULL DEFAULT 'PENDING',
    total_articles  INT NOT NULL DEFAULT 0,
    processed_count INT NOT NULL DEFAULT 0,
    succeeded_count INT NOT NULL DEFAULT 0,
    failed_count    INT NOT NULL DEFAULT 0,
    cancelled       BOOLEAN NOT NULL DEFAULT FALSE,
    started_at      TIMESTAMPTZ,
    finished_at     TIMESTAMPTZ,
    error           TEXT NOT NULL DEFAULT ''
)`

const pipelineRunsDDL = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
    id                   SERIAL PRIMARY KEY,
    name                 TEXT NOT NULL,
    status               VARCHAR(10) NOT NULL DEFAULT 'PENDING',
    current_stage        VARCHAR(15) NOT NULL DEFAULT '',
    date_from            TIMESTAMPTZ,
    date_to              TIMESTAMPTZ,
    total_articles       INT NOT NULL DEFAULT 0,
    rule_filtered_count  INT NOT NULL DEFAULT 0,
    rule_passed_count    INT NOT NULL DEFAULT 0,
    analyzed_count       INT NOT NULL DEFAULT 0,
    force_included_count INT NOT NULL DEFAULT 0,
    batch_id             TEXT NOT NULL DEFAULT '',
    started_at           TIMESTAMPTZ,
    completed_at         TIMESTAMPTZ,
    error_log            TEXT NOT NULL DEFAULT ''
)`

const filterRulesDDL = `
CREATE TABLE IF NOT EXISTS filter_rules (
    id                    SERIAL PRIMARY KEY,
    name                  TEXT NOT NULL UNIQUE,
    description           TEXT NOT NULL DEFAULT '',
    rule_type             VARCHAR(10) NOT NULL CHECK (rule_type IN ('KEYWORD', 'PATTERN', 'CATEGORY', 'LLM')),
    is_active             BOOLEAN NOT NULL DEFAULT TRUE,
    config                JSONB NOT NULL DEFAULT '{}',
    total_filtered_count  BIGINT NOT NULL DEFAULT 0
)`

const forceIncludeArticlesDDL = `
CREATE TABLE IF NOT EXISTS force_include_articles (
    id         SERIAL PRIMARY KEY,
    article_id INTEGER NOT NULL UNIQUE REFERENCES news_articles(id) ON DELETE CASCADE,
    reason     TEXT NOT NULL DEFAULT '',
    added_by   TEXT NOT NULL DEFAULT ''
)`

const articleFilterResultsDDL = `
CREATE TABLE IF NOT EXISTS article_filter_results (
    id         SERIAL PRIMARY KEY,
    run_id     INTEGER NOT NULL REFERENCES pipeline_runs(id) ON DELETE CASCADE,
    article_id INTEGER NOT NULL REFERENCES news_articles(id) ON DELETE CASCADE,
    stage      VARCHAR(15) NOT NULL,
    decision   VARCHAR(15) NOT NULL CHECK (decision IN ('KEEP', 'FILTER', 'FORCE_INCLUDE')),
    confidence DOUBLE PRECISION,
    rule_name  TEXT NOT NULL DEFAULT '',
    reason     TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const articleAnalysisTrackingDDL = `
CREATE TABLE IF NOT EXISTS article_analysis_tracking (
    id            SERIAL PRIMARY KEY,
    article_id    INTEGER NOT NULL REFERENCES news_articles(id) ON DELETE CASCADE,
    batch_id      TEXT NOT NULL,
    status        VARCHAR(15) NOT NULL DEFAULT 'PENDING',
    result_json   JSONB,
    error_message TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (article_id, batch_id)
)`

// article_analysis_results is the immutable per-batch log of raw LLM outputs,
// kept separate from article_analysis_tracking (the mutable current-status
// row) so a completed batch's original payload survives tracking retries.
const articleAnalysisResultsDDL = `
CREATE TABLE IF NOT EXISTS article_analysis_results (
    id          SERIAL PRIMARY KEY,
    article_id  INTEGER NOT NULL REFERENCES news_articles(id) ON DELETE CASCADE,
    batch_id    TEXT NOT NULL,
    result_json JSONB NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const analyticalArticlesDDL = `
CREATE TABLE IF NOT EXISTS analytical_articles (
    id           SERIAL PRIMARY KEY,
    external_id  TEXT NOT NULL,
    title        TEXT NOT NULL,
    published_at TIMESTAMPTZ NOT NULL,
    source       TEXT NOT NULL DEFAULT ''
)`

const entitiesDDL = `
CREATE TABLE IF NOT EXISTS entities (
    id              SERIAL PRIMARY KEY,
    name            TEXT NOT NULL,
    name_normalized TEXT NOT NULL,
    type            TEXT NOT NULL,
    alias           TEXT NOT NULL DEFAULT '',
    UNIQUE (name_normalized, type)
)`

const eventsDDL = `
CREATE TABLE IF NOT EXISTS events (
    id               SERIAL PRIMARY KEY,
    name             TEXT NOT NULL,
    name_normalized  TEXT NOT NULL UNIQUE,
    topic_normalized TEXT NOT NULL DEFAULT '',
    type             TEXT NOT NULL,
    tags             JSONB NOT NULL DEFAULT '[]'
)`

const subEventsDDL = `
CREATE TABLE IF NOT EXISTS sub_events (
    id         SERIAL PRIMARY KEY,
    event_id   INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    name       TEXT NOT NULL,
    event_time TIMESTAMPTZ,
    UNIQUE (event_id, name)
)`

const articleEntitiesDDL = `
CREATE TABLE IF NOT EXISTS article_entities (
    article_id INTEGER NOT NULL REFERENCES analytical_articles(id) ON DELETE CASCADE,
    entity_id  INTEGER NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
    role       TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (article_id, entity_id, role)
)`

const articleEventsDDL = `
CREATE TABLE IF NOT EXISTS article_events (
    article_id   INTEGER NOT NULL REFERENCES analytical_articles(id) ON DELETE CASCADE,
    event_id     INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    published_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (published_at, article_id, event_id)
)`

const entityRelationsDDL = `
CREATE TABLE IF NOT EXISTS entity_relations (
    id             SERIAL PRIMARY KEY,
    from_entity_id INTEGER NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
    to_entity_id   INTEGER NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
    relation_type  TEXT NOT NULL,
    UNIQUE (from_entity_id, to_entity_id, relation_type)
)`

const eventRelationsDDL = `
CREATE TABLE IF NOT EXISTS event_relations (
    id             SERIAL PRIMARY KEY,
    from_event_id  INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    to_event_id    INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    relation_type  TEXT NOT NULL,
    UNIQUE (from_event_id, to_event_id, relation_type)
)`

var indexStatements = []string{
	`CREATE INDEX IF NOT EXISTS idx_news_articles_published_at ON news_articles(published_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_news_articles_source ON news_articles(source)`,
	`CREATE INDEX IF NOT EXISTS idx_pending_urls_status ON pending_urls(status)`,
	`CREATE INDEX IF NOT EXISTS idx_pending_urls_source_discovered ON pending_urls(source, discovered_at)`,
	`CREATE INDEX IF NOT EXISTS idx_article_filter_results_run ON article_filter_results(run_id)`,
	`CREATE INDEX IF NOT EXISTS idx_article_analysis_tracking_batch ON article_analysis_tracking(batch_id)`,
	`CREATE INDEX IF NOT EXISTS idx_article_analysis_tracking_status ON article_analysis_tracking(status)`,
	`CREATE INDEX IF NOT EXISTS idx_analytical_articles_external_id ON analytical_articles(external_id, published_at)`,
	`CREATE INDEX IF NOT EXISTS idx_entities_name_normalized ON entities(name_normalized)`,
}

// MigrateDown drops every table created by MigrateUp, children first, so
// referencing foreign keys never block a drop. Intended for test fixtures and
// disposable local databases, never for production use.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP TABLE IF EXISTS event_relations CASCADE`,
		`DROP TABLE IF EXISTS entity_relations CASCADE`,
		`DROP TABLE IF EXISTS article_events CASCADE`,
		`DROP TABLE IF EXISTS article_entities CASCADE`,
		`DROP TABLE IF EXISTS sub_events CASCADE`,
		`DROP TABLE IF EXISTS events CASCADE`,
		`DROP TABLE IF EXISTS entities CASCADE`,
		`DROP TABLE IF EXISTS analytical_articles CASCADE`,
		`DROP TABLE IF EXISTS article_analysis_results CASCADE`,
		`DROP TABLE IF EXISTS article_analysis_tracking CASCADE`,
		`DROP TABLE IF EXISTS article_filter_results CASCADE`,
		`DROP TABLE IF EXISTS force_include_articles CASCADE`,
		`DROP TABLE IF EXISTS filter_rules CASCADE`,
		`DROP TABLE IF EXISTS pipeline_runs CASCADE`,
		`DROP TABLE IF EXISTS reparse_jobs CASCADE`,
		`DROP TABLE IF EXISTS raw_html_archives CASCADE`,
		`DROP TABLE IF EXISTS pending_urls CASCADE`,
		`DROP TABLE IF EXISTS news_articles CASCADE`,
		`DROP TABLE IF EXISTS crawler_configs CASCADE`,
	}

	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
