package repository

import (
	"context"
	"time"

	"newsgraph/internal/domain/entity"
)

// ArticleSearchFilters contains optional filters for article search.
type ArticleSearchFilters struct {
	Source *string    // Optional: filter by source name
	From   *time.Time // Optional: articles published >= this date
	To     *time.Time // Optional: articles published <= this date
}

// ArticleRepository is the operational store interface for the C3 article
// store and every component that reads or writes crawled articles (C6, C4
// archive, C7 reparse, C8 pipeline stages).
type ArticleRepository interface {
	Create(ctx context.Context, article *entity.Article) (int64, error)
	Get(ctx context.Context, id int64) (*entity.Article, error)
	GetByURLHash(ctx context.Context, urlHash []byte) (*entity.Article, error)
	Search(ctx context.Context, keyword string) ([]*entity.Article, error)
	SearchWithFilters(ctx context.Context, keywords []string, filters ArticleSearchFilters) ([]*entity.Article, error)
	// ListByPublishedRange pages through articles in [from, to) ordered by
	// published_at DESC, for the RULE_FILTER stage's streaming pass.
	ListByPublishedRange(ctx context.Context, from, to *time.Time, offset, limit int) ([]*entity.Article, error)
	Update(ctx context.Context, article *entity.Article) error
	Delete(ctx context.Context, id int64) error
	ExistsByURLHash(ctx context.Context, urlHash []byte) (bool, error)
	// ExistsByURLHashBatch avoids N+1 existence checks when a list crawler or
	// article crawler emits many URLs at once.
	ExistsByURLHashBatch(ctx context.Context, urlHashes [][]byte) (map[string]bool, error)
	// ListArchivable returns up to limit articles for source whose raw HTML is
	// still in the operational store and whose crawled_at is before cutoff (if
	// non-nil), oldest crawled_at first, for the archive engine's batching pass.
	ListArchivable(ctx context.Context, source string, before *time.Time, limit int) ([]*entity.Article, error)
	// ListBySourceWithRawHTML pages through articles for source whose raw HTML
	// is still in the operational store, ordered by id ascending, for the
	// reparse worker's in-store pass. Unlike ListArchivable this is
	// offset-paginated: reparse overwrites parsed fields in place rather than
	// clearing raw_html, so the candidate set does not shrink as it iterates.
	ListBySourceWithRawHTML(ctx context.Context, source string, offset, limit int) ([]*entity.Article, error)
	// ClearRawHTML nils out an article's raw_html column once it has been
	// written to cold storage.
	ClearRawHTML(ctx context.Context, articleID int64) error
	// SetRawHTML writes html back into an article's raw_html column, for the
	// archive engine's Restore operation.
	SetRawHTML(ctx context.Context, articleID int64, html string) error
	// UpdateParsedFields overwrites the fields ParseHTML produces, for the
	// reparse worker's per-article commit.
	UpdateParsedFields(ctx context.Context, articleID int64, parsed *entity.Article) error
}
