package repository

import (
	"context"

	"newsgraph/internal/domain/entity"
)

// ArchiveRepository is the C4 archive engine's persistence interface for
// raw_html_archives, the index from an article to its cold-storage location.
type ArchiveRepository interface {
	Create(ctx context.Context, rec *entity.ArchiveRecord) (int64, error)
	GetByArticleID(ctx context.Context, articleID int64) (*entity.ArchiveRecord, error)
	MarkArchived(ctx context.Context, articleID int64, archiveFile string, offsetBytes, compressedSize int64) error
	MarkFailed(ctx context.Context, articleID int64) error
	// MarkRestored flips a record to ACTIVE once Restore has copied its HTML
	// back into the operational article row.
	MarkRestored(ctx context.Context, articleID int64) error
	ListByArchiveFile(ctx context.Context, archiveFile string) ([]*entity.ArchiveRecord, error)
	// ListArchivedBySource returns every ARCHIVED record for source, joined
	// against news_articles since ArchiveRecord carries no source column of
	// its own, for the reparse worker's cold-storage pass.
	ListArchivedBySource(ctx context.Context, source string) ([]*entity.ArchiveRecord, error)
}
