package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"newsgraph/internal/domain/entity"
	"newsgraph/internal/repository"
)

type ArchiveRepo struct{ db *sql.DB }

func NewArchiveRepo(db *sql.DB) repository.ArchiveRepository {
	return &ArchiveRepo{db: db}
}

const archiveColumns = `id, article_id, archive_file, offset_bytes, compressed_size, status, archived_at`

func scanArchiveRecord(row interface{ Scan(...interface{}) error }) (*entity.ArchiveRecord, error) {
	var a entity.ArchiveRecord
	if err := row.Scan(
		&a.ID, &a.ArticleID, &a.ArchiveFile, &a.OffsetBytes, &a.CompressedSize, &a.Status, &a.ArchivedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

func (repo *ArchiveRepo) Create(ctx context.Context, rec *entity.ArchiveRecord) (int64, error) {
	const query = `
INSERT INTO raw_html_archives (article_id, archive_file, offset_bytes, compressed_size, status)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`
	var id int64
	err := repo.db.QueryRowContext(ctx, query,
		rec.ArticleID, rec.ArchiveFile, rec.OffsetBytes, rec.CompressedSize, rec.Status,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("Create: %w", err)
	}
	return id, nil
}

func (repo *ArchiveRepo) GetByArticleID(ctx context.Context, articleID int64) (*entity.ArchiveRecord, error) {
	query := `SELECT ` + archiveColumns + ` FROM raw_html_archives WHERE article_id = $1`
	row := repo.db.QueryRowContext(ctx, query, articleID)
	a, err := scanArchiveRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByArticleID: %w", err)
	}
	return a, nil
}

func (repo *ArchiveRepo) MarkArchived(ctx context.Context, articleID int64, archiveFile string, offsetBytes, compressedSize int64) error {
	const query = `
UPDATE raw_html_archives SET
       archive_file    = $1,
       offset_bytes    = $2,
       compressed_size = $3,
       status          = 'ARCHIVED',
       archived_at     = $4
WHERE article_id = $5`
	res, err := repo.db.ExecContext(ctx, query, archiveFile, offsetBytes, compressedSize, time.Now(), articleID)
	if err != nil {
		return fmt.Errorf("MarkArchived: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("MarkArchived: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *ArchiveRepo) MarkFailed(ctx context.Context, articleID int64) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE raw_html_archives SET status = 'FAILED' WHERE article_id = $1`, articleID)
	if err != nil {
		return fmt.Errorf("MarkFailed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("MarkFailed: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *ArchiveRepo) MarkRestored(ctx context.Context, articleID int64) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE raw_html_archives SET status = 'ACTIVE' WHERE article_id = $1`, articleID)
	if err != nil {
		return fmt.Errorf("MarkRestored: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("MarkRestored: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *ArchiveRepo) ListByArchiveFile(ctx context.Context, archiveFile string) ([]*entity.ArchiveRecord, error) {
	query := `SELECT ` + archiveColumns + ` FROM raw_html_archives WHERE archive_file = $1 ORDER BY offset_bytes ASC`
	rows, err := repo.db.QueryContext(ctx, query, archiveFile)
	if err != nil {
		return nil, fmt.Errorf("ListByArchiveFile: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]*entity.ArchiveRecord, 0, 16)
	for rows.Next() {
		a, err := scanArchiveRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByArchiveFile: %w", err)
		}
		records = append(records, a)
	}
	return records, rows.Err()
}

func (repo *ArchiveRepo) ListArchivedBySource(ctx context.Context, source string) ([]*entity.ArchiveRecord, error) {
	const query = `
SELECT a.id, a.article_id, a.archive_file, a.offset_bytes, a.compressed_size, a.status, a.archived_at
FROM raw_html_archives a
JOIN news_articles n ON n.id = a.article_id
WHERE a.status = 'ARCHIVED' AND n.source = $1
ORDER BY a.id ASC`
	rows, err := repo.db.QueryContext(ctx, query, source)
	if err != nil {
		return nil, fmt.Errorf("ListArchivedBySource: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]*entity.ArchiveRecord, 0, 16)
	for rows.Next() {
		a, err := scanArchiveRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("ListArchivedBySource: %w", err)
		}
		records = append(records, a)
	}
	return records, rows.Err()
}
