// Package postgres provides PostgreSQL implementations of repository interfaces.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"newsgraph/internal/domain/entity"
	"newsgraph/internal/repository"

	"github.com/lib/pq"
)

type ArticleRepo struct{ db *sql.DB }

func NewArticleRepo(db *sql.DB) repository.ArticleRepository {
	return &ArticleRepo{db: db}
}

const articleColumns = `id, url, url_hash, title, content, summary, author, source,
	crawler_name, category, sub_category, tags, published_at, crawled_at, raw_html, images`

func scanArticle(row interface{ Scan(...interface{}) error }) (*entity.Article, error) {
	var a entity.Article
	var tagsJSON, imagesJSON []byte
	err := row.Scan(&a.ID, &a.URL, &a.URLHash, &a.Title, &a.Content, &a.Summary, &a.Author,
		&a.Source, &a.CrawlerName, &a.Category, &a.SubCategory, &tagsJSON, &a.PublishedAt,
		&a.CrawledAt, &a.RawHTML, &imagesJSON)
	if err != nil {
		return nil, err
	}
	a.Tags = decodeStringList(tagsJSON)
	a.Images = decodeStringList(imagesJSON)
	return &a, nil
}

// decodeStringList tolerates reading either a JSON array or a legacy
// comma-separated string, per the Article doc comment's read contract.
func decodeStringList(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	s := strings.Trim(string(raw), `"`)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func encodeStringList(list []string) []byte {
	if list == nil {
		list = []string{}
	}
	b, _ := json.Marshal(list)
	return b
}

func (repo *ArticleRepo) Create(ctx context.Context, a *entity.Article) (int64, error) {
	const query = `
INSERT INTO news_articles
	(url, url_hash, title, content, summary, author, source, crawler_name,
	 category, sub_category, tags, published_at, crawled_at, raw_html, images)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
RETURNING id`
	var id int64
	err := repo.db.QueryRowContext(ctx, query,
		a.URL, a.URLHash, a.Title, a.Content, a.Summary, a.Author, a.Source, a.CrawlerName,
		a.Category, a.SubCategory, encodeStringList(a.Tags), a.PublishedAt, a.CrawledAt,
		a.RawHTML, encodeStringList(a.Images),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("Create: %w", err)
	}
	return id, nil
}

func (repo *ArticleRepo) Get(ctx context.Context, id int64) (*entity.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM news_articles WHERE id = $1`
	a, err := scanArticle(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return a, nil
}

func (repo *ArticleRepo) GetByURLHash(ctx context.Context, urlHash []byte) (*entity.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM news_articles WHERE url_hash = $1`
	a, err := scanArticle(repo.db.QueryRowContext(ctx, query, urlHash))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByURLHash: %w", err)
	}
	return a, nil
}

func (repo *ArticleRepo) queryArticles(ctx context.Context, query string, args ...interface{}) ([]*entity.Article, error) {
	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	articles := make([]*entity.Article, 0, 100)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func (repo *ArticleRepo) Search(ctx context.Context, keyword string) ([]*entity.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM news_articles
WHERE title ILIKE $1 OR summary ILIKE $1
ORDER BY published_at DESC`
	articles, err := repo.queryArticles(ctx, query, "%"+escapeILIKE(keyword)+"%")
	if err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}
	return articles, nil
}

func (repo *ArticleRepo) SearchWithFilters(ctx context.Context, keywords []string, filters repository.ArticleSearchFilters) ([]*entity.Article, error) {
	if len(keywords) == 0 {
		return []*entity.Article{}, nil
	}

	var whereClauses []string
	var args []interface{}
	paramIndex := 1

	for _, keyword := range keywords {
		whereClauses = append(whereClauses, fmt.Sprintf("(title ILIKE $%d OR summary ILIKE $%d)", paramIndex, paramIndex))
		args = append(args, "%"+escapeILIKE(keyword)+"%")
		paramIndex++
	}
	if filters.Source != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("source = $%d", paramIndex))
		args = append(args, *filters.Source)
		paramIndex++
	}
	if filters.From != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("published_at >= $%d", paramIndex))
		args = append(args, *filters.From)
		paramIndex++
	}
	if filters.To != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("published_at <= $%d", paramIndex))
		args = append(args, *filters.To)
	}

	query := `SELECT ` + articleColumns + ` FROM news_articles
WHERE ` + strings.Join(whereClauses, " AND ") + `
ORDER BY published_at DESC`

	articles, err := repo.queryArticles(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("SearchWithFilters: %w", err)
	}
	return articles, nil
}

func (repo *ArticleRepo) ListByPublishedRange(ctx context.Context, from, to *time.Time, offset, limit int) ([]*entity.Article, error) {
	var whereClauses []string
	var args []interface{}
	paramIndex := 1

	if from != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("published_at >= $%d", paramIndex))
		args = append(args, *from)
		paramIndex++
	}
	if to != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("published_at < $%d", paramIndex))
		args = append(args, *to)
		paramIndex++
	}

	where := ""
	if len(whereClauses) > 0 {
		where = "WHERE " + strings.Join(whereClauses, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s FROM news_articles %s ORDER BY published_at DESC LIMIT $%d OFFSET $%d`,
		articleColumns, where, paramIndex, paramIndex+1)
	args = append(args, limit, offset)

	articles, err := repo.queryArticles(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListByPublishedRange: %w", err)
	}
	return articles, nil
}

func (repo *ArticleRepo) Update(ctx context.Context, a *entity.Article) error {
	const query = `
UPDATE news_articles SET
	title = $1, content = $2, summary = $3, author = $4, category = $5,
	sub_category = $6, tags = $7, published_at = $8, images = $9
WHERE id = $10`
	res, err := repo.db.ExecContext(ctx, query,
		a.Title, a.Content, a.Summary, a.Author, a.Category, a.SubCategory,
		encodeStringList(a.Tags), a.PublishedAt, encodeStringList(a.Images), a.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Update: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *ArticleRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM news_articles WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("Delete: %w", entity.ErrNotFound)
	}
	return nil
}

func (repo *ArticleRepo) ExistsByURLHash(ctx context.Context, urlHash []byte) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM news_articles WHERE url_hash = $1)`
	var existsFlag bool
	err := repo.db.QueryRowContext(ctx, query, urlHash).Scan(&existsFlag)
	if err != nil {
		return false, fmt.Errorf("ExistsByURLHash: %w", err)
	}
	return existsFlag, nil
}

// ExistsByURLHashBatch avoids an N+1 existence check when the caller has many
// URL hashes to verify (a list crawler's page of discovered links).
func (repo *ArticleRepo) ExistsByURLHashBatch(ctx context.Context, urlHashes [][]byte) (map[string]bool, error) {
	if len(urlHashes) == 0 {
		return make(map[string]bool), nil
	}

	const query = `SELECT url_hash FROM news_articles WHERE url_hash = ANY($1)`
	rows, err := repo.db.QueryContext(ctx, query, pq.Array(urlHashes))
	if err != nil {
		return nil, fmt.Errorf("ExistsByURLHashBatch: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]bool)
	for rows.Next() {
		var hash []byte
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("ExistsByURLHashBatch: Scan: %w", err)
		}
		result[string(hash)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ExistsByURLHashBatch: rows.Err: %w", err)
	}
	return result, nil
}

func (repo *ArticleRepo) ListArchivable(ctx context.Context, source string, before *time.Time, limit int) ([]*entity.Article, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + articleColumns + ` FROM news_articles
WHERE raw_html IS NOT NULL AND raw_html <> '' AND source = $1`)
	args := []interface{}{source}
	if before != nil {
		args = append(args, *before)
		sb.WriteString(fmt.Sprintf(" AND crawled_at < $%d", len(args)))
	}
	args = append(args, limit)
	sb.WriteString(fmt.Sprintf(" ORDER BY crawled_at ASC LIMIT $%d", len(args)))

	articles, err := repo.queryArticles(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("ListArchivable: %w", err)
	}
	return articles, nil
}

func (repo *ArticleRepo) ListBySourceWithRawHTML(ctx context.Context, source string, offset, limit int) ([]*entity.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM news_articles
WHERE raw_html IS NOT NULL AND raw_html <> '' AND source = $1
ORDER BY id ASC LIMIT $2 OFFSET $3`

	articles, err := repo.queryArticles(ctx, query, source, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ListBySourceWithRawHTML: %w", err)
	}
	return articles, nil
}

func (repo *ArticleRepo) ClearRawHTML(ctx context.Context, articleID int64) error {
	const query = `UPDATE news_articles SET raw_html = NULL WHERE id = $1`
	_, err := repo.db.ExecContext(ctx, query, articleID)
	if err != nil {
		return fmt.Errorf("ClearRawHTML: %w", err)
	}
	return nil
}

func (repo *ArticleRepo) SetRawHTML(ctx context.Context, articleID int64, html string) error {
	const query = `UPDATE news_articles SET raw_html = $1 WHERE id = $2`
	_, err := repo.db.ExecContext(ctx, query, html, articleID)
	if err != nil {
		return fmt.Errorf("SetRawHTML: %w", err)
	}
	return nil
}

func (repo *ArticleRepo) UpdateParsedFields(ctx context.Context, articleID int64, parsed *entity.Article) error {
	const query = `
UPDATE news_articles SET
	title = $1, content = $2, summary = $3, author = $4, category = $5,
	sub_category = $6, tags = $7, published_at = $8, images = $9
WHERE id = $10`
	res, err := repo.db.ExecContext(ctx, query,
		parsed.Title, parsed.Content, parsed.Summary, parsed.Author, parsed.Category,
		parsed.SubCategory, encodeStringList(parsed.Tags), parsed.PublishedAt,
		encodeStringList(parsed.Images), articleID,
	)
	if err != nil {
		return fmt.Errorf("UpdateParsedFields: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("UpdateParsedFields: %w", entity.ErrNotFound)
	}
	return nil
}

// escapeILIKE escapes ILIKE metacharacters so user-supplied search terms
// cannot inject wildcard behavior.
func escapeILIKE(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
