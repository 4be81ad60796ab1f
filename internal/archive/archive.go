// Package archive implements the C4 cold-storage archival engine: it moves
// an article's raw HTML out of the operational store into gzipped batch
// files under <base>/raw_html/<source>/<YYYY-MM>/, tracked by a sibling
// manifest.json and by one ArchiveRecord per article.
package archive

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"newsgraph/internal/domain/entity"
	"newsgraph/internal/repository"
)

// DefaultBatchSize is how many articles' raw HTML are grouped into one
// batch file, per §4.3.
const DefaultBatchSize = 500

// batchArticle is one article's entry inside a batch_NNN.json.gz payload.
type batchArticle struct {
	ArticleID int64  `json:"article_id"`
	URLHash   string `json:"url_hash"`
	RawHTML   string `json:"raw_html"`
}

type batchPayload struct {
	Articles []batchArticle `json:"articles"`
}

// manifestEntry describes one finalized batch file for manifest.json.
type manifestEntry struct {
	File       string  `json:"file"`
	ArticleIDs []int64 `json:"article_ids"`
	Count      int     `json:"count"`
	CreatedAt  string  `json:"created_at"`
}

type manifestFile struct {
	Batches []manifestEntry `json:"batches"`
}

var batchFileRe = regexp.MustCompile(`^batch_(\d+)\.json\.gz$`)

// Selector picks which articles ArchiveSource considers, mirroring the
// spec's three modes: before_date (From nil, Before set), target_date
// (both set, spanning one day), and all (both nil).
type Selector struct {
	From   *time.Time
	Before *time.Time
}

// Engine is the archive engine. It is safe for concurrent use across
// distinct sources, since each source writes to its own directory and the
// scheduler serializes runs for a given source.
type Engine struct {
	baseDir   string
	batchSize int
	articles  repository.ArticleRepository
	archives  repository.ArchiveRepository
}

func NewEngine(baseDir string, batchSize int, articles repository.ArticleRepository, archives repository.ArchiveRepository) *Engine {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Engine{baseDir: baseDir, batchSize: batchSize, articles: articles, archives: archives}
}

// ArchiveSource selects source's articles whose raw_html is non-empty and
// not yet archived, matching sel, then writes them in fixed-size batches
// under <base>/raw_html/<source>/<YYYY-MM>/. Each batch is committed as a
// unit: write the gzip file, create its ArchiveRecords, clear raw_html,
// append the manifest entry. A failure after one batch leaves earlier
// batches intact, per the additive contract.
func (e *Engine) ArchiveSource(ctx context.Context, source string, sel Selector) (int, error) {
	total := 0
	for {
		candidates, err := e.articles.ListArchivable(ctx, source, sel.Before, e.batchSize)
		if err != nil {
			return total, fmt.Errorf("ArchiveSource: %w", err)
		}
		if len(candidates) == 0 {
			return total, nil
		}

		batch := candidates
		if sel.From != nil {
			batch = make([]*entity.Article, 0, len(candidates))
			for _, a := range candidates {
				if !a.CrawledAt.Before(*sel.From) {
					batch = append(batch, a)
				}
			}
		}

		exhausted := len(candidates) < e.batchSize
		if len(batch) == 0 {
			// Every candidate in this page is older than sel.From. Since
			// ListArchivable pages oldest-first with no lower bound, there is
			// no way to skip past them without risking refetching forever;
			// stop here and let a later before_date/all run catch them.
			return total, nil
		}

		if err := e.writeBatch(ctx, source, batch); err != nil {
			return total, fmt.Errorf("ArchiveSource: %w", err)
		}
		total += len(batch)
		if exhausted {
			return total, nil
		}
	}
}

func (e *Engine) writeBatch(ctx context.Context, source string, batch []*entity.Article) error {
	monthDir := filepath.Join(e.baseDir, "raw_html", source, time.Now().Format("2006-01"))
	if err := os.MkdirAll(monthDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", monthDir, err)
	}

	num, err := nextBatchNumber(monthDir)
	if err != nil {
		return err
	}
	fileName := fmt.Sprintf("batch_%03d.json.gz", num)
	fullPath := filepath.Join(monthDir, fileName)

	payload := batchPayload{Articles: make([]batchArticle, 0, len(batch))}
	articleIDs := make([]int64, 0, len(batch))
	for _, a := range batch {
		html := ""
		if a.RawHTML != nil {
			html = *a.RawHTML
		}
		payload.Articles = append(payload.Articles, batchArticle{
			ArticleID: a.ID,
			URLHash:   fmt.Sprintf("%x", a.URLHash),
			RawHTML:   html,
		})
		articleIDs = append(articleIDs, a.ID)
	}

	compressedSize, err := writeGzipJSON(fullPath, payload)
	if err != nil {
		return fmt.Errorf("write batch %s: %w", fullPath, err)
	}
	avgSize := compressedSize / int64(len(articleIDs))

	relPath := filepath.Join(source, time.Now().Format("2006-01"), fileName)
	for _, id := range articleIDs {
		if _, err := e.archives.Create(ctx, &entity.ArchiveRecord{
			ArticleID:   id,
			ArchiveFile: relPath,
			Status:      entity.ArchiveStatusPending,
		}); err != nil {
			return fmt.Errorf("create archive record for article %d: %w", id, err)
		}
		if err := e.archives.MarkArchived(ctx, id, relPath, 0, avgSize); err != nil {
			return fmt.Errorf("mark archived for article %d: %w", id, err)
		}
		if err := e.articles.ClearRawHTML(ctx, id); err != nil {
			return fmt.Errorf("clear raw_html for article %d: %w", id, err)
		}
	}

	return appendManifest(monthDir, manifestEntry{
		File:       fileName,
		ArticleIDs: articleIDs,
		Count:      len(articleIDs),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	})
}

// nextBatchNumber scans dir for existing batch_NNN.json.gz files and returns
// the next sequential number, never overwriting an existing file.
func nextBatchNumber(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read dir %s: %w", dir, err)
	}
	max := 0
	for _, entry := range entries {
		m := batchFileRe.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err == nil && n > max {
			max = n
		}
	}
	return max + 1, nil
}

// writeGzipJSON writes v as gzipped JSON to path and returns the resulting
// file's compressed size in bytes.
func writeGzipJSON(path string, v interface{}) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	gz := gzip.NewWriter(f)
	if err := json.NewEncoder(gz).Encode(v); err != nil {
		return 0, err
	}
	if err := gz.Close(); err != nil {
		return 0, err
	}

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func appendManifest(dir string, entry manifestEntry) error {
	path := filepath.Join(dir, "manifest.json")
	m := manifestFile{}
	if data, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(data, &m)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read manifest %s: %w", path, err)
	}
	m.Batches = append(m.Batches, entry)

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Restore groups articleIDs by their archive file, opens each file once,
// extracts each article's HTML, writes it back via SetRawHTML, and flips the
// record to ACTIVE. IDs with no archive record, or whose file is missing the
// id, count toward failed.
func (e *Engine) Restore(ctx context.Context, articleIDs []int64) (restored, failed int, err error) {
	byFile := make(map[string][]int64)
	for _, id := range articleIDs {
		rec, err := e.archives.GetByArticleID(ctx, id)
		if err != nil {
			return restored, failed, fmt.Errorf("Restore: %w", err)
		}
		if rec == nil {
			failed++
			continue
		}
		byFile[rec.ArchiveFile] = append(byFile[rec.ArchiveFile], id)
	}

	for file, ids := range byFile {
		payload, err := readGzipBatch(filepath.Join(e.baseDir, "raw_html", file))
		if err != nil {
			failed += len(ids)
			continue
		}
		htmlByID := make(map[int64]string, len(payload.Articles))
		for _, a := range payload.Articles {
			htmlByID[a.ArticleID] = a.RawHTML
		}
		for _, id := range ids {
			html, ok := htmlByID[id]
			if !ok {
				failed++
				continue
			}
			if err := e.articles.SetRawHTML(ctx, id, html); err != nil {
				failed++
				continue
			}
			if err := e.archives.MarkRestored(ctx, id); err != nil {
				failed++
				continue
			}
			restored++
		}
	}
	return restored, failed, nil
}

// GetRawHtmlFromArchive locates articleID's archive record, opens its batch
// file, and linearly scans for the article's HTML without restoring it,
// used by the reparse worker to re-derive parsed fields from cold storage.
func (e *Engine) GetRawHtmlFromArchive(ctx context.Context, articleID int64) (string, error) {
	rec, err := e.archives.GetByArticleID(ctx, articleID)
	if err != nil {
		return "", fmt.Errorf("GetRawHtmlFromArchive: %w", err)
	}
	if rec == nil {
		return "", entity.ErrNotFound
	}

	payload, err := readGzipBatch(filepath.Join(e.baseDir, "raw_html", rec.ArchiveFile))
	if err != nil {
		return "", fmt.Errorf("GetRawHtmlFromArchive: %w", err)
	}
	for _, a := range payload.Articles {
		if a.ArticleID == articleID {
			return a.RawHTML, nil
		}
	}
	return "", entity.ErrNotFound
}

func readGzipBatch(path string) (*batchPayload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer func() { _ = gz.Close() }()

	var payload batchPayload
	if err := json.NewDecoder(gz).Decode(&payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
