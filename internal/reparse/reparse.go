// Package reparse implements the C7 bulk reparse worker: it replays a
// source's article crawler's pure ParseHTML extraction over HTML already
// sitting in the operational store and in cold storage, overwriting parsed
// fields in place without issuing a single network request.
package reparse

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"newsgraph/internal/archive"
	"newsgraph/internal/crawler"
	"newsgraph/internal/domain/entity"
	"newsgraph/internal/repository"
)

// commitEvery is the progress-commit and cancellation-check cadence: a crash
// mid-job loses at most this many articles of in-flight progress.
const commitEvery = 10

// maxErrorLines bounds the completion error log to the first N failure
// lines, matching the 100-line budget from §4.6.
const maxErrorLines = 100

// pageSize is how many in-store articles ListBySourceWithRawHTML returns per
// page while the worker iterates.
const pageSize = 100

// Worker runs StartReparse's background job. One Worker instance may drive
// many jobs concurrently; each job gets its own goroutine and cancellation
// flag.
type Worker struct {
	registry *crawler.Registry
	jobs     repository.ReparseRepository
	articles repository.ArticleRepository
	archives repository.ArchiveRepository
	engine   *archive.Engine
	logger   *slog.Logger

	mu          sync.Mutex
	cancelFlags map[int64]*int32
}

func NewWorker(registry *crawler.Registry, jobs repository.ReparseRepository, articles repository.ArticleRepository, archives repository.ArchiveRepository, engine *archive.Engine, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		registry:    registry,
		jobs:        jobs,
		articles:    articles,
		archives:    archives,
		engine:      engine,
		logger:      logger,
		cancelFlags: make(map[int64]*int32),
	}
}

// StartReparse sizes a new ReparseJob from a preview count of source's
// candidate articles (in-store plus archived), creates it PENDING, and
// spawns the worker goroutine. It returns immediately with the job id.
func (w *Worker) StartReparse(ctx context.Context, source string) (int64, error) {
	if _, ok := w.registry.ArticleCrawlerBySource(source); !ok {
		return 0, fmt.Errorf("reparse: no article crawler registered for source %q", source)
	}

	total, err := w.previewCount(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("StartReparse: preview count: %w", err)
	}

	now := time.Now()
	id, err := w.jobs.Create(ctx, &entity.ReparseJob{
		Status:        entity.ReparseStatusPending,
		TotalArticles: total,
		StartedAt:     &now,
	})
	if err != nil {
		return 0, fmt.Errorf("StartReparse: %w", err)
	}

	flag := new(int32)
	w.mu.Lock()
	w.cancelFlags[id] = flag
	w.mu.Unlock()

	go w.run(context.Background(), id, source, flag)
	return id, nil
}

// previewCount sums the in-store-with-raw-html count and the archived count
// for source, so TotalArticles reflects both passes the worker will make.
func (w *Worker) previewCount(ctx context.Context, source string) (int, error) {
	total := 0
	offset := 0
	for {
		page, err := w.articles.ListBySourceWithRawHTML(ctx, source, offset, pageSize)
		if err != nil {
			return 0, err
		}
		total += len(page)
		if len(page) < pageSize {
			break
		}
		offset += pageSize
	}

	archived, err := w.archives.ListArchivedBySource(ctx, source)
	if err != nil {
		return 0, err
	}
	total += len(archived)
	return total, nil
}

func (w *Worker) run(ctx context.Context, jobID int64, source string, cancelFlag *int32) {
	if err := w.jobs.UpdateStatus(ctx, jobID, entity.ReparseStatusRunning, ""); err != nil {
		w.logger.Error("reparse: failed to mark job running", slog.Int64("job_id", jobID), slog.Any("error", err))
	}

	articleCrawler, ok := w.registry.ArticleCrawlerBySource(source)
	if !ok {
		w.finish(ctx, jobID, entity.ReparseStatusFailed, 0, 0, []string{fmt.Sprintf("no article crawler registered for source %q", source)})
		return
	}

	processed, succeeded := 0, 0
	var failLines []string
	cancelled := false

	commit := func() {
		if err := w.jobs.UpdateProgress(ctx, jobID, processed, succeeded, processed-succeeded); err != nil {
			w.logger.Error("reparse: failed to commit progress", slog.Int64("job_id", jobID), slog.Any("error", err))
		}
	}

	checkCancelled := func() bool {
		if atomic.LoadInt32(cancelFlag) != 0 {
			return true
		}
		isCancelled, err := w.jobs.IsCancelled(ctx, jobID)
		if err != nil {
			return false
		}
		return isCancelled
	}

	// Pass 1: in-store articles with raw_html present. Offset-paginated
	// because UpdateParsedFields overwrites in place without clearing
	// raw_html, so the candidate set never shrinks under us.
	offset := 0
pass1:
	for {
		page, err := w.articles.ListBySourceWithRawHTML(ctx, source, offset, pageSize)
		if err != nil {
			failLines = append(failLines, fmt.Sprintf("list in-store page at offset %d: %v", offset, err))
			break
		}
		if len(page) == 0 {
			break
		}
		for _, a := range page {
			if checkCancelled() {
				cancelled = true
				break pass1
			}
			raw := ""
			if a.RawHTML != nil {
				raw = *a.RawHTML
			}
			if err := w.reparseOne(ctx, articleCrawler, a.ID, raw, a.URL); err != nil {
				failLines = append(failLines, fmt.Sprintf("article %d: %v", a.ID, err))
			} else {
				succeeded++
			}
			processed++
			if processed%commitEvery == 0 {
				commit()
			}
		}
		if len(page) < pageSize {
			break
		}
		offset += pageSize
	}

	// Pass 2: cold-storage articles, skipped entirely if cancelled mid pass 1.
	if !cancelled {
		records, err := w.archives.ListArchivedBySource(ctx, source)
		if err != nil {
			failLines = append(failLines, fmt.Sprintf("list archived records: %v", err))
		}
		for _, rec := range records {
			if checkCancelled() {
				cancelled = true
				break
			}
			html, err := w.engine.GetRawHtmlFromArchive(ctx, rec.ArticleID)
			if err != nil {
				failLines = append(failLines, fmt.Sprintf("article %d: read archive: %v", rec.ArticleID, err))
				processed++
				if processed%commitEvery == 0 {
					commit()
				}
				continue
			}
			a, err := w.articles.Get(ctx, rec.ArticleID)
			if err != nil || a == nil {
				failLines = append(failLines, fmt.Sprintf("article %d: lookup: %v", rec.ArticleID, err))
				processed++
				if processed%commitEvery == 0 {
					commit()
				}
				continue
			}
			if err := w.reparseOne(ctx, articleCrawler, rec.ArticleID, html, a.URL); err != nil {
				failLines = append(failLines, fmt.Sprintf("article %d: %v", rec.ArticleID, err))
			} else {
				succeeded++
			}
			processed++
			if processed%commitEvery == 0 {
				commit()
			}
		}
	}

	commit()

	status := entity.ReparseStatusCompleted
	if cancelled {
		status = entity.ReparseStatusCancelled
	}
	w.finish(ctx, jobID, status, processed, succeeded, failLines)
}

func (w *Worker) reparseOne(ctx context.Context, c crawler.ArticleCrawler, articleID int64, html, url string) error {
	parsed, err := c.ParseHTML(html, url)
	if err != nil {
		return err
	}
	return w.articles.UpdateParsedFields(ctx, articleID, parsed)
}

func (w *Worker) finish(ctx context.Context, jobID int64, status entity.ReparseStatus, processed, succeeded int, failLines []string) {
	w.mu.Lock()
	delete(w.cancelFlags, jobID)
	w.mu.Unlock()
	if err := w.jobs.UpdateProgress(ctx, jobID, processed, succeeded, processed-succeeded); err != nil {
		w.logger.Error("reparse: failed to commit final progress", slog.Int64("job_id", jobID), slog.Any("error", err))
	}

	errLog := ""
	if len(failLines) > 0 {
		lines := failLines
		if len(lines) > maxErrorLines {
			lines = lines[:maxErrorLines]
		}
		errLog = entity.TruncateErrorLog(strings.Join(lines, "\n"))
	}
	if err := w.jobs.UpdateStatus(ctx, jobID, status, errLog); err != nil {
		w.logger.Error("reparse: failed to mark job finished", slog.Int64("job_id", jobID), slog.Any("error", err))
	}
}

// GetJobStatus returns the job's current counters and progress fraction.
func (w *Worker) GetJobStatus(ctx context.Context, jobID int64) (*entity.ReparseJob, error) {
	job, err := w.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("GetJobStatus: %w", err)
	}
	if job == nil {
		return nil, entity.ErrNotFound
	}
	return job, nil
}

// CancelJob sets the cooperative cancellation flag. The worker observes it
// at the next iteration boundary (at most commitEvery articles later) and
// exits as CANCELLED.
func (w *Worker) CancelJob(ctx context.Context, jobID int64) error {
	w.mu.Lock()
	flag, ok := w.cancelFlags[jobID]
	w.mu.Unlock()
	if ok {
		atomic.StoreInt32(flag, 1)
	}
	return w.jobs.RequestCancel(ctx, jobID)
}
