// Package executor implements the C6 crawl executor: per scheduled tick it
// loads a crawler's persisted configuration, marks it RUNNING for
// visibility, invokes the right kind of crawler, commits the effect (URL
// enqueue for LIST, article insert + queue transition for ARTICLE), and
// records the run's outcome.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"newsgraph/internal/crawler"
	"newsgraph/internal/domain/entity"
	"newsgraph/internal/queue"
	"newsgraph/internal/repository"
)

// DefaultArticleLeaseBatchSize bounds how many PendingUrl rows one ARTICLE
// tick leases at a time.
const DefaultArticleLeaseBatchSize = 20

// Executor runs one crawler tick end to end against the registry, the
// queue service, and the article store.
type Executor struct {
	registry   *crawler.Registry
	configs    repository.CrawlerConfigRepository
	queue      *queue.Service
	articles   repository.ArticleRepository
	logger     *slog.Logger
	leaseBatch int
}

func New(registry *crawler.Registry, configs repository.CrawlerConfigRepository, queueSvc *queue.Service, articles repository.ArticleRepository, logger *slog.Logger) *Executor {
	return &Executor{
		registry:   registry,
		configs:    configs,
		queue:      queueSvc,
		articles:   articles,
		logger:     logger,
		leaseBatch: DefaultArticleLeaseBatchSize,
	}
}

// RecoverFromCrash forces every RUNNING CrawlerConfig back to IDLE and every
// PROCESSING PendingUrl back to PENDING, per §4.5's startup crash-recovery
// step. PipelineRuns are left untouched; C8 owns its own recovery.
func (e *Executor) RecoverFromCrash(ctx context.Context) error {
	if _, err := e.configs.ResetStuckRunning(ctx); err != nil {
		return fmt.Errorf("RecoverFromCrash: reset stuck crawlers: %w", err)
	}
	if _, err := e.queue.ForceResetAllProcessing(ctx); err != nil {
		return fmt.Errorf("RecoverFromCrash: reset stuck leases: %w", err)
	}
	return nil
}

// Tick runs crawlerName's scheduled invocation to completion. It never
// returns an error for a crawler-side failure; those are recorded on the
// CrawlerConfig row itself (last_run_status = FAILED) and Tick returns nil,
// matching "any exception from the crawler is FAILED with the exception's
// text" rather than propagating to the scheduler.
func (e *Executor) Tick(ctx context.Context, crawlerName string) error {
	cfg, err := e.configs.GetByName(ctx, crawlerName)
	if err != nil {
		return fmt.Errorf("Tick(%s): load config: %w", crawlerName, err)
	}
	if cfg == nil {
		return fmt.Errorf("Tick(%s): no such crawler", crawlerName)
	}

	now := time.Now()
	if err := e.configs.MarkRunning(ctx, cfg.ID, now); err != nil {
		return fmt.Errorf("Tick(%s): mark running: %w", crawlerName, err)
	}

	tickCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	var (
		itemsCount int
		runErr     error
	)
	switch cfg.Kind {
	case entity.CrawlerKindList:
		itemsCount, runErr = e.tickList(tickCtx, cfg)
	case entity.CrawlerKindArticle:
		itemsCount, runErr = e.tickArticle(tickCtx, cfg)
	default:
		runErr = fmt.Errorf("unknown crawler kind %q", cfg.Kind)
	}

	status := entity.RunStatusSuccess
	errLog := ""
	if runErr != nil {
		status = entity.RunStatusFailed
		if errors.Is(runErr, context.DeadlineExceeded) {
			errLog = fmt.Sprintf("tick timed out after %ds", cfg.TimeoutSeconds)
		} else {
			errLog = runErr.Error()
		}
		e.logger.Error("crawler tick failed", slog.String("crawler", crawlerName), slog.String("error", errLog))
	}

	nextRun := time.Now().Add(time.Duration(cfg.IntervalMinutes) * time.Minute)
	if err := e.configs.MarkFinished(ctx, cfg.ID, status, itemsCount, nextRun, entity.TruncateErrorLog(errLog), time.Now()); err != nil {
		return fmt.Errorf("Tick(%s): mark finished: %w", crawlerName, err)
	}
	return nil
}

func (e *Executor) tickList(ctx context.Context, cfg *entity.CrawlerConfig) (int, error) {
	c, ok := e.registry.ListCrawlerByName(cfg.Name)
	if !ok {
		return 0, fmt.Errorf("no list crawler registered for %q", cfg.Name)
	}

	items, err := c.Discover(ctx, cfg.Source)
	if err != nil {
		return 0, fmt.Errorf("discover: %w", err)
	}

	urls := make([]string, 0, len(items))
	for _, item := range items {
		urls = append(urls, item.URL)
	}

	added, err := e.queue.AddURLs(ctx, urls, cfg.Source, cfg.Name)
	if err != nil {
		return 0, fmt.Errorf("enqueue discovered urls: %w", err)
	}
	return int(added), nil
}

func (e *Executor) tickArticle(ctx context.Context, cfg *entity.CrawlerConfig) (int, error) {
	c, ok := e.registry.ArticleCrawlerByName(cfg.Name)
	if !ok {
		return 0, fmt.Errorf("no article crawler registered for %q", cfg.Name)
	}

	leased, err := e.queue.LeaseURLs(ctx, cfg.Source, cfg.Name, e.leaseBatch)
	if err != nil {
		return 0, fmt.Errorf("lease urls: %w", err)
	}
	if len(leased) == 0 {
		return 0, nil
	}

	fetched := 0
	for _, pending := range leased {
		article, fetchErr := c.FetchArticle(ctx, pending.URL)
		if fetchErr != nil {
			if markErr := e.queue.MarkFailed(ctx, pending.ID, fetchErr.Error()); markErr != nil {
				e.logger.Error("mark failed error", slog.Int64("pending_url_id", pending.ID), slog.Any("error", markErr))
			}
			continue
		}

		if _, createErr := e.articles.Create(ctx, article); createErr != nil {
			if markErr := e.queue.MarkFailed(ctx, pending.ID, createErr.Error()); markErr != nil {
				e.logger.Error("mark failed error", slog.Int64("pending_url_id", pending.ID), slog.Any("error", markErr))
			}
			continue
		}

		if err := e.queue.MarkCompleted(ctx, pending.ID); err != nil {
			e.logger.Error("mark completed error", slog.Int64("pending_url_id", pending.ID), slog.Any("error", err))
			continue
		}
		fetched++
	}
	return fetched, nil
}
