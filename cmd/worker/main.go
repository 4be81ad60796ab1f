package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/robfig/cron/v3"

	"newsgraph/internal/archive"
	"newsgraph/internal/crawler"
	"newsgraph/internal/executor"
	pgRepo "newsgraph/internal/infra/adapter/persistence/postgres"
	"newsgraph/internal/infra/db"
	"newsgraph/internal/infra/fetcher"
	workerPkg "newsgraph/internal/infra/worker"
	"newsgraph/internal/observability/logging"
	"newsgraph/internal/queue"
	"newsgraph/internal/repository"
	"newsgraph/internal/scheduler"
)

func waitForMigrations(logger *slog.Logger, db *sql.DB) {
	const probe = "SELECT 1 FROM news_articles LIMIT 1"
	for i := 0; i < 10; i++ {
		if _, err := db.Exec(probe); err == nil {
			return
		}
		logger.Info("waiting for migrations, retrying in 3s", slog.Int("attempt", i+1))
		time.Sleep(3 * time.Second)
	}
	logger.Error("migrations did not complete in time")
	os.Exit(1)
}

// main wires the long-running worker process: registry sync (C1), crash
// recovery (C2 + CrawlerConfig RUNNING->IDLE), the scheduler (C5) driving
// the crawl executor (C6), the nightly archive pass (C4), and the
// Prometheus/health HTTP servers. Pipeline runs (C8) and reparse jobs (C7)
// are operator-initiated through cmd/pipeline and cmd/reparse, not here.
func main() {
	logger := initLogger()
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.String("timezone", workerConfig.Timezone),
		slog.String("maintenance_schedule", workerConfig.CronSchedule),
		slog.String("archive_base_dir", workerConfig.ArchiveBaseDir),
		slog.Int("archive_batch_size", workerConfig.ArchiveBatchSize),
		slog.Int("health_port", workerConfig.HealthPort))

	startMetricsServer(ctx, logger)

	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	repos := newRepositories(database)

	registry := buildRegistry(logger)
	for _, syncErr := range registry.Sync(ctx, repos.crawlerConfigs) {
		logger.Error("crawler registry sync error", slog.Any("error", syncErr))
	}

	queueSvc := queue.NewService(repos.queue, repos.articles)
	exec := executor.New(registry, repos.crawlerConfigs, queueSvc, repos.articles, logger)
	if err := exec.RecoverFromCrash(ctx); err != nil {
		logger.Error("crash recovery failed", slog.Any("error", err))
	}

	sched := startCrawlerSchedule(ctx, logger, workerConfig, repos.crawlerConfigs, exec)
	defer sched.Stop()

	archiveEngine := archive.NewEngine(workerConfig.ArchiveBaseDir, workerConfig.ArchiveBatchSize, repos.articles, repos.archives)
	startMaintenanceCron(logger, workerConfig, archiveEngine, repos)

	healthServer.SetReady(true)
	logger.Info("worker started")
	select {}
}

// initLogger initializes and returns a structured logger based on environment configuration.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

// initDatabase opens the database connection and waits for migrations to complete.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	waitForMigrations(logger, database)
	return database
}

// repositories bundles every postgres repository the worker wires, so the
// various subsystem constructors don't each need their own long parameter
// list of *sql.DB-derived repos.
type repositories struct {
	crawlerConfigs repository.CrawlerConfigRepository
	articles       repository.ArticleRepository
	queue          repository.QueueRepository
	archives       repository.ArchiveRepository
}

func newRepositories(database *sql.DB) *repositories {
	return &repositories{
		crawlerConfigs: pgRepo.NewCrawlerConfigRepo(database),
		articles:       pgRepo.NewArticleRepo(database),
		queue:          pgRepo.NewQueueRepo(database),
		archives:       pgRepo.NewArchiveRepo(database),
	}
}

// createHTTPClient creates an HTTP client with timeouts and connection pooling.
// TLS 1.2+ is enforced for security.
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// buildRegistry constructs the C1 crawler registry from the crawlers compiled
// into this process. Adding a new source means adding one entry here and
// redeploying; Registry.Sync then reconciles CrawlerConfig rows at startup.
func buildRegistry(logger *slog.Logger) *crawler.Registry {
	client := createHTTPClient()

	contentCfg, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("failed to load content fetch configuration, using defaults", slog.Any("error", err))
		contentCfg = fetcher.DefaultConfig()
	}

	listCrawlers := []crawler.ListCrawler{
		crawler.NewRSSListCrawler("techcrunch-list", "TechCrunch", "techcrunch", 15, 30, client),
		crawler.NewRSSListCrawler("theverge-list", "The Verge", "theverge", 15, 30, client),
	}

	articleCrawlers := []crawler.ArticleCrawler{
		crawler.NewReadabilityArticleCrawler("techcrunch-article", "TechCrunch", "techcrunch", 5, 30, contentCfg),
		crawler.NewReadabilityArticleCrawler("theverge-article", "The Verge", "theverge", 5, 30, contentCfg),
	}

	return crawler.NewRegistry(listCrawlers, articleCrawlers)
}

// startCrawlerSchedule registers one scheduler job per active CrawlerConfig row,
// ticking at the interval persisted on that row, and starts the scheduler.
// This generalizes the teacher's single daily cron.New+AddFunc job
// (historically startCronWorker) to N independently managed schedules.
func startCrawlerSchedule(ctx context.Context, logger *slog.Logger, cfg *workerPkg.WorkerConfig, configs repository.CrawlerConfigRepository, exec *executor.Executor) *scheduler.Scheduler {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	sched := scheduler.New(loc, logger)

	active, err := configs.ListActive(ctx)
	if err != nil {
		logger.Error("failed to list active crawlers, scheduler starting with no jobs", slog.Any("error", err))
		active = nil
	}

	for _, c := range active {
		name := c.Name
		if err := sched.AddJob(name, c.IntervalMinutes, func(tickCtx context.Context) {
			if err := exec.Tick(tickCtx, name); err != nil {
				logger.Error("crawler tick failed", slog.String("crawler", name), slog.Any("error", err))
			}
		}); err != nil {
			logger.Error("failed to schedule crawler", slog.String("crawler", name), slog.Any("error", err))
		}
	}

	sched.Start()
	logger.Info("crawler schedule started", slog.Int("jobs", len(active)))
	return sched
}

// startMaintenanceCron runs the nightly cold-storage sweep (C4) on
// cfg.CronSchedule, reusing the teacher's single robfig/cron job shape
// directly (one fixed daily schedule for one job), unlike
// internal/scheduler's N-per-crawler jobs.
func startMaintenanceCron(logger *slog.Logger, cfg *workerPkg.WorkerConfig, engine *archive.Engine, repos *repositories) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(cfg.CronSchedule, func() {
		runMaintenancePass(logger, cfg, engine, repos)
	})
	if err != nil {
		logger.Error("failed to schedule maintenance pass", slog.Any("error", err))
		return
	}
	c.Start()
	logger.Info("maintenance cron started", slog.String("schedule", cfg.CronSchedule))
}

// runMaintenancePass archives every active crawler's source's articles
// older than a month, once per source per run.
func runMaintenancePass(logger *slog.Logger, cfg *workerPkg.WorkerConfig, engine *archive.Engine, repos *repositories) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.CrawlTimeout)
	defer cancel()

	active, err := repos.crawlerConfigs.ListActive(ctx)
	if err != nil {
		logger.Error("maintenance pass: failed to list active crawlers", slog.Any("error", err))
		return
	}

	seen := make(map[string]bool)
	before := time.Now().AddDate(0, -1, 0)
	for _, c := range active {
		if seen[c.Source] {
			continue
		}
		seen[c.Source] = true

		archived, err := engine.ArchiveSource(ctx, c.Source, archive.Selector{Before: &before})
		if err != nil {
			logger.Error("maintenance pass: archive failed", slog.String("source", c.Source), slog.Any("error", err))
			continue
		}
		if archived > 0 {
			logger.Info("maintenance pass: archived articles", slog.String("source", c.Source), slog.Int("count", archived))
		}
	}
}
