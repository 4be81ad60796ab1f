package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"newsgraph/internal/archive"
	"newsgraph/internal/crawler"
	"newsgraph/internal/domain/entity"
	pgRepo "newsgraph/internal/infra/adapter/persistence/postgres"
	"newsgraph/internal/infra/db"
	"newsgraph/internal/infra/fetcher"
	workerPkg "newsgraph/internal/infra/worker"
	"newsgraph/internal/observability/logging"
	"newsgraph/internal/reparse"
)

// cmd/reparse is the one-shot CLI that starts a C7 bulk reparse job for a
// source, then polls GetJobStatus until it reaches a terminal state,
// printing progress as it goes.
func main() {
	source := flag.String("source", "", "source to reparse, e.g. techcrunch")
	pollInterval := flag.Duration("poll-interval", 2*time.Second, "status poll interval")
	cancelOnInterrupt := flag.Bool("cancel-on-interrupt", true, "send CancelJob if interrupted")
	flag.Parse()

	if *source == "" {
		fatal("--source is required")
	}

	logger := logging.NewLogger()

	database := db.Open()
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	worker := buildReparseWorker(logger, database)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobID, err := worker.StartReparse(ctx, *source)
	if err != nil {
		logger.Error("failed to start reparse job", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("reparse job started", slog.Int64("job_id", jobID), slog.String("source", *source))

	ticker := time.NewTicker(*pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if *cancelOnInterrupt {
				cancelCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := worker.CancelJob(cancelCtx, jobID); err != nil {
					logger.Error("failed to cancel job", slog.Any("error", err))
				}
				cancel()
			}
			os.Exit(1)
		case <-ticker.C:
			job, err := worker.GetJobStatus(context.Background(), jobID)
			if err != nil {
				logger.Error("failed to fetch job status", slog.Any("error", err))
				continue
			}
			logger.Info("reparse progress",
				slog.Int64("job_id", jobID),
				slog.String("status", string(job.Status)),
				slog.Int("processed", job.ProcessedCount),
				slog.Int("succeeded", job.SucceededCount),
				slog.Int("failed", job.FailedCount),
				slog.Int("total", job.TotalArticles))

			if job.Status == entity.ReparseStatusCompleted || job.Status == entity.ReparseStatusFailed || job.Status == entity.ReparseStatusCancelled {
				if job.Error != "" {
					logger.Error("reparse finished with errors", slog.String("error_log", job.Error))
				}
				if job.Status != entity.ReparseStatusCompleted {
					os.Exit(1)
				}
				return
			}
		}
	}
}

func buildReparseWorker(logger *slog.Logger, database *sql.DB) *reparse.Worker {
	articles := pgRepo.NewArticleRepo(database)
	archivesRepo := pgRepo.NewArchiveRepo(database)
	reparseRepo := pgRepo.NewReparseRepo(database)

	workerMetrics := workerPkg.NewWorkerMetrics()
	cfg, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}

	archiveEngine := archive.NewEngine(cfg.ArchiveBaseDir, cfg.ArchiveBatchSize, articles, archivesRepo)

	contentCfg, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("failed to load content fetch configuration, using defaults", slog.Any("error", err))
		contentCfg = fetcher.DefaultConfig()
	}

	registry := crawler.NewRegistry(nil, []crawler.ArticleCrawler{
		crawler.NewReadabilityArticleCrawler("techcrunch-article", "TechCrunch", "techcrunch", 5, 30, contentCfg),
		crawler.NewReadabilityArticleCrawler("theverge-article", "The Verge", "theverge", 5, 30, contentCfg),
	})

	return reparse.NewWorker(registry, reparseRepo, articles, archivesRepo, archiveEngine, logger)
}

func fatal(msg string) {
	slog.Error(msg)
	os.Exit(2)
}
