package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"newsgraph/internal/domain/entity"
	"newsgraph/internal/repository"
	"newsgraph/internal/resilience/circuitbreaker"
	"newsgraph/internal/resilience/retry"
)

// Config tunes the Coordinator's polling behavior.
type Config struct {
	PollInterval time.Duration
	MaxWait      time.Duration
}

func DefaultConfig() Config {
	return Config{PollInterval: 30 * time.Second, MaxWait: 23 * time.Hour}
}

// Coordinator drives C9's Analyze/RetryFailed/RetryStoreFailed operations
// over a Provider, reconciling AnalysisTracking as the authoritative
// per-article-per-batch status (§4.9).
type Coordinator struct {
	provider       Provider
	tracking       repository.AnalysisRepository
	cfg            Config
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	metrics        BatchMetricsRecorder
	logger         *slog.Logger
}

// NewCoordinator wires provider behind cbConfig's circuit breaker. Callers
// constructing a ClaudeProvider or OpenAIProvider should pass
// circuitbreaker.ClaudeAPIConfig() or circuitbreaker.OpenAIAPIConfig()
// respectively, matching the provider actually injected.
func NewCoordinator(provider Provider, tracking repository.AnalysisRepository, cfg Config, cbConfig circuitbreaker.Config, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		provider:       provider,
		tracking:       tracking,
		cfg:            cfg,
		circuitBreaker: circuitbreaker.New(cbConfig),
		retryConfig:    retry.AIAPIConfig(),
		metrics:        NewPrometheusBatchMetrics(),
		logger:         logger,
	}
}

func (c *Coordinator) submitBatch(ctx context.Context, requests []entity.AnalysisRequest) (string, error) {
	var batchID string
	err := retry.WithBackoff(ctx, c.retryConfig, func() error {
		result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.provider.SubmitBatch(ctx, requests)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				return fmt.Errorf("llm batch provider unavailable: circuit breaker open")
			}
			return err
		}
		batchID = result.(string)
		return nil
	})
	return batchID, err
}

// Analyze submits survivors to the LLM provider (or resumes batchIDHint if
// already set on the run) and reconciles AnalysisTracking once the batch
// reaches a terminal state. onBatchSubmitted is invoked with the new batch id
// before any tracking row is written, so C8 can persist it on the run first
// (§4.9 invariant).
func (c *Coordinator) Analyze(ctx context.Context, batchIDHint string, articles []entity.AnalysisRequest, onBatchSubmitted func(batchID string) error) (string, error) {
	pending := make([]entity.AnalysisRequest, 0, len(articles))
	for _, a := range articles {
		if batchIDHint != "" {
			t, err := c.tracking.GetTracking(ctx, a.ArticleID, batchIDHint)
			if err != nil {
				return "", fmt.Errorf("Analyze: check existing tracking: %w", err)
			}
			if t != nil && t.Status == entity.AnalysisStatusSuccess {
				continue
			}
		}
		pending = append(pending, a)
	}

	batchID := batchIDHint
	resuming := batchIDHint != ""
	if !resuming {
		if len(pending) == 0 {
			return "", nil
		}
		id, err := c.submitBatch(ctx, pending)
		if err != nil {
			return "", fmt.Errorf("Analyze: submit batch: %w", err)
		}
		batchID = id
		if onBatchSubmitted != nil {
			if err := onBatchSubmitted(batchID); err != nil {
				return "", fmt.Errorf("Analyze: persist batch id: %w", err)
			}
		}
		c.metrics.RecordSubmitted(len(pending))

		for _, a := range pending {
			if _, err := c.tracking.CreateTracking(ctx, &entity.AnalysisTracking{
				ArticleID: a.ArticleID,
				BatchID:   batchID,
				Status:    entity.AnalysisStatusPending,
			}); err != nil {
				return "", fmt.Errorf("Analyze: create tracking for article %d: %w", a.ArticleID, err)
			}
		}
		c.logger.InfoContext(ctx, "llm batch submitted", slog.String("batch_id", batchID), slog.Int("articles", len(pending)))
	} else {
		c.logger.InfoContext(ctx, "llm batch resumed", slog.String("batch_id", batchID))
	}

	if err := c.poll(ctx, batchID); err != nil {
		return batchID, err
	}
	return batchID, c.reconcile(ctx, batchID)
}

// poll blocks until batchID reaches BatchCompleted/BatchFailed or MaxWait
// elapses, at which point it returns *TimeoutError for C8 to catch and PAUSE
// the run rather than fail it outright.
func (c *Coordinator) poll(ctx context.Context, batchID string) error {
	start := time.Now()
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		status, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.provider.CheckBatchStatus(ctx, batchID)
		})
		if err != nil {
			if !errors.Is(err, gobreaker.ErrOpenState) {
				return fmt.Errorf("Analyze: check batch status: %w", err)
			}
		} else {
			s := status.(BatchStatus)
			if s.State == BatchCompleted {
				c.metrics.RecordPollDuration(time.Since(start))
				return nil
			}
			if s.State == BatchFailed {
				c.metrics.RecordPollDuration(time.Since(start))
				return fmt.Errorf("Analyze: batch %s: %w", batchID, errBatchFailed)
			}
		}

		if time.Since(start) >= c.cfg.MaxWait {
			c.metrics.RecordTimeout()
			return &TimeoutError{BatchID: batchID}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// reconcile retrieves a completed batch's results and updates every article's
// tracking row to SUCCESS or FAILED.
func (c *Coordinator) reconcile(ctx context.Context, batchID string) error {
	responses, err := c.provider.RetrieveResults(ctx, batchID)
	if err != nil {
		return fmt.Errorf("Analyze: retrieve results: %w", err)
	}

	succeeded, failed := 0, 0
	for _, r := range responses {
		t, err := c.tracking.GetTracking(ctx, r.ArticleID, batchID)
		if err != nil || t == nil {
			c.logger.ErrorContext(ctx, "llm result for untracked article", slog.Int64("article_id", r.ArticleID), slog.String("batch_id", batchID))
			continue
		}

		if r.Success {
			if _, err := c.tracking.AppendResult(ctx, r.ArticleID, batchID, r.ResultJSON); err != nil {
				return fmt.Errorf("Analyze: append result for article %d: %w", r.ArticleID, err)
			}
			if err := c.tracking.UpdateStatus(ctx, t.ID, entity.AnalysisStatusSuccess, nil, ""); err != nil {
				return fmt.Errorf("Analyze: mark article %d success: %w", r.ArticleID, err)
			}
			succeeded++
		} else {
			if err := c.tracking.UpdateStatus(ctx, t.ID, entity.AnalysisStatusFailed, nil, r.ErrorMessage); err != nil {
				return fmt.Errorf("Analyze: mark article %d failed: %w", r.ArticleID, err)
			}
			failed++
		}
	}
	c.metrics.RecordOutcome(succeeded, failed)
	return nil
}

// RetryFailed rebuilds an AnalysisRequest per FAILED tracking row (from
// requestsByArticle, since tracking itself retains no article content),
// deletes those rows, and submits a fresh batch.
func (c *Coordinator) RetryFailed(ctx context.Context, batchID string, requestsByArticle map[int64]entity.AnalysisRequest) (string, error) {
	failedRows, err := c.tracking.ListFailed(ctx, batchID)
	if err != nil {
		return "", fmt.Errorf("RetryFailed: list failed: %w", err)
	}
	if len(failedRows) == 0 {
		return "", nil
	}

	requests := make([]entity.AnalysisRequest, 0, len(failedRows))
	ids := make([]int64, 0, len(failedRows))
	for _, row := range failedRows {
		req, ok := requestsByArticle[row.ArticleID]
		if !ok {
			return "", fmt.Errorf("RetryFailed: no article content supplied for article %d", row.ArticleID)
		}
		requests = append(requests, req)
		ids = append(ids, row.ID)
	}

	if err := c.tracking.DeleteTracking(ctx, ids); err != nil {
		return "", fmt.Errorf("RetryFailed: delete failed rows: %w", err)
	}

	newBatchID, err := c.submitBatch(ctx, requests)
	if err != nil {
		return "", fmt.Errorf("RetryFailed: submit batch: %w", err)
	}
	for _, req := range requests {
		if _, err := c.tracking.CreateTracking(ctx, &entity.AnalysisTracking{
			ArticleID: req.ArticleID,
			BatchID:   newBatchID,
			Status:    entity.AnalysisStatusPending,
		}); err != nil {
			return "", fmt.Errorf("RetryFailed: create tracking for article %d: %w", req.ArticleID, err)
		}
	}
	return newBatchID, nil
}

// RetryStoreFailed re-drives C10's store step for every STORE_FAILED row
// using the result_json retained from the original analysis, without
// re-invoking the LLM. store classifies its own failures via
// entity.StoreFailure; a transient failure leaves the row STORE_FAILED for a
// later retry, anything else re-stamps it FAILED (must be re-analyzed).
func (c *Coordinator) RetryStoreFailed(ctx context.Context, batchID string, store func(ctx context.Context, articleID int64, resultJSON []byte) error) error {
	rows, err := c.tracking.ListStoreFailed(ctx, batchID)
	if err != nil {
		return fmt.Errorf("RetryStoreFailed: list store-failed: %w", err)
	}

	for _, row := range rows {
		storeErr := store(ctx, row.ArticleID, row.ResultJSON)
		if storeErr == nil {
			if err := c.tracking.UpdateStatus(ctx, row.ID, entity.AnalysisStatusSuccess, nil, ""); err != nil {
				return fmt.Errorf("RetryStoreFailed: mark article %d success: %w", row.ArticleID, err)
			}
			continue
		}

		var sf *entity.StoreFailure
		if errors.As(storeErr, &sf) && sf.IsTransient {
			if err := c.tracking.UpdateStatus(ctx, row.ID, entity.AnalysisStatusStoreFailed, row.ResultJSON, storeErr.Error()); err != nil {
				return fmt.Errorf("RetryStoreFailed: re-stamp article %d store-failed: %w", row.ArticleID, err)
			}
			continue
		}
		if err := c.tracking.UpdateStatus(ctx, row.ID, entity.AnalysisStatusFailed, nil, storeErr.Error()); err != nil {
			return fmt.Errorf("RetryStoreFailed: re-stamp article %d failed: %w", row.ArticleID, err)
		}
	}
	return nil
}
