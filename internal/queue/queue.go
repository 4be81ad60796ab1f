// Package queue implements the C2 URL work queue: discovered URLs wait here,
// deduplicated against both PendingUrl and Article, until an article crawler
// leases and resolves them.
package queue

import (
	"context"
	"time"

	"newsgraph/internal/domain/entity"
	"newsgraph/internal/repository"
)

// Service wraps repository.QueueRepository with the dedup rule AddURLs
// requires: a URL already present in either PendingUrl or Article must never
// be inserted again, matching §4.2's "no duplicate URL across {PendingUrl,
// Article}" invariant.
type Service struct {
	queue    repository.QueueRepository
	articles repository.ArticleRepository
}

func NewService(queue repository.QueueRepository, articles repository.ArticleRepository) *Service {
	return &Service{queue: queue, articles: articles}
}

// AddURLs computes each URL's digest, drops any already present in the
// article store, and hands the rest to QueueRepository.AddURLs (which itself
// drops any already present in pending_urls via the url_hash unique index).
// It returns the count actually added.
func (s *Service) AddURLs(ctx context.Context, urls []string, source, crawlerName string) (int64, error) {
	if len(urls) == 0 {
		return 0, nil
	}

	hashes := make([][]byte, len(urls))
	for i, u := range urls {
		hashes[i] = entity.HashURL(u)
	}

	existing, err := s.articles.ExistsByURLHashBatch(ctx, hashes)
	if err != nil {
		return 0, err
	}

	candidates := make([]*entity.PendingUrl, 0, len(urls))
	for i, u := range urls {
		if existing[string(hashes[i])] {
			continue
		}
		candidates = append(candidates, &entity.PendingUrl{
			URL:         u,
			URLHash:     hashes[i],
			Source:      source,
			CrawlerName: crawlerName,
			Status:      entity.QueueStatusPending,
		})
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	return s.queue.AddURLs(ctx, candidates)
}

// LeaseURLs resets any stale PROCESSING leases (of every source, not only
// source) before claiming up to limit rows of source, so a crashed worker's
// abandoned lease never blocks forward
// progress (§4.2: "Called at the start of every article-crawl tick").
func (s *Service) LeaseURLs(ctx context.Context, source, leasedBy string, limit int) ([]*entity.PendingUrl, error) {
	now := time.Now()
	if _, err := s.queue.ResetStaleProcessing(ctx, entity.DefaultStaleLeaseAfter, now); err != nil {
		return nil, err
	}
	return s.queue.LeaseURLs(ctx, source, leasedBy, limit, now)
}

func (s *Service) MarkCompleted(ctx context.Context, id int64) error {
	return s.queue.MarkCompleted(ctx, id)
}

func (s *Service) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	return s.queue.MarkFailed(ctx, id, entity.TruncateErrorLog(errMsg))
}

// ForceResetAllProcessing is the crash-recovery escape hatch called once at
// process startup, per §4.2.
func (s *Service) ForceResetAllProcessing(ctx context.Context) (int64, error) {
	return s.queue.ForceResetAllProcessing(ctx)
}

func (s *Service) CountByStatus(ctx context.Context, source string, status entity.QueueStatus) (int64, error) {
	return s.queue.CountByStatus(ctx, source, status)
}
