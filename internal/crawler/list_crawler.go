package crawler

import (
	"context"
	"net/http"

	"newsgraph/internal/infra/scraper"
	"newsgraph/internal/usecase/fetch"
)

// feedFetcherListCrawler adapts a scraper.FeedFetcher implementation into a
// ListCrawler, pairing it with the registry metadata §4.1 requires.
type feedFetcherListCrawler struct {
	name            string
	displayName     string
	source          string
	intervalMinutes int
	timeoutSeconds  int
	fetcher         fetch.FeedFetcher
}

func (c *feedFetcherListCrawler) Name() string               { return c.name }
func (c *feedFetcherListCrawler) DisplayName() string        { return c.displayName }
func (c *feedFetcherListCrawler) Source() string              { return c.source }
func (c *feedFetcherListCrawler) DefaultIntervalMinutes() int { return c.intervalMinutes }
func (c *feedFetcherListCrawler) DefaultTimeoutSeconds() int  { return c.timeoutSeconds }

func (c *feedFetcherListCrawler) Discover(ctx context.Context, sourceURL string) ([]fetch.FeedItem, error) {
	return c.fetcher.Fetch(ctx, sourceURL)
}

// NewRSSListCrawler wraps an RSS/Atom feed source.
func NewRSSListCrawler(name, displayName, source string, intervalMinutes, timeoutSeconds int, client *http.Client) ListCrawler {
	return &feedFetcherListCrawler{
		name:            name,
		displayName:     displayName,
		source:          source,
		intervalMinutes: intervalMinutes,
		timeoutSeconds:  timeoutSeconds,
		fetcher:         scraper.NewRSSFetcher(client),
	}
}
