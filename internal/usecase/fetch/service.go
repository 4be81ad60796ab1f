// Package fetch provides the shared feed-fetching abstractions consumed by
// internal/crawler's concrete list crawlers: a FeedFetcher implementation
// per source type turns a source's listing page into FeedItems for the
// registry to enqueue.
package fetch

import (
	"context"
	"time"
)

// FeedFetcher is an interface for fetching RSS/Atom feeds or scraping a
// listing page at a URL.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) ([]FeedItem, error)
}

// FeedItem represents a single item discovered on a source's listing page.
type FeedItem struct {
	Title       string
	URL         string
	Content     string
	PublishedAt time.Time
}
