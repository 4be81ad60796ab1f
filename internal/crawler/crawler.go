// Package crawler implements the C1 crawler registry: it enumerates the
// concrete list and article crawlers compiled into the process, looks them
// up by name or by (source, kind), and synchronizes their metadata into the
// CrawlerConfig table without ever touching the operator-controlled run
// state (is_active, interval_minutes, statistics).
package crawler

import (
	"context"
	"fmt"

	"newsgraph/internal/domain/entity"
	"newsgraph/internal/repository"
	"newsgraph/internal/usecase/fetch"
)

// ListCrawler discovers article URLs on a source's front page or feed. It
// corresponds to a CrawlerConfig row with Kind == entity.CrawlerKindList.
type ListCrawler interface {
	Name() string
	DisplayName() string
	Source() string
	DefaultIntervalMinutes() int
	DefaultTimeoutSeconds() int
	Discover(ctx context.Context, sourceURL string) ([]fetch.FeedItem, error)
}

// ArticleCrawler fetches and parses one article's full content. It
// corresponds to a CrawlerConfig row with Kind == entity.CrawlerKindArticle.
type ArticleCrawler interface {
	Name() string
	DisplayName() string
	Source() string
	DefaultIntervalMinutes() int
	DefaultTimeoutSeconds() int
	FetchArticle(ctx context.Context, url string) (*entity.Article, error)
	// ParseHTML re-derives an article's parsed fields from already-downloaded
	// HTML, without any network access, for the reparse worker (C7).
	ParseHTML(html, url string) (*entity.Article, error)
}

// Registry holds every concrete crawler instantiated at process start, keyed
// by name and by (source, kind).
type Registry struct {
	listByName    map[string]ListCrawler
	articleByName map[string]ArticleCrawler
	bySourceList  map[string]ListCrawler
	bySourceArt   map[string]ArticleCrawler
}

// NewRegistry builds a Registry from the given crawlers. Registering two
// crawlers under the same name is a caller bug and panics, matching the
// "fails loudly" contract for registry construction.
func NewRegistry(listCrawlers []ListCrawler, articleCrawlers []ArticleCrawler) *Registry {
	r := &Registry{
		listByName:    make(map[string]ListCrawler, len(listCrawlers)),
		articleByName: make(map[string]ArticleCrawler, len(articleCrawlers)),
		bySourceList:  make(map[string]ListCrawler, len(listCrawlers)),
		bySourceArt:   make(map[string]ArticleCrawler, len(articleCrawlers)),
	}
	for _, c := range listCrawlers {
		if _, exists := r.listByName[c.Name()]; exists {
			panic(fmt.Sprintf("crawler: duplicate list crawler name %q", c.Name()))
		}
		r.listByName[c.Name()] = c
		r.bySourceList[c.Source()] = c
	}
	for _, c := range articleCrawlers {
		if _, exists := r.articleByName[c.Name()]; exists {
			panic(fmt.Sprintf("crawler: duplicate article crawler name %q", c.Name()))
		}
		r.articleByName[c.Name()] = c
		r.bySourceArt[c.Source()] = c
	}
	return r
}

func (r *Registry) ListCrawlerByName(name string) (ListCrawler, bool) {
	c, ok := r.listByName[name]
	return c, ok
}

func (r *Registry) ArticleCrawlerByName(name string) (ArticleCrawler, bool) {
	c, ok := r.articleByName[name]
	return c, ok
}

func (r *Registry) ListCrawlerBySource(source string) (ListCrawler, bool) {
	c, ok := r.bySourceList[source]
	return c, ok
}

func (r *Registry) ArticleCrawlerBySource(source string) (ArticleCrawler, bool) {
	c, ok := r.bySourceArt[source]
	return c, ok
}

func (r *Registry) ListCrawlers() []ListCrawler {
	out := make([]ListCrawler, 0, len(r.listByName))
	for _, c := range r.listByName {
		out = append(out, c)
	}
	return out
}

func (r *Registry) ArticleCrawlers() []ArticleCrawler {
	out := make([]ArticleCrawler, 0, len(r.articleByName))
	for _, c := range r.articleByName {
		out = append(out, c)
	}
	return out
}

// Sync inserts a CrawlerConfig row for every crawler name not yet registered
// and refreshes display_name/source/kind on existing rows, per §4.1: it never
// overwrites interval_minutes, is_active, or the accumulated run statistics.
// A single crawler's sync failure is logged by the caller and does not abort
// the rest of the pass.
func (r *Registry) Sync(ctx context.Context, repo repository.CrawlerConfigRepository) []error {
	var errs []error

	sync := func(name, displayName, source string, kind entity.CrawlerKind, intervalMinutes, timeoutSeconds int) {
		existing, err := repo.GetByName(ctx, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("sync %s: %w", name, err))
			return
		}
		if existing == nil {
			cfg := &entity.CrawlerConfig{
				Name:            name,
				DisplayName:     displayName,
				Source:          source,
				Kind:            kind,
				IsActive:        true,
				IntervalMinutes: intervalMinutes,
				TimeoutSeconds:  timeoutSeconds,
				LastRunStatus:   entity.RunStatusIdle,
			}
			if _, err := repo.Create(ctx, cfg); err != nil {
				errs = append(errs, fmt.Errorf("sync %s: create: %w", name, err))
			}
			return
		}
		existing.DisplayName = displayName
		existing.Source = source
		existing.Kind = kind
		if err := repo.Update(ctx, existing); err != nil {
			errs = append(errs, fmt.Errorf("sync %s: update: %w", name, err))
		}
	}

	for _, c := range r.ListCrawlers() {
		sync(c.Name(), c.DisplayName(), c.Source(), entity.CrawlerKindList, c.DefaultIntervalMinutes(), c.DefaultTimeoutSeconds())
	}
	for _, c := range r.ArticleCrawlers() {
		sync(c.Name(), c.DisplayName(), c.Source(), entity.CrawlerKindArticle, c.DefaultIntervalMinutes(), c.DefaultTimeoutSeconds())
	}
	return errs
}
