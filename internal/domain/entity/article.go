// Package entity defines the core domain entities and validation logic for the application.
// It contains the fundamental business objects — crawled articles, the URL queue, the
// archive, reparse and pipeline runs, and the analysis graph — along with their
// validation rules and domain-specific errors.
package entity

import (
	"crypto/md5"
	"time"
)

// Article represents a parsed news article keyed by its URL hash.
//
// RawHTML is nil once the archive engine (an ArchiveRecord with status ARCHIVED) has
// moved the HTML out of the operational store, or if the crawler never captured any
// HTML in the first place. Tags and Images are ordered string sequences; the
// persistence layer tolerates reading either a JSON array or a legacy comma-separated
// string on read, but always writes JSON arrays.
type Article struct {
	ID          int64
	URL         string
	URLHash     []byte // 16-byte digest of URL
	Title       string
	Content     string
	Summary     string
	Author      string
	Source      string
	CrawlerName string
	Category    string
	SubCategory string
	Tags        []string
	PublishedAt *time.Time
	CrawledAt   time.Time
	RawHTML     *string
	Images      []string
}

// HasRawHTML reports whether the article currently carries its raw HTML in the
// operational store, as opposed to having been archived or never captured.
func (a *Article) HasRawHTML() bool {
	return a.RawHTML != nil && *a.RawHTML != ""
}

// HashURL computes the 16-byte digest stored in Article.URLHash and
// PendingUrl.URLHash, the dedup key both the queue and the article store
// enforce with a unique index.
func HashURL(url string) []byte {
	sum := md5.Sum([]byte(url))
	return sum[:]
}
