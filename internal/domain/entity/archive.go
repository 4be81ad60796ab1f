package entity

import "time"

// ArchiveStatus tracks where an article's raw HTML physically lives.
type ArchiveStatus string

const (
	ArchiveStatusPending  ArchiveStatus = "PENDING"
	ArchiveStatusArchived ArchiveStatus = "ARCHIVED"
	ArchiveStatusFailed   ArchiveStatus = "FAILED"
	// ArchiveStatusActive marks a record whose HTML Restore has copied back
	// into the operational article row; the cold-storage copy is untouched.
	ArchiveStatusActive ArchiveStatus = "ACTIVE"
)

// ArchiveRecord tracks the cold-storage location of one article's raw HTML
// after the archive engine has moved it out of the operational articles table.
// CompressedSize is recorded for observability only; it is never used to decide
// whether a record is valid, since the batch gzip stream compresses several
// articles' HTML together and per-article size is an estimate.
type ArchiveRecord struct {
	ID             int64
	ArticleID      int64
	ArchiveFile    string // path relative to <base>/raw_html, e.g. "acme/2026-07/batch_001.json.gz"
	OffsetBytes    int64
	CompressedSize int64
	Status         ArchiveStatus
	ArchivedAt     time.Time
}

// ArchiveManifestEntry maps an article to a byte range within a batch file.
// The archive engine does not use it: its manifest.json lists each batch's
// file name, article ids, count and creation time, and reads from a batch
// decompress and scan it from the start.
type ArchiveManifestEntry struct {
	ArticleID   int64  `json:"article_id"`
	URLHash     string `json:"url_hash"`
	OffsetBytes int64  `json:"offset_bytes"`
	Length      int64  `json:"length"`
}
