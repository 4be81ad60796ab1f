package entity

import "time"

// QueueStatus is the lifecycle state of a PendingUrl row.
type QueueStatus string

const (
	QueueStatusPending    QueueStatus = "PENDING"
	QueueStatusProcessing QueueStatus = "PROCESSING"
	QueueStatusCompleted  QueueStatus = "COMPLETED"
	QueueStatusFailed     QueueStatus = "FAILED"
)

// DefaultStaleLeaseAfter is how long a PROCESSING row can go without being
// completed or failed before ResetStaleProcessing reclaims it.
const DefaultStaleLeaseAfter = 30 * time.Minute

// DefaultMaxAttempts is the number of failed leases a PendingUrl tolerates
// before it is parked as permanently FAILED instead of re-queued.
const DefaultMaxAttempts = 5

// PendingUrl is one URL discovered by a list crawler and awaiting an article
// crawler's fetch. URLHash is the dedup key enforced by a unique index; AddURLs
// is a no-op for URLs whose hash already exists regardless of current status.
type PendingUrl struct {
	ID           int64
	URL          string
	URLHash      []byte
	Source       string
	CrawlerName  string
	Status       QueueStatus
	Attempts     int
	LeasedAt     *time.Time
	LeasedBy     string
	DiscoveredAt time.Time
	LastError    string
}

// CanLease reports whether the row is eligible to be handed out by LeaseURLs:
// PENDING rows, or FAILED rows that have not exhausted DefaultMaxAttempts.
func (p *PendingUrl) CanLease() bool {
	if p.Status == QueueStatusPending {
		return true
	}
	return p.Status == QueueStatusFailed && p.Attempts < DefaultMaxAttempts
}

// IsStale reports whether a PROCESSING row has been leased longer than after,
// making it eligible for ResetStaleProcessing to reclaim.
func (p *PendingUrl) IsStale(after time.Duration, now time.Time) bool {
	if p.Status != QueueStatusProcessing || p.LeasedAt == nil {
		return false
	}
	return now.Sub(*p.LeasedAt) > after
}
