package entity

import "time"

// ReparseStatus is the lifecycle of a bulk reparse job.
type ReparseStatus string

const (
	ReparseStatusPending   ReparseStatus = "PENDING"
	ReparseStatusRunning   ReparseStatus = "RUNNING"
	ReparseStatusCompleted ReparseStatus = "COMPLETED"
	ReparseStatusCancelled ReparseStatus = "CANCELLED"
	ReparseStatusFailed    ReparseStatus = "FAILED"
)

// ReparseJob re-runs ParseHTML over a batch of already-archived articles,
// e.g. after an extraction bug fix, without re-fetching from the network.
// Cancelled is polled cooperatively between articles by the reparse worker;
// once set the job stops after its current article and reports CANCELLED.
type ReparseJob struct {
	ID             int64
	Status         ReparseStatus
	TotalArticles  int
	ProcessedCount int
	SucceededCount int
	FailedCount    int
	Cancelled      bool
	StartedAt      *time.Time
	FinishedAt     *time.Time
	Error          string
}

// Progress returns the fraction of articles processed so far, in [0,1].
// A job with TotalArticles == 0 reports progress 1 (vacuously complete).
func (j *ReparseJob) Progress() float64 {
	if j.TotalArticles <= 0 {
		return 1
	}
	return float64(j.ProcessedCount) / float64(j.TotalArticles)
}

// IsTerminal reports whether the job has reached a status it cannot leave.
func (j *ReparseJob) IsTerminal() bool {
	switch j.Status {
	case ReparseStatusCompleted, ReparseStatusCancelled, ReparseStatusFailed:
		return true
	default:
		return false
	}
}
