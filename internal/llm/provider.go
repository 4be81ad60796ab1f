// Package llm implements the C9 provider-agnostic LLM batch coordinator: it
// submits survivor articles to a batch analysis endpoint, polls it to
// completion or timeout, and reconciles results against AnalysisTracking.
package llm

import (
	"context"
	"errors"
	"fmt"

	"newsgraph/internal/domain/entity"
)

// BatchState is the coarse status CheckBatchStatus reports for a submitted
// batch, independent of provider-specific status vocabularies.
type BatchState string

const (
	BatchInProgress BatchState = "IN_PROGRESS"
	BatchCompleted  BatchState = "COMPLETED"
	BatchFailed     BatchState = "FAILED"
)

// BatchStatus is CheckBatchStatus's result.
type BatchStatus struct {
	State     BatchState
	Total     int
	Completed int
	Failed    int
}

// Provider is the contract every LLM backend implements: submit a batch of
// structured-output analysis requests, poll its status, and retrieve parsed
// results once complete. Exactly one request is submitted per article, each
// carrying the same response JSON schema.
type Provider interface {
	SubmitBatch(ctx context.Context, requests []entity.AnalysisRequest) (batchID string, err error)
	CheckBatchStatus(ctx context.Context, batchID string) (BatchStatus, error)
	RetrieveResults(ctx context.Context, batchID string) ([]entity.AnalysisResponse, error)
}

// TimeoutError is returned by Analyze when max_wait elapses before a batch
// reaches a terminal state. §4.7 has C8 catch this and PAUSE the run rather
// than fail it; the remote batch itself is not cancelled.
type TimeoutError struct {
	BatchID string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("llm: batch %s did not complete within max_wait", e.BatchID)
}

var errBatchFailed = errors.New("llm: batch reported FAILED state")
