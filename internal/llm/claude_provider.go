package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"newsgraph/internal/domain/entity"
)

// resultSchema is the JSON schema every request constrains the model's
// structured output to, matching entity.AnalysisResultPayload field-for-field.
const resultSchema = `{
  "type": "object",
  "properties": {
    "external_id": {"type": "string"},
    "title": {"type": "string"},
    "published_at": {"type": "string", "format": "date-time"},
    "source": {"type": "string"},
    "entities": {"type": "array"},
    "events": {"type": "array"},
    "article_entities": {"type": "array"},
    "article_events": {"type": "array"},
    "entity_relations": {"type": "array"},
    "event_relations": {"type": "array"}
  },
  "required": ["external_id", "title", "published_at", "source"]
}`

// ClaudeProvider submits one Messages Batch per call to SubmitBatch, using
// Anthropic's message batches resource so up to thousands of per-article
// analysis requests complete asynchronously within its 24h window.
type ClaudeProvider struct {
	client anthropic.Client
	model  anthropic.Model
}

func NewClaudeProvider(apiKey string, model anthropic.Model) *ClaudeProvider {
	return &ClaudeProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (p *ClaudeProvider) buildPrompt(req entity.AnalysisRequest) string {
	return fmt.Sprintf(
		"Analyze the following article and return JSON matching this schema exactly:\n%s\n\nTitle: %s\nSource: %s\nContent:\n%s",
		resultSchema, req.Title, req.Source, req.Content,
	)
}

// SubmitBatch creates one batch request entry per article, tagged with the
// article id as its custom_id so RetrieveResults can map results back.
func (p *ClaudeProvider) SubmitBatch(ctx context.Context, requests []entity.AnalysisRequest) (string, error) {
	entries := make([]anthropic.MessageBatchNewParamsRequest, 0, len(requests))
	for _, r := range requests {
		entries = append(entries, anthropic.MessageBatchNewParamsRequest{
			CustomID: fmt.Sprintf("%d", r.ArticleID),
			Params: anthropic.MessageBatchNewParamsRequestParams{
				Model:     p.model,
				MaxTokens: 4096,
				Messages: []anthropic.MessageParam{
					anthropic.NewUserMessage(anthropic.NewTextBlock(p.buildPrompt(r))),
				},
			},
		})
	}

	batch, err := p.client.Messages.Batches.New(ctx, anthropic.MessageBatchNewParams{Requests: entries})
	if err != nil {
		return "", fmt.Errorf("claude SubmitBatch: %w", err)
	}
	return batch.ID, nil
}

func (p *ClaudeProvider) CheckBatchStatus(ctx context.Context, batchID string) (BatchStatus, error) {
	batch, err := p.client.Messages.Batches.Get(ctx, batchID)
	if err != nil {
		return BatchStatus{}, fmt.Errorf("claude CheckBatchStatus: %w", err)
	}

	status := BatchStatus{
		Total:     int(batch.RequestCounts.Processing + batch.RequestCounts.Succeeded + batch.RequestCounts.Errored + batch.RequestCounts.Canceled + batch.RequestCounts.Expired),
		Completed: int(batch.RequestCounts.Succeeded),
		Failed:    int(batch.RequestCounts.Errored + batch.RequestCounts.Canceled + batch.RequestCounts.Expired),
	}
	switch batch.ProcessingStatus {
	case anthropic.MessageBatchProcessingStatusEnded:
		status.State = BatchCompleted
	default:
		status.State = BatchInProgress
	}
	return status, nil
}

// RetrieveResults streams the batch's per-article result file and decodes
// each line's custom_id back into an article id.
func (p *ClaudeProvider) RetrieveResults(ctx context.Context, batchID string) ([]entity.AnalysisResponse, error) {
	stream := p.client.Messages.Batches.ResultsStreaming(ctx, batchID)
	defer func() { _ = stream.Close() }()

	responses := make([]entity.AnalysisResponse, 0, 64)
	for stream.Next() {
		entry := stream.Current()

		var articleID int64
		if _, err := fmt.Sscanf(entry.CustomID, "%d", &articleID); err != nil {
			continue
		}

		resp := entity.AnalysisResponse{ArticleID: articleID}
		switch entry.Result.Type {
		case anthropic.MessageBatchResultTypeSucceeded:
			text := extractClaudeText(entry.Result.Message)
			if json.Valid([]byte(text)) {
				resp.Success = true
				resp.ResultJSON = []byte(text)
			} else {
				resp.ErrorMessage = "claude batch result was not valid JSON"
			}
		default:
			resp.ErrorMessage = fmt.Sprintf("claude batch entry %s: %s", entry.CustomID, entry.Result.Type)
		}
		responses = append(responses, resp)
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("claude RetrieveResults: %w", err)
	}
	return responses, nil
}

func extractClaudeText(message anthropic.Message) string {
	var buf bytes.Buffer
	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			buf.WriteString(tb.Text)
		}
	}
	return buf.String()
}
