package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"newsgraph/internal/domain/entity"
)

// OpenAIProvider submits one Batch API job per call to SubmitBatch: a JSONL
// file of chat completion requests, one per article, run against the
// /v1/chat/completions endpoint inside the batch's 24h completion window.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{client: openai.NewClient(apiKey), model: model}
}

// batchLine is one JSONL entry in the uploaded input file, matching the
// Batch API's documented request-line shape.
type batchLine struct {
	CustomID string                      `json:"custom_id"`
	Method   string                      `json:"method"`
	URL      string                      `json:"url"`
	Body     openai.ChatCompletionRequest `json:"body"`
}

func (p *OpenAIProvider) buildRequestBody(req entity.AnalysisRequest) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "Return only JSON matching the schema: " + resultSchema},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Title: %s\nSource: %s\nContent:\n%s", req.Title, req.Source, req.Content)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}
}

func (p *OpenAIProvider) SubmitBatch(ctx context.Context, requests []entity.AnalysisRequest) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range requests {
		line := batchLine{
			CustomID: fmt.Sprintf("%d", r.ArticleID),
			Method:   "POST",
			URL:      "/v1/chat/completions",
			Body:     p.buildRequestBody(r),
		}
		if err := enc.Encode(line); err != nil {
			return "", fmt.Errorf("openai SubmitBatch: encode request %d: %w", r.ArticleID, err)
		}
	}

	file, err := p.client.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    "batch-input.jsonl",
		Bytes:   buf.Bytes(),
		Purpose: openai.PurposeBatch,
	})
	if err != nil {
		return "", fmt.Errorf("openai SubmitBatch: upload input file: %w", err)
	}

	batch, err := p.client.CreateBatch(ctx, openai.CreateBatchRequest{
		InputFileID:      file.ID,
		Endpoint:         "/v1/chat/completions",
		CompletionWindow: "24h",
	})
	if err != nil {
		return "", fmt.Errorf("openai SubmitBatch: create batch: %w", err)
	}
	return batch.ID, nil
}

func (p *OpenAIProvider) CheckBatchStatus(ctx context.Context, batchID string) (BatchStatus, error) {
	batch, err := p.client.RetrieveBatch(ctx, batchID)
	if err != nil {
		return BatchStatus{}, fmt.Errorf("openai CheckBatchStatus: %w", err)
	}

	status := BatchStatus{
		Total:     batch.RequestCounts.Total,
		Completed: batch.RequestCounts.Completed,
		Failed:    batch.RequestCounts.Failed,
	}
	switch batch.Status {
	case "completed":
		status.State = BatchCompleted
	case "failed", "expired", "cancelled":
		status.State = BatchFailed
	default:
		status.State = BatchInProgress
	}
	return status, nil
}

// openAIBatchOutputLine is one line of the output file the Batch API writes,
// echoing custom_id back alongside either a response body or an error.
type openAIBatchOutputLine struct {
	CustomID string `json:"custom_id"`
	Response *struct {
		Body openai.ChatCompletionResponse `json:"body"`
	} `json:"response"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *OpenAIProvider) RetrieveResults(ctx context.Context, batchID string) ([]entity.AnalysisResponse, error) {
	batch, err := p.client.RetrieveBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("openai RetrieveResults: retrieve batch: %w", err)
	}
	if batch.OutputFileID == "" {
		return nil, fmt.Errorf("openai RetrieveResults: batch %s has no output file", batchID)
	}

	raw, err := p.client.GetFileContent(ctx, batch.OutputFileID)
	if err != nil {
		return nil, fmt.Errorf("openai RetrieveResults: download output file: %w", err)
	}
	defer func() { _ = raw.Close() }()

	responses := make([]entity.AnalysisResponse, 0, 64)
	scanner := bufio.NewScanner(raw)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var out openAIBatchOutputLine
		if err := json.Unmarshal([]byte(line), &out); err != nil {
			continue
		}

		var articleID int64
		if _, err := fmt.Sscanf(out.CustomID, "%d", &articleID); err != nil {
			continue
		}

		resp := entity.AnalysisResponse{ArticleID: articleID}
		switch {
		case out.Error != nil:
			resp.ErrorMessage = out.Error.Message
		case out.Response != nil && len(out.Response.Body.Choices) > 0:
			resp.Success = true
			resp.ResultJSON = []byte(out.Response.Body.Choices[0].Message.Content)
		default:
			resp.ErrorMessage = "openai batch line had neither response nor error"
		}
		responses = append(responses, resp)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("openai RetrieveResults: scan output file: %w", err)
	}
	return responses, nil
}
