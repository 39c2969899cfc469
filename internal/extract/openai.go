package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/wastewise/wastewise/internal/config"
	"github.com/wastewise/wastewise/pkg/models"
)

// Cost rates in cents per million tokens.
const (
	openaiInputCentsPerMTok  = 250
	openaiOutputCentsPerMTok = 1000
)

// OpenAIExtractor implements models.DocumentExtractor using the OpenAI Chat
// Completions API with URL-referenced files.
type OpenAIExtractor struct {
	cfg    config.OpenAIConfig
	client *http.Client
}

func NewOpenAIExtractor(cfg config.OpenAIConfig, timeout time.Duration) *OpenAIExtractor {
	return &OpenAIExtractor{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (e *OpenAIExtractor) Name() string { return "openai" }

func (e *OpenAIExtractor) Extract(ctx context.Context, req models.ExtractionRequest) (models.ExtractionResult, error) {
	body := openaiRequest{
		Model: e.cfg.Model,
		Messages: []openaiMessage{
			{
				Role: "user",
				Content: []openaiContent{
					{
						Type: "file",
						File: &openaiFile{FileURL: req.Document.StorageURL},
					},
					{Type: "text", Text: buildPrompt(req)},
				},
			},
		},
		ResponseFormat: &openaiResponseFormat{Type: "json_object"},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return models.ExtractionResult{}, fmt.Errorf("encoding request: %w", err)
	}

	u := e.cfg.BaseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return models.ExtractionResult{}, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return models.ExtractionResult{}, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.ExtractionResult{}, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var apiResp openaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return models.ExtractionResult{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if len(apiResp.Choices) == 0 {
		return models.ExtractionResult{}, fmt.Errorf("%w: no choices", ErrInvalidResponse)
	}

	result, err := parsePayload(apiResp.Choices[0].Message.Content, req)
	if err != nil {
		return models.ExtractionResult{}, err
	}

	result.Usage = models.Usage{
		Calls:  1,
		Tokens: apiResp.Usage.TotalTokens,
		CostCents: (apiResp.Usage.PromptTokens*openaiInputCentsPerMTok +
			apiResp.Usage.CompletionTokens*openaiOutputCentsPerMTok) / 1_000_000,
	}
	return result, nil
}

// --- OpenAI API types ---

type openaiRequest struct {
	Model          string                `json:"model"`
	Messages       []openaiMessage       `json:"messages"`
	ResponseFormat *openaiResponseFormat `json:"response_format,omitempty"`
}

type openaiMessage struct {
	Role    string          `json:"role"`
	Content []openaiContent `json:"content"`
}

type openaiContent struct {
	Type string      `json:"type"`
	Text string      `json:"text,omitempty"`
	File *openaiFile `json:"file,omitempty"`
}

type openaiFile struct {
	FileURL string `json:"file_url"`
}

type openaiResponseFormat struct {
	Type string `json:"type"`
}

type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
	Usage   openaiUsage    `json:"usage"`
}

type openaiChoice struct {
	Message openaiResponseMessage `json:"message"`
}

type openaiResponseMessage struct {
	Content string `json:"content"`
}

type openaiUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Compile-time check that OpenAIExtractor implements DocumentExtractor.
var _ models.DocumentExtractor = (*OpenAIExtractor)(nil)
