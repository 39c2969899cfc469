package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/wastewise/wastewise/internal/config"
	"github.com/wastewise/wastewise/pkg/models"
)

// Cost rates in cents per million tokens.
const (
	anthropicInputCentsPerMTok  = 300
	anthropicOutputCentsPerMTok = 1500
)

// AnthropicExtractor implements models.DocumentExtractor using the Anthropic
// Messages API with URL-referenced documents.
type AnthropicExtractor struct {
	cfg    config.AnthropicConfig
	client *http.Client
}

func NewAnthropicExtractor(cfg config.AnthropicConfig, timeout time.Duration) *AnthropicExtractor {
	return &AnthropicExtractor{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (e *AnthropicExtractor) Name() string { return "anthropic" }

func (e *AnthropicExtractor) Extract(ctx context.Context, req models.ExtractionRequest) (models.ExtractionResult, error) {
	body := anthropicRequest{
		Model:     e.cfg.Model,
		MaxTokens: 4096,
		Messages: []anthropicMessage{
			{
				Role: "user",
				Content: []anthropicContent{
					{
						Type: "document",
						Source: &anthropicSource{
							Type: "url",
							URL:  req.Document.StorageURL,
						},
					},
					{Type: "text", Text: buildPrompt(req)},
				},
			},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return models.ExtractionResult{}, fmt.Errorf("encoding request: %w", err)
	}

	u := e.cfg.BaseURL + "/v1/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return models.ExtractionResult{}, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", e.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return models.ExtractionResult{}, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.ExtractionResult{}, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var apiResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return models.ExtractionResult{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	text := ""
	for _, c := range apiResp.Content {
		if c.Type == "text" {
			text = c.Text
			break
		}
	}
	if text == "" {
		return models.ExtractionResult{}, fmt.Errorf("%w: no text content", ErrInvalidResponse)
	}

	result, err := parsePayload(text, req)
	if err != nil {
		return models.ExtractionResult{}, err
	}

	tokens := apiResp.Usage.InputTokens + apiResp.Usage.OutputTokens
	result.Usage = models.Usage{
		Calls:  1,
		Tokens: tokens,
		CostCents: (apiResp.Usage.InputTokens*anthropicInputCentsPerMTok +
			apiResp.Usage.OutputTokens*anthropicOutputCentsPerMTok) / 1_000_000,
	}
	return result, nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrExtractionTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrExtractionTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}

// --- Anthropic API types ---

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicSource struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Usage   anthropicUsage     `json:"usage"`
}

type anthropicUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Compile-time check that AnthropicExtractor implements DocumentExtractor.
var _ models.DocumentExtractor = (*AnthropicExtractor)(nil)
