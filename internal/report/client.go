package report

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

// Sentinel errors for report service failures.
var (
	ErrReportUnreachable = errors.New("report service unreachable")
	ErrReportFailed      = errors.New("report build failed")
	ErrReportTimeout     = errors.New("report build timeout")
)

// Builder renders client-facing deliverables from a finished evaluation.
type Builder interface {
	BuildWorkbook(ctx context.Context, req BuildRequest) (string, error)
	BuildDashboard(ctx context.Context, req BuildRequest) (string, error)
}

// BuildRequest carries everything the report service needs to render.
type BuildRequest struct {
	Property   models.Property   `json:"property"`
	Evaluation models.Evaluation `json:"evaluation"`
}

// HTTPClient implements Builder against the report service's HTTP API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a new report service client.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// NewBuilder returns the HTTP builder when a report service is configured,
// or a no-op builder otherwise.
func NewBuilder(cfg config.ReportConfig) Builder {
	if cfg.BaseURL == "" {
		return NoopBuilder{}
	}
	return NewHTTPClient(cfg.BaseURL, cfg.Timeout)
}

func (c *HTTPClient) BuildWorkbook(ctx context.Context, req BuildRequest) (string, error) {
	return c.build(ctx, "/api/v1/workbooks", req)
}

func (c *HTTPClient) BuildDashboard(ctx context.Context, req BuildRequest) (string, error) {
	return c.build(ctx, "/api/v1/dashboards", req)
}

func (c *HTTPClient) build(ctx context.Context, path string, req BuildRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: status %d", ErrReportFailed, resp.StatusCode)
	}

	var buildResp buildResponse
	if err := json.NewDecoder(resp.Body).Decode(&buildResp); err != nil {
		return "", fmt.Errorf("decoding report response: %w", err)
	}
	if buildResp.URL == "" {
		return "", fmt.Errorf("%w: empty artifact URL", ErrReportFailed)
	}

	return buildResp.URL, nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrReportTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrReportTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrReportUnreachable, err)
	}

	return fmt.Errorf("%w: %v", ErrReportUnreachable, err)
}

type buildResponse struct {
	URL string `json:"url"`
}

// NoopBuilder satisfies Builder when no report service is configured. Jobs
// still complete; deliverable URLs stay empty.
type NoopBuilder struct{}

func (NoopBuilder) BuildWorkbook(context.Context, BuildRequest) (string, error)  { return "", nil }
func (NoopBuilder) BuildDashboard(context.Context, BuildRequest) (string, error) { return "", nil }

var (
	_ Builder = (*HTTPClient)(nil)
	_ Builder = NoopBuilder{}
)
