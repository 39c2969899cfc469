package extract

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/wastewise/wastewise/internal/config"
	"github.com/wastewise/wastewise/pkg/models"
)

// --- helpers ---

func testRequest() models.ExtractionRequest {
	return models.ExtractionRequest{
		Document: models.Document{
			ID:          uuid.New(),
			FileName:    "jan-invoice.pdf",
			StorageURL:  "https://docs.example.com/jan-invoice.pdf",
			ContentType: "application/pdf",
		},
		Property: models.Property{
			ID:    uuid.New(),
			Name:  "Test Gardens",
			Units: 250,
		},
	}
}

func newAnthropicTestExtractor(baseURL string) *AnthropicExtractor {
	return NewAnthropicExtractor(config.AnthropicConfig{
		BaseURL: baseURL,
		APIKey:  "sk-ant-test",
		Model:   "claude-sonnet-4-5-20250929",
	}, 5*time.Second)
}

const validPayload = `{
	"invoices": [
		{"month": "01/2025", "invoice_number": "INV-100", "disposal": 2400, "pickup_fees": 300, "contamination": 150, "bulk": 600}
	],
	"hauls": [
		{"date": "2025-01-06", "tons": 5.2},
		{"date": "2025-01-16", "tons": 4.8}
	],
	"confidence": 0.93
}`

// --- Extract tests ---

func TestAnthropicExtract_ValidResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if r.Header.Get("x-api-key") != "sk-ant-test" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Errorf("missing anthropic-version header")
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if len(req.Messages) != 1 || len(req.Messages[0].Content) != 2 {
			t.Errorf("unexpected message shape")
		}
		if req.Messages[0].Content[0].Source.URL != "https://docs.example.com/jan-invoice.pdf" {
			t.Errorf("unexpected document URL: %s", req.Messages[0].Content[0].Source.URL)
		}

		resp := anthropicResponse{
			Content: []anthropicContent{{Type: "text", Text: validPayload}},
			Usage:   anthropicUsage{InputTokens: 2_000_000, OutputTokens: 1_000_000},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()

	e := newAnthropicTestExtractor(ts.URL)
	req := testRequest()
	result, err := e.Extract(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Invoices) != 1 {
		t.Fatalf("expected 1 invoice, got %d", len(result.Invoices))
	}
	inv := result.Invoices[0]
	if inv.Month != "01/2025" {
		t.Errorf("unexpected month: %s", inv.Month)
	}
	if inv.PropertyID != req.Property.ID {
		t.Errorf("invoice not stamped with property id")
	}
	if got := inv.Total(); got != 3450 {
		t.Errorf("expected total 3450, got %v", got)
	}

	if len(result.Hauls) != 2 {
		t.Fatalf("expected 2 hauls, got %d", len(result.Hauls))
	}
	if !result.Hauls[0].HaulDate.Equal(time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected haul date: %v", result.Hauls[0].HaulDate)
	}

	if result.Confidence != 0.93 {
		t.Errorf("unexpected confidence: %v", result.Confidence)
	}
	if result.Usage.Calls != 1 {
		t.Errorf("expected 1 call, got %d", result.Usage.Calls)
	}
	if result.Usage.Tokens != 3_000_000 {
		t.Errorf("unexpected tokens: %d", result.Usage.Tokens)
	}
	// 2M input at 300 + 1M output at 1500 cents per MTok.
	if result.Usage.CostCents != 2100 {
		t.Errorf("unexpected cost: %d", result.Usage.CostCents)
	}
}

func TestAnthropicExtract_FencedJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := anthropicResponse{
			Content: []anthropicContent{{Type: "text", Text: "```json\n" + validPayload + "\n```"}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()

	e := newAnthropicTestExtractor(ts.URL)
	result, err := e.Extract(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Invoices) != 1 || len(result.Hauls) != 2 {
		t.Errorf("fenced payload not parsed")
	}
}

func TestAnthropicExtract_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	e := newAnthropicTestExtractor(ts.URL)
	_, err := e.Extract(context.Background(), testRequest())
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestAnthropicExtract_MalformedPayload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := anthropicResponse{
			Content: []anthropicContent{{Type: "text", Text: "sorry, I could not read the document"}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()

	e := newAnthropicTestExtractor(ts.URL)
	_, err := e.Extract(context.Background(), testRequest())
	if !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestAnthropicExtract_BadHaulDate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := anthropicResponse{
			Content: []anthropicContent{{Type: "text", Text: `{"hauls":[{"date":"Jan 6","tons":5.2}],"confidence":0.9}`}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()

	e := newAnthropicTestExtractor(ts.URL)
	_, err := e.Extract(context.Background(), testRequest())
	if !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestAnthropicExtract_Unreachable(t *testing.T) {
	e := newAnthropicTestExtractor("http://127.0.0.1:1")
	_, err := e.Extract(context.Background(), testRequest())
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestAnthropicExtract_ContextCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server notices the client abort and
		// cancels the request context; otherwise Close deadlocks.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	e := newAnthropicTestExtractor(ts.URL)
	_, err := e.Extract(ctx, testRequest())
	if !errors.Is(err, ErrExtractionTimeout) {
		t.Errorf("expected ErrExtractionTimeout, got %v", err)
	}
}

// --- payload parsing edge cases ---

func TestParsePayload_ConfidenceClamped(t *testing.T) {
	req := testRequest()
	result, err := parsePayload(`{"confidence": 1.7}`, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Confidence != 1 {
		t.Errorf("expected clamp to 1, got %v", result.Confidence)
	}

	result, err = parsePayload(`{"confidence": -0.2}`, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Confidence != 0 {
		t.Errorf("expected clamp to 0, got %v", result.Confidence)
	}
}

func TestParsePayload_BadMonth(t *testing.T) {
	_, err := parsePayload(`{"invoices":[{"month":"2025-01"}]}`, testRequest())
	if !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestParsePayload_NegativeTons(t *testing.T) {
	_, err := parsePayload(`{"hauls":[{"date":"2025-01-06","tons":-1}]}`, testRequest())
	if !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("expected ErrInvalidResponse, got %v", err)
	}
}
