package extract

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wastewise/wastewise/pkg/models"
)

// MockExtractor satisfies models.DocumentExtractor for testing and local
// development without a provider key.
type MockExtractor struct {
	Name_       string
	ExtractFunc func(ctx context.Context, req models.ExtractionRequest) (models.ExtractionResult, error)
}

func (m *MockExtractor) Name() string { return m.Name_ }

func (m *MockExtractor) Extract(ctx context.Context, req models.ExtractionRequest) (models.ExtractionResult, error) {
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, req)
	}
	return models.ExtractionResult{}, nil
}

// NewMockExtractor returns a MockExtractor with sensible default responses:
// one invoice and two hauls per document.
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{
		Name_: "mock",
		ExtractFunc: func(_ context.Context, req models.ExtractionRequest) (models.ExtractionResult, error) {
			now := time.Now().UTC()
			return models.ExtractionResult{
				Invoices: []models.Invoice{
					{
						ID:            uuid.New(),
						PropertyID:    req.Property.ID,
						Month:         "01/2025",
						InvoiceNumber: "MOCK-0001",
						Disposal:      2400,
						PickupFees:    300,
						Contamination: 150,
						Bulk:          600,
						CreatedAt:     now,
					},
				},
				Hauls: []models.HaulRecord{
					{
						ID:         uuid.New(),
						PropertyID: req.Property.ID,
						HaulDate:   time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
						Tons:       5.2,
						CreatedAt:  now,
					},
					{
						ID:         uuid.New(),
						PropertyID: req.Property.ID,
						HaulDate:   time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC),
						Tons:       4.8,
						CreatedAt:  now,
					},
				},
				Confidence: 0.95,
				Usage:      models.Usage{Calls: 1, Tokens: 1200, CostCents: 1},
			}, nil
		},
	}
}

// NewFailingExtractor returns a MockExtractor that always returns the given error.
func NewFailingExtractor(err error) *MockExtractor {
	return &MockExtractor{
		Name_: "mock-failing",
		ExtractFunc: func(_ context.Context, _ models.ExtractionRequest) (models.ExtractionResult, error) {
			return models.ExtractionResult{}, err
		},
	}
}

// NewTimeoutExtractor returns a MockExtractor that blocks until context is cancelled.
func NewTimeoutExtractor() *MockExtractor {
	return &MockExtractor{
		Name_: "mock-timeout",
		ExtractFunc: func(ctx context.Context, _ models.ExtractionRequest) (models.ExtractionResult, error) {
			<-ctx.Done()
			return models.ExtractionResult{}, ErrExtractionTimeout
		},
	}
}

// Compile-time check that MockExtractor implements DocumentExtractor.
var _ models.DocumentExtractor = (*MockExtractor)(nil)
