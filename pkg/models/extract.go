package models

import "context"

// DocumentExtractor is the core interface all extraction integrations must
// implement. Never call a specific provider directly — always inject this
// interface.
type DocumentExtractor interface {
	// Extract turns one uploaded document into structured invoice and haul
	// line items, reporting the provider usage consumed by the call.
	Extract(ctx context.Context, req ExtractionRequest) (ExtractionResult, error)
	// Name returns the provider identifier (e.g., "anthropic", "openai").
	Name() string
}

// ExtractionRequest is the input to a document extraction operation.
type ExtractionRequest struct {
	Document Document
	Property Property
}

// ExtractionResult holds the structured line items pulled from one document.
type ExtractionResult struct {
	Invoices []Invoice
	Hauls    []HaulRecord
	// Confidence in [0,1] as reported by the provider's validation pass.
	Confidence float64
	Usage      Usage
}
