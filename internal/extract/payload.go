package extract

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wastewise/wastewise/pkg/models"
)

// extractionPayload is the JSON document every provider is prompted to
// return. Both providers share this schema so their responses are
// interchangeable downstream.
type extractionPayload struct {
	Invoices   []payloadInvoice `json:"invoices"`
	Hauls      []payloadHaul    `json:"hauls"`
	Confidence float64          `json:"confidence"`
}

type payloadInvoice struct {
	Month         string  `json:"month"` // MM/YYYY
	InvoiceNumber string  `json:"invoice_number"`
	Disposal      float64 `json:"disposal"`
	PickupFees    float64 `json:"pickup_fees"`
	Rental        float64 `json:"rental"`
	Contamination float64 `json:"contamination"`
	Bulk          float64 `json:"bulk"`
	Other         float64 `json:"other"`
}

type payloadHaul struct {
	Date string  `json:"date"` // YYYY-MM-DD
	Tons float64 `json:"tons"`
}

// buildPrompt produces the extraction instruction sent alongside the
// document. Property context helps the model disambiguate multi-site
// invoices.
func buildPrompt(req models.ExtractionRequest) string {
	var b strings.Builder
	b.WriteString("Extract all waste-service line items from the attached document for the property ")
	fmt.Fprintf(&b, "%q (%d units).\n\n", req.Property.Name, req.Property.Units)
	b.WriteString("Respond with a single JSON object and nothing else, using this schema:\n")
	b.WriteString(`{"invoices":[{"month":"MM/YYYY","invoice_number":"","disposal":0,"pickup_fees":0,"rental":0,"contamination":0,"bulk":0,"other":0}],` + "\n")
	b.WriteString(`"hauls":[{"date":"YYYY-MM-DD","tons":0.0}],` + "\n")
	b.WriteString(`"confidence":0.0}` + "\n\n")
	b.WriteString("All amounts are USD. Put charges that fit no category into \"other\". ")
	b.WriteString("Include a haul entry per pickup event with measured tonnage. ")
	b.WriteString("Set confidence in [0,1] to how certain you are the values are complete and correct.")
	return b.String()
}

// parsePayload converts raw model output into an ExtractionResult. Models
// sometimes wrap JSON in markdown fences despite instructions, so those are
// stripped first.
func parsePayload(text string, req models.ExtractionRequest) (models.ExtractionResult, error) {
	text = stripFences(text)

	var payload extractionPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return models.ExtractionResult{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	now := time.Now().UTC()
	result := models.ExtractionResult{
		Confidence: clamp01(payload.Confidence),
	}

	for _, inv := range payload.Invoices {
		if _, err := time.Parse("01/2006", inv.Month); err != nil {
			return models.ExtractionResult{}, fmt.Errorf("%w: invoice month %q", ErrInvalidResponse, inv.Month)
		}
		result.Invoices = append(result.Invoices, models.Invoice{
			ID:            uuid.New(),
			PropertyID:    req.Property.ID,
			Month:         inv.Month,
			InvoiceNumber: inv.InvoiceNumber,
			Disposal:      inv.Disposal,
			PickupFees:    inv.PickupFees,
			Rental:        inv.Rental,
			Contamination: inv.Contamination,
			Bulk:          inv.Bulk,
			Other:         inv.Other,
			CreatedAt:     now,
		})
	}

	for _, haul := range payload.Hauls {
		date, err := time.Parse("2006-01-02", haul.Date)
		if err != nil {
			return models.ExtractionResult{}, fmt.Errorf("%w: haul date %q", ErrInvalidResponse, haul.Date)
		}
		if haul.Tons < 0 {
			return models.ExtractionResult{}, fmt.Errorf("%w: negative tonnage %v", ErrInvalidResponse, haul.Tons)
		}
		result.Hauls = append(result.Hauls, models.HaulRecord{
			ID:         uuid.New(),
			PropertyID: req.Property.ID,
			HaulDate:   date.UTC(),
			Tons:       haul.Tons,
			CreatedAt:  now,
		})
	}

	return result, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
