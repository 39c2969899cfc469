package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PropertyClassGarden   = "garden"
	PropertyClassMidRise  = "mid-rise"
	PropertyClassHighRise = "high-rise"
	PropertyClassMixedUse = "mixed-use"
)

const (
	PropertyStatusLeaseUp    = "lease-up"
	PropertyStatusStabilized = "stabilized"
	PropertyStatusValueAdd   = "value-add"
)

// Property is the unit a job analyzes: a multifamily site with waste service.
type Property struct {
	ID            uuid.UUID `db:"id"             json:"id"`
	Name          string    `db:"name"           json:"name"`
	Units         int       `db:"units"          json:"units"`
	PropertyClass string    `db:"property_class" json:"property_class"`
	OccupancyPct  float64   `db:"occupancy_pct"  json:"occupancy_pct"`
	Status        string    `db:"status"         json:"status"`
	HasCompactor  bool      `db:"has_compactor"  json:"has_compactor"`
	CostPerHaul   float64   `db:"cost_per_haul"  json:"cost_per_haul"`
	CreatedAt     time.Time `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"     json:"updated_at"`
}

// Invoice is one month of extracted waste-service charges.
type Invoice struct {
	ID            uuid.UUID `db:"id"             json:"id"`
	PropertyID    uuid.UUID `db:"property_id"    json:"property_id"`
	Month         string    `db:"month"          json:"month"` // MM/YYYY
	InvoiceNumber string    `db:"invoice_number" json:"invoice_number"`
	Disposal      float64   `db:"disposal"       json:"disposal"`
	PickupFees    float64   `db:"pickup_fees"    json:"pickup_fees"`
	Rental        float64   `db:"rental"         json:"rental"`
	Contamination float64   `db:"contamination"  json:"contamination"`
	Bulk          float64   `db:"bulk"           json:"bulk"`
	Other         float64   `db:"other"          json:"other"`
	CreatedAt     time.Time `db:"created_at"     json:"created_at"`
}

// Total returns the invoice's total spend across all line items.
func (i *Invoice) Total() float64 {
	return i.Disposal + i.PickupFees + i.Rental + i.Contamination + i.Bulk + i.Other
}

// HaulRecord is a single waste-collection pickup event.
type HaulRecord struct {
	ID         uuid.UUID `db:"id"          json:"id"`
	PropertyID uuid.UUID `db:"property_id" json:"property_id"`
	HaulDate   time.Time `db:"haul_date"   json:"haul_date"`
	Tons       float64   `db:"tons"        json:"tons"`
	CreatedAt  time.Time `db:"created_at"  json:"created_at"`
}

// Document is an uploaded invoice or haul log awaiting extraction. Files
// themselves live in external object storage; only the reference is kept.
type Document struct {
	ID          uuid.UUID  `db:"id"           json:"id"`
	PropertyID  uuid.UUID  `db:"property_id"  json:"property_id"`
	FileName    string     `db:"file_name"    json:"file_name"`
	StorageURL  string     `db:"storage_url"  json:"storage_url"`
	ContentType string     `db:"content_type" json:"content_type"`
	ExtractedAt *time.Time `db:"extracted_at" json:"extracted_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at"   json:"created_at"`
}

// User is the identity a job runs on behalf of.
type User struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Email     string    `db:"email"      json:"email"`
	Name      string    `db:"name"       json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
