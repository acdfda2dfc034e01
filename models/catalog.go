package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SourceImport marks catalog rows created by the feed importer.
const SourceImport = "import"

// CatalogRow is one persisted listing, unique per (tenant, external id).
type CatalogRow struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	TenantID     string          `json:"tenant_id" db:"tenant_id"`
	ExternalID   string          `json:"external_id" db:"external_id"`
	Source       string          `json:"source" db:"source"`
	Title        string          `json:"title" db:"title"`
	Description  string          `json:"description" db:"description"`
	Price        float64         `json:"price" db:"price"`
	Currency     string          `json:"currency" db:"currency"`
	Address      string          `json:"address" db:"address"`
	City         string          `json:"city" db:"city"`
	District     string          `json:"district" db:"district"`
	Country      string          `json:"country" db:"country"`
	CountryCode  string          `json:"country_code" db:"country_code"`
	PropertyType string          `json:"property_type" db:"property_type"`
	ListingType  string          `json:"listing_type" db:"listing_type"`
	Bedrooms     *int            `json:"bedrooms" db:"bedrooms"`
	Bathrooms    *int            `json:"bathrooms" db:"bathrooms"`
	Rooms        string          `json:"rooms" db:"rooms"`
	Area         *float64        `json:"area" db:"area"`
	Floor        *int            `json:"floor" db:"floor"`
	TotalFloors  *int            `json:"total_floors" db:"total_floors"`
	BuildingAge  *int            `json:"building_age" db:"building_age"`
	Images       []string        `json:"images" db:"images"`
	Features     []string        `json:"features" db:"features"`
	SourceURL    string          `json:"source_url" db:"source_url"`
	RawData      json.RawMessage `json:"raw_data" db:"raw_data"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// NewCatalogRow builds a fresh row for a record that has no catalog entry yet.
func NewCatalogRow(tenantID string, p *NormalizedProperty, now time.Time) *CatalogRow {
	row := &CatalogRow{
		ID:         uuid.New(),
		TenantID:   tenantID,
		ExternalID: p.ExternalID,
		Source:     SourceImport,
		CreatedAt:  now,
	}
	row.Apply(p, now)
	return row
}

// Apply copies every mutable field from p and stamps UpdatedAt.
func (r *CatalogRow) Apply(p *NormalizedProperty, now time.Time) {
	r.Title = p.Title
	r.Description = p.Description
	r.Price = p.Price
	r.Currency = p.Currency
	r.Address = p.Address
	r.City = p.City
	r.District = p.District
	r.Country = p.Country
	r.CountryCode = p.CountryCode
	r.PropertyType = string(p.PropertyType)
	r.ListingType = string(p.ListingType)
	r.Bedrooms = p.Bedrooms
	r.Bathrooms = p.Bathrooms
	r.Rooms = p.Rooms
	r.Area = p.Area
	r.Floor = p.Floor
	r.TotalFloors = p.TotalFloors
	r.BuildingAge = p.BuildingAge
	r.Images = append([]string(nil), p.Images...)
	r.Features = append([]string(nil), p.Features...)
	r.SourceURL = p.SourceURL
	r.RawData = nil
	if len(p.Raw) > 0 {
		if b, err := json.Marshal(p.Raw); err == nil {
			r.RawData = b
		}
	}
	r.UpdatedAt = now
}
