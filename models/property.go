package models

import "strings"

type PropertyType string

const (
	PropertyApartment  PropertyType = "apartment"
	PropertyHouse      PropertyType = "house"
	PropertyTownhouse  PropertyType = "townhouse"
	PropertyVilla      PropertyType = "villa"
	PropertyLand       PropertyType = "land"
	PropertyRural      PropertyType = "rural"
	PropertyCommercial PropertyType = "commercial"
	PropertyOther      PropertyType = "other"
)

var PropertyTypes = []PropertyType{
	PropertyApartment, PropertyHouse, PropertyTownhouse, PropertyVilla,
	PropertyLand, PropertyRural, PropertyCommercial, PropertyOther,
}

// ParsePropertyType accepts an exact vocabulary value; anything else is PropertyOther.
func ParsePropertyType(s string) PropertyType {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range PropertyTypes {
		if string(t) == s {
			return t
		}
	}
	return PropertyOther
}

type ListingType string

const (
	ListingSale ListingType = "sale"
	ListingRent ListingType = "rent"
)

// NormalizedProperty is the one record shape every feed strategy produces.
// Optional numeric fields are nil when the source did not carry them.
type NormalizedProperty struct {
	ExternalID   string         `json:"externalId"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	Price        float64        `json:"price"`
	Currency     string         `json:"currency"`
	Address      string         `json:"address,omitempty"`
	City         string         `json:"city"`
	District     string         `json:"district,omitempty"`
	Country      string         `json:"country"`
	CountryCode  string         `json:"countryCode"`
	PropertyType PropertyType   `json:"propertyType"`
	ListingType  ListingType    `json:"listingType"`
	Bedrooms     *int           `json:"bedrooms,omitempty"`
	Bathrooms    *int           `json:"bathrooms,omitempty"`
	Rooms        string         `json:"rooms,omitempty"`
	Area         *float64       `json:"area,omitempty"`
	Floor        *int           `json:"floor,omitempty"`
	TotalFloors  *int           `json:"totalFloors,omitempty"`
	BuildingAge  *int           `json:"buildingAge,omitempty"`
	Images       []string       `json:"images"`
	Features     []string       `json:"features"`
	SourceURL    string         `json:"sourceUrl,omitempty"`
	Raw          map[string]any `json:"raw,omitempty"`
}

// Finalize enforces the record invariants: non-nil slices, closed vocabularies,
// de-duplicated images and features.
func (p *NormalizedProperty) Finalize() {
	p.Images = dedupe(p.Images)
	p.Features = dedupe(p.Features)
	if p.PropertyType == "" {
		p.PropertyType = PropertyOther
	} else {
		p.PropertyType = ParsePropertyType(string(p.PropertyType))
	}
	if p.ListingType != ListingRent {
		p.ListingType = ListingSale
	}
	p.Currency = strings.ToUpper(p.Currency)
	p.CountryCode = strings.ToUpper(p.CountryCode)
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func IntPtr(v int) *int { return &v }

func FloatPtr(v float64) *float64 { return &v }
