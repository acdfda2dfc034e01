package feeds

import (
	"testing"

	"feed_importer/models"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"250000", 250000, true},
		{"1,200.50", 1200.5, true},
		{"$1,250,000", 1250000, true},
		{"1.200,50 €", 1200.5, true},
		{"4.750.000", 4750000, true},
		{"35.000", 35000, true},
		{"1,5", 1.5, true},
		{"0.750", 0.75, true},
		{"120 m²", 120, true},
		{"₺12.500.000", 12500000, true},
		{"1 200 000 €", 1200000, true},
		{"Offers over $1.2m", 1.2, true},
		{"-1", -1, true},
		{"POA", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseNumber(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseNumber(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNormalizePropertyType(t *testing.T) {
	tests := []struct {
		in   string
		want models.PropertyType
	}{
		{"Apartment", models.PropertyApartment},
		{"DAİRE", models.PropertyApartment},
		{"Unit", models.PropertyApartment},
		{"Townhouse", models.PropertyTownhouse},
		{"House", models.PropertyHouse},
		{"Müstakil Ev", models.PropertyHouse},
		{"Villa", models.PropertyVilla},
		{"Arsa", models.PropertyLand},
		{"Acreage/Semi-Rural", models.PropertyRural},
		{"İşyeri", models.PropertyCommercial},
		{"Community centre", models.PropertyOther},
		{"", models.PropertyOther},
		{"castle", models.PropertyOther},
	}
	for _, tt := range tests {
		if got := normalizePropertyType(tt.in); got != tt.want {
			t.Errorf("normalizePropertyType(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeListingType(t *testing.T) {
	tests := []struct {
		in   string
		want models.ListingType
	}{
		{"rent", models.ListingRent},
		{"For Rent", models.ListingRent},
		{"KİRALIK", models.ListingRent},
		{"http://purl.org/goodrelations/v1#LeaseOut", models.ListingRent},
		{"Satılık", models.ListingSale},
		{"for sale", models.ListingSale},
		{"current", models.ListingSale},
		{"", models.ListingSale},
		{"something odd", models.ListingSale},
	}
	for _, tt := range tests {
		if got := normalizeListingType(tt.in); got != tt.want {
			t.Errorf("normalizeListingType(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"eur", "EUR", true},
		{"TL", "TRY", true},
		{"₺", "TRY", true},
		{"£", "GBP", true},
		{"A$", "AUD", true},
		{"$", "", false},
		{"XYZ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := normalizeCurrency(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("normalizeCurrency(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}

	if c, ok := currencyFromText("2.100.000 TL"); !ok || c != "TRY" {
		t.Errorf("currencyFromText(TL) = %q, %v", c, ok)
	}
	if _, ok := currencyFromText("ALL offers considered"); ok {
		t.Error("currencyFromText should ignore ordinary words")
	}
}

func TestLeadingRoomCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"3+1", 3},
		{"5+2", 5},
		{" 2 + 1 ", 2},
		{"4", 4},
		{"Studio", 0},
		{"", -999},
		{"many", -999},
	}
	for _, tt := range tests {
		if got := intValue(leadingRoomCount(tt.in)); got != tt.want {
			t.Errorf("leadingRoomCount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestHumanize(t *testing.T) {
	tests := map[string]string{
		"airConditioning": "Air Conditioning",
		"secure_parking":  "Secure Parking",
		"pool":            "Pool",
	}
	for in, want := range tests {
		if got := humanize(in); got != want {
			t.Errorf("humanize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseMeasure(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"120.125 m2", 120.125, true},
		{"85", 85, true},
		{"1,250 sqft", 1250, true},
		{"1.250,5", 1250.5, true},
		{"1.250.000", 1250000, true},
		{"72,5 m²", 72.5, true},
		{"n/a", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseMeasure(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseMeasure(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestConvertArea(t *testing.T) {
	if got := convertArea(2, "hectare"); got != 20000 {
		t.Errorf("2 hectare = %v", got)
	}
	if got := convertArea(180, "squareMeter"); got != 180 {
		t.Errorf("180 squareMeter = %v", got)
	}
	if got := convertArea(1000, "squareFeet"); got < 92.9 || got > 92.91 {
		t.Errorf("1000 squareFeet = %v", got)
	}
}
