package feeds

import (
	"context"
	"testing"

	"feed_importer/models"
)

func TestGenericCSVQuotedComma(t *testing.T) {
	g := NewGeneric(testOptions(nil))
	content := "id,title,price,city\n\"1\",\"Flat A\",\"1,200.50\",\"Sydney\""

	if !g.CanHandle(content, "") {
		t.Fatal("expected CanHandle to accept CSV")
	}
	records, err := g.Parse(context.Background(), content, "AU")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	p := records[0]
	if p.Price != 1200.5 {
		t.Fatalf("expected price 1200.5, got %v", p.Price)
	}
	if p.City != "Sydney" {
		t.Fatalf("expected city Sydney, got %q", p.City)
	}
	if p.ExternalID != "1" || p.Title != "Flat A" {
		t.Fatalf("unexpected id/title %q/%q", p.ExternalID, p.Title)
	}
	if p.Currency != "AUD" || p.CountryCode != "AU" {
		t.Fatalf("expected AUD/AU from hint, got %s/%s", p.Currency, p.CountryCode)
	}
}

func TestGenericZeroAreaMeansUnknown(t *testing.T) {
	g := NewGeneric(testOptions(nil))
	content := "id,title,price,city,area,sqft\n1,Plot,100,Berlin,0,\n2,Flat,200,Berlin,85.125,\n3,Loft,300,Berlin,0,0"

	records, err := g.Parse(context.Background(), content, "DE")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].Area != nil || records[2].Area != nil {
		t.Fatalf("expected zero areas to stay unset, got %v and %v", records[0].Area, records[2].Area)
	}
	if floatValue(records[1].Area) != 85.125 {
		t.Fatalf("expected area 85.125, got %v", floatValue(records[1].Area))
	}
}

func TestGenericJSONEndToEndRecord(t *testing.T) {
	g := NewGeneric(testOptions(nil))
	content := `[{"id":"a1","title":"Test","price":250000,"city":"Berlin","country":"Germany"}]`

	records, err := g.Parse(context.Background(), content, "")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	p := records[0]
	if p.ExternalID != "a1" || p.Title != "Test" || p.Price != 250000 || p.City != "Berlin" {
		t.Fatalf("unexpected record %+v", p)
	}
	if p.CountryCode != "DE" || p.Currency != "EUR" {
		t.Fatalf("expected DE/EUR, got %s/%s", p.CountryCode, p.Currency)
	}
	if p.PropertyType != models.PropertyOther {
		t.Fatalf("expected property type other, got %s", p.PropertyType)
	}
	if p.ListingType != models.ListingSale {
		t.Fatalf("expected listing type sale, got %s", p.ListingType)
	}
	if p.Images == nil || p.Features == nil {
		t.Fatal("images and features must never be nil")
	}
}

func TestGenericJSONWrapperAndSynonyms(t *testing.T) {
	g := NewGeneric(testOptions(nil))
	content := `{
		"listings": [
			{"ref": "x-1", "name": "Kiralık daire", "fiyat": "15.000 TL", "location": {"sehir": "İzmir", "ilce": "Konak"},
			 "emlak_tipi": "Daire", "ilan_tipi": "Kiralık", "oda_sayisi": "2+1", "m2": "95", "photos": ["https://a/1.jpg", null, "https://a/1.jpg"]},
			{"id": "x-2", "title": "Rental house", "rent": 2100, "city": "Leeds", "currency": "gbp", "sqft": 1000, "year_built": 2000},
			"junk"
		]
	}`

	records, err := g.Parse(context.Background(), content, "")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	tr := records[0]
	if tr.ExternalID != "x-1" || tr.Price != 15000 || tr.Currency != "TRY" {
		t.Fatalf("unexpected first record %+v", tr)
	}
	if tr.City != "İzmir" || tr.District != "Konak" {
		t.Fatalf("expected İzmir/Konak, got %q/%q", tr.City, tr.District)
	}
	if tr.PropertyType != models.PropertyApartment || tr.ListingType != models.ListingRent {
		t.Fatalf("expected apartment/rent, got %s/%s", tr.PropertyType, tr.ListingType)
	}
	if tr.Rooms != "2+1" || intValue(tr.Bedrooms) != 2 {
		t.Fatalf("expected rooms 2+1 and 2 bedrooms, got %q/%d", tr.Rooms, intValue(tr.Bedrooms))
	}
	if floatValue(tr.Area) != 95 {
		t.Fatalf("expected area 95, got %v", floatValue(tr.Area))
	}
	if len(tr.Images) != 1 {
		t.Fatalf("expected 1 de-duplicated image, got %v", tr.Images)
	}

	uk := records[1]
	if uk.ListingType != models.ListingRent {
		t.Fatalf("expected rent from rent column, got %s", uk.ListingType)
	}
	if uk.Currency != "GBP" || uk.CountryCode != "TR" {
		t.Fatalf("expected explicit GBP with default country TR, got %s/%s", uk.Currency, uk.CountryCode)
	}
	if a := floatValue(uk.Area); a < 92.9 || a > 92.91 {
		t.Fatalf("expected sqft converted to ~92.9 m², got %v", a)
	}
	if intValue(uk.BuildingAge) != 25 {
		t.Fatalf("expected building age 25, got %d", intValue(uk.BuildingAge))
	}
	if uk.PropertyType != models.PropertyOther {
		t.Fatalf("expected other without a type field, got %s", uk.PropertyType)
	}
}

func TestGenericSemicolonCSVWithTurkishHeaders(t *testing.T) {
	g := NewGeneric(testOptions(nil))
	content := "İlan No;Başlık;Fiyat;Şehir;Emlak Tipi\n" +
		"55;Deniz manzaralı villa;\"3.250.000\";Antalya;Villa\n" +
		";;;;\n" +
		"56;Arsa;750000;Mersin;Arsa\n"

	records, err := g.Parse(context.Background(), content, "TR")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records (blank row skipped), got %d", len(records))
	}
	if records[0].ExternalID != "55" || records[0].Price != 3250000 || records[0].City != "Antalya" {
		t.Fatalf("unexpected first record %+v", records[0])
	}
	if records[0].PropertyType != models.PropertyVilla || records[1].PropertyType != models.PropertyLand {
		t.Fatalf("unexpected types %s/%s", records[0].PropertyType, records[1].PropertyType)
	}
	if records[0].Currency != "TRY" {
		t.Fatalf("expected TRY default, got %s", records[0].Currency)
	}
}

func TestGenericMissingIDUsesFingerprint(t *testing.T) {
	g := NewGeneric(testOptions(nil))
	content := `[{"title":"No id","price":"100000","city":"Paris","address":"1 Rue de Rivoli"}]`

	first, err := g.Parse(context.Background(), content, "FR")
	if err != nil || len(first) != 1 {
		t.Fatalf("parse failed: %v (%d records)", err, len(first))
	}
	second, _ := g.Parse(context.Background(), content, "FR")
	if first[0].ExternalID == "" || first[0].ExternalID != second[0].ExternalID {
		t.Fatalf("expected stable fallback id, got %q and %q", first[0].ExternalID, second[0].ExternalID)
	}
	if first[0].Currency != "EUR" {
		t.Fatalf("expected EUR for FR, got %s", first[0].Currency)
	}
}

func TestGenericCanHandle(t *testing.T) {
	g := NewGeneric(testOptions(nil))
	tests := []struct {
		content string
		want    bool
	}{
		{`[{"id":1}]`, true},
		{`{"properties":[]}`, true},
		{`{broken`, false},
		{"a,b\n1,2", true},
		{"a;b\n1;2", true},
		{"<xml>,\n</xml>", false},
		{"https://example.com/feed.csv", false},
		{"just one line, no newline", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := g.CanHandle(tt.content, ""); got != tt.want {
			t.Errorf("CanHandle(%q) = %v, want %v", tt.content, got, tt.want)
		}
	}
}
