package feeds

import (
	"context"
	"reflect"
	"testing"

	"feed_importer/models"
)

func TestTurkishXMLCanHandle(t *testing.T) {
	tr := NewTurkishXML(testOptions(nil))
	portal := string(loadFixture(t, "tr_ilanlar.xml"))
	unknown := string(loadFixture(t, "tr_unknown_root.xml"))

	if !tr.CanHandle(portal, "") {
		t.Fatal("expected portal markers to be recognised without a hint")
	}
	if tr.CanHandle(unknown, "") {
		t.Fatal("expected unmarked XML to be declined without a hint")
	}
	if !tr.CanHandle(unknown, "tr") {
		t.Fatal("expected any XML to be accepted with a TR hint")
	}
	if tr.CanHandle(`{"fiyat": 1}`, "TR") {
		t.Fatal("expected JSON to be declined")
	}
}

func TestTurkishXMLPortalExport(t *testing.T) {
	tr := NewTurkishXML(testOptions(nil))
	records, err := tr.Parse(context.Background(), string(loadFixture(t, "tr_ilanlar.xml")), "TR")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records (empty listing omitted), got %d", len(records))
	}

	p := records[0]
	if p.ExternalID != "TR-1001" {
		t.Fatalf("expected TR-1001 first, got %s", p.ExternalID)
	}
	if p.Price != 4750000 || p.Currency != "TRY" {
		t.Fatalf("unexpected price %v %s", p.Price, p.Currency)
	}
	if p.City != "İstanbul" || p.District != "Kadıköy" {
		t.Fatalf("unexpected location %q / %q", p.City, p.District)
	}
	if p.CountryCode != "TR" || p.Country != "Turkey" {
		t.Fatalf("unexpected country %s %s", p.CountryCode, p.Country)
	}
	if p.PropertyType != models.PropertyApartment || p.ListingType != models.ListingSale {
		t.Fatalf("unexpected types %s/%s", p.PropertyType, p.ListingType)
	}
	if p.Rooms != "3+1" || intValue(p.Bedrooms) != 3 || intValue(p.Bathrooms) != 2 {
		t.Fatalf("unexpected rooms %q bedrooms %d bathrooms %d", p.Rooms, intValue(p.Bedrooms), intValue(p.Bathrooms))
	}
	if floatValue(p.Area) != 145 {
		t.Fatalf("expected gross area 145, got %v", floatValue(p.Area))
	}
	if intValue(p.Floor) != 0 || intValue(p.TotalFloors) != 6 || intValue(p.BuildingAge) != 5 {
		t.Fatalf("unexpected floor %d/%d age %d", intValue(p.Floor), intValue(p.TotalFloors), intValue(p.BuildingAge))
	}
	wantFeatures := []string{"Parking", "Elevator", "Balkon", "Security", "Ankastre"}
	if !reflect.DeepEqual(p.Features, wantFeatures) {
		t.Fatalf("features = %v, want %v", p.Features, wantFeatures)
	}
	wantImages := []string{
		"https://cdn.example.com.tr/1001/1.jpg",
		"https://cdn.example.com.tr/1001/2.jpg",
	}
	if !reflect.DeepEqual(p.Images, wantImages) {
		t.Fatalf("images = %v, want %v", p.Images, wantImages)
	}
	if p.SourceURL != "https://denizemlak.example.com.tr/ilan/1001" {
		t.Fatalf("unexpected source url %q", p.SourceURL)
	}
	if p.Raw == nil {
		t.Fatal("expected raw element map")
	}
}

func TestTurkishXMLVendorVariations(t *testing.T) {
	tr := NewTurkishXML(testOptions(nil))
	records, err := tr.Parse(context.Background(), string(loadFixture(t, "tr_ilanlar.xml")), "TR")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	office := records[1]
	if office.ExternalID != "TR-1002" {
		t.Fatalf("expected TR-1002, got %s", office.ExternalID)
	}
	if office.Price != 35000 || office.Currency != "TRY" {
		t.Fatalf("nested price: got %v %s", office.Price, office.Currency)
	}
	if office.PropertyType != models.PropertyCommercial || office.ListingType != models.ListingRent {
		t.Fatalf("unexpected types %s/%s", office.PropertyType, office.ListingType)
	}
	if office.City != "Ankara" || office.District != "Çankaya" {
		t.Fatalf("unexpected location %q / %q", office.City, office.District)
	}
	if floatValue(office.Area) != 90 || intValue(office.Floor) != -1 || intValue(office.BuildingAge) != 0 {
		t.Fatalf("area %v floor %d age %d", floatValue(office.Area), intValue(office.Floor), intValue(office.BuildingAge))
	}
	if !reflect.DeepEqual(office.Features, []string{"Air Conditioning"}) {
		t.Fatalf("unexpected features %v", office.Features)
	}

	villa := records[2]
	if villa.Price != 850000 || villa.Currency != "EUR" {
		t.Fatalf("expected 850000 EUR from price text, got %v %s", villa.Price, villa.Currency)
	}
	if villa.PropertyType != models.PropertyVilla || villa.ListingType != models.ListingSale {
		t.Fatalf("unexpected types %s/%s", villa.PropertyType, villa.ListingType)
	}
	if villa.City != "Muğla" || villa.District != "Bodrum" || intValue(villa.Bedrooms) != 5 {
		t.Fatalf("unexpected villa %+v", villa)
	}
	if !reflect.DeepEqual(villa.Features, []string{"Pool", "Garden"}) {
		t.Fatalf("unexpected features %v", villa.Features)
	}
}

func TestTurkishXMLUnknownRoot(t *testing.T) {
	tr := NewTurkishXML(testOptions(nil))
	records, err := tr.Parse(context.Background(), string(loadFixture(t, "tr_unknown_root.xml")), "TR")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records found by content, got %d", len(records))
	}

	farm, plot := records[0], records[1]
	if farm.ExternalID != "K-1" || farm.PropertyType != models.PropertyRural {
		t.Fatalf("unexpected first record %s %s", farm.ExternalID, farm.PropertyType)
	}
	if farm.Price != 2100000 || farm.Currency != "TRY" || farm.City != "İzmir" {
		t.Fatalf("unexpected farm %v %s %s", farm.Price, farm.Currency, farm.City)
	}
	if intValue(farm.Bedrooms) != 4 || floatValue(farm.Area) != 220 {
		t.Fatalf("bedrooms %d area %v", intValue(farm.Bedrooms), floatValue(farm.Area))
	}
	if plot.ExternalID != "K-2" || plot.PropertyType != models.PropertyLand {
		t.Fatalf("unexpected second record %s %s", plot.ExternalID, plot.PropertyType)
	}
	if plot.Price != 900000 || floatValue(plot.Area) != 1500 {
		t.Fatalf("plot price %v area %v", plot.Price, floatValue(plot.Area))
	}
}

func TestTurkishXMLLatin5Encoding(t *testing.T) {
	tr := NewTurkishXML(testOptions(nil))
	records, err := tr.Parse(context.Background(), string(loadFixture(t, "tr_latin5.xml")), "TR")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	p := records[0]
	if p.District != "Şişli" || p.City != "İstanbul" {
		t.Fatalf("charset not decoded: %q / %q", p.City, p.District)
	}
	if p.ListingType != models.ListingRent || p.Price != 25000 {
		t.Fatalf("unexpected %s %v", p.ListingType, p.Price)
	}
}

func TestTurkishXMLNoListings(t *testing.T) {
	tr := NewTurkishXML(testOptions(nil))
	records, err := tr.Parse(context.Background(), `<ilanlar><bilgi>bos</bilgi></ilanlar>`, "TR")
	if err != nil {
		t.Fatalf("expected no error for an empty export, got %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
}

func TestTurkishXMLTruncatedExport(t *testing.T) {
	tr := NewTurkishXML(testOptions(nil))
	feed := `<?xml version="1.0" encoding="UTF-8"?>
<ilanlar>
  <ilan>
    <ilan_no>TR-9</ilan_no>
    <baslik>Satılık Daire</baslik>
    <fiyat>2.500.000</fiyat>
    <konum><il>İzmir</il><ilce>Bornova</ilce></konum>
  </ilan>
  <ilan>
    <ilan_no>TR-10</ilan_no>
    <fiyat>1.000`

	records, err := tr.Parse(context.Background(), feed, "TR")
	if err != nil {
		t.Fatalf("expected the complete listing to survive, got %v", err)
	}
	if len(records) != 1 || records[0].ExternalID != "TR-9" || records[0].Price != 2500000 {
		t.Fatalf("expected only TR-9, got %+v", records)
	}

	if _, err := tr.Parse(context.Background(), `<ilanlar><ilan><ilan_no>X`, "TR"); err == nil {
		t.Fatal("expected error when no listing is complete")
	}
}

func TestParseFloorAndAge(t *testing.T) {
	floors := []struct {
		in   string
		want int
	}{
		{"3", 3},
		{"Zemin Kat", 0},
		{"Bahçe Katı", 0},
		{"Bodrum Kat", -1},
		{"Kot 2", -2},
	}
	for _, tt := range floors {
		if got := intValue(parseFloor(tt.in)); got != tt.want {
			t.Errorf("parseFloor(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
	if parseFloor("") != nil {
		t.Error("expected nil floor for empty input")
	}

	ages := []struct {
		in   string
		want int
	}{
		{"0", 0},
		{"Sıfır Bina", 0},
		{"5-10 arası", 5},
		{"21 ve üzeri", 21},
	}
	for _, tt := range ages {
		if got := intValue(parseBuildingAge(tt.in)); got != tt.want {
			t.Errorf("parseBuildingAge(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
