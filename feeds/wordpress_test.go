package feeds

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"feed_importer/httputil"
	"feed_importer/models"
)

func decodeItems(t *testing.T, data []byte) []any {
	t.Helper()
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		t.Fatalf("failed to decode items: %v", err)
	}
	return items
}

func TestWordPressParseItems(t *testing.T) {
	w := NewWordPress(testOptions(nil))
	records := w.ParseItems(decodeItems(t, loadFixture(t, "wp_properties.json")), "https://agency.example.com", "")
	if len(records) != 2 {
		t.Fatalf("expected 2 records (non-object skipped), got %d", len(records))
	}

	villa := records[0]
	if villa.ExternalID != "wp-agency.example.com-311" {
		t.Fatalf("unexpected id %q", villa.ExternalID)
	}
	if villa.Title != "Seaside Villa – Kalkan" || villa.Description != "Private infinity pool." {
		t.Fatalf("html not stripped: %q / %q", villa.Title, villa.Description)
	}
	if villa.Price != 12500000 || villa.Currency != "TRY" || villa.CountryCode != "TR" {
		t.Fatalf("unexpected price %v %s %s", villa.Price, villa.Currency, villa.CountryCode)
	}
	if villa.PropertyType != models.PropertyVilla || villa.ListingType != models.ListingSale {
		t.Fatalf("unexpected types %s/%s", villa.PropertyType, villa.ListingType)
	}
	if intValue(villa.Bedrooms) != 4 || intValue(villa.Bathrooms) != 3 || floatValue(villa.Area) != 240 {
		t.Fatalf("bedrooms %d bathrooms %d area %v", intValue(villa.Bedrooms), intValue(villa.Bathrooms), floatValue(villa.Area))
	}
	wantImages := []string{
		"https://agency.example.com/wp-content/uploads/311-main.jpg",
		"https://agency.example.com/wp-content/uploads/311-a.jpg",
	}
	if !reflect.DeepEqual(villa.Images, wantImages) {
		t.Fatalf("images = %v, want %v", villa.Images, wantImages)
	}
	if !reflect.DeepEqual(villa.Features, []string{"Pool", "Sea view"}) {
		t.Fatalf("unexpected features %v", villa.Features)
	}

	flat := records[1]
	if flat.ListingType != models.ListingRent || flat.PropertyType != models.PropertyApartment {
		t.Fatalf("unexpected types %s/%s", flat.ListingType, flat.PropertyType)
	}
	if flat.Price != 2400 || flat.City != "London" {
		t.Fatalf("unexpected flat %v %q", flat.Price, flat.City)
	}
	if flat.CountryCode != "GB" || flat.Currency != "GBP" || intValue(flat.Bedrooms) != 2 {
		t.Fatalf("unexpected flat %s %s bedrooms %d", flat.CountryCode, flat.Currency, intValue(flat.Bedrooms))
	}
}

func TestWordPressProbesEndpoints(t *testing.T) {
	origin := "https://agency.example.com"
	fetcher := &stubFetcher{responses: map[string][]byte{
		origin + "/wp-json/wp/v2/property" + wpQuery:        []byte("[]"),
		origin + "/wp-json/wp/v2/estate_property" + wpQuery: loadFixture(t, "wp_properties.json"),
	}}
	w := NewWordPress(testOptions(fetcher))

	records, err := w.Parse(context.Background(), origin+"/listings/", "")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if len(fetcher.requested) != 3 {
		t.Fatalf("expected probing to stop at the third endpoint, got %v", fetcher.requested)
	}
}

func TestWordPressNoEndpoint(t *testing.T) {
	w := NewWordPress(testOptions(&stubFetcher{}))
	if _, err := w.Parse(context.Background(), "https://nothing.example.com", ""); err == nil {
		t.Fatal("expected an error when no endpoint responds")
	}
}

func TestWordPressOverHTTP(t *testing.T) {
	body := loadFixture(t, "wp_properties.json")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wp/v2/properties" || r.URL.Query().Get("_embed") != "1" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts := testOptions(httputil.NewFetcher(httputil.FetcherConfig{Timeout: 5 * time.Second}, logger))
	records, err := NewWordPress(opts).Parse(context.Background(), srv.URL, "")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}
