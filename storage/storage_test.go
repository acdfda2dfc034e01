package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"feed_importer/models"
)

type catalogStore interface {
	FindByExternalID(ctx context.Context, tenantID, externalID string) (*models.CatalogRow, error)
	Create(ctx context.Context, r *models.CatalogRow) error
	Update(ctx context.Context, r *models.CatalogRow) error
	CountByTenant(ctx context.Context, tenantID string) (int, error)
}

func sampleRow(t *testing.T) *models.CatalogRow {
	t.Helper()
	p := &models.NormalizedProperty{
		ExternalID:   "TR-1001",
		Title:        "Moda 3+1",
		Price:        4750000,
		Currency:     "TRY",
		City:         "İstanbul",
		District:     "Kadıköy",
		Country:      "Turkey",
		CountryCode:  "TR",
		PropertyType: models.PropertyApartment,
		ListingType:  models.ListingSale,
		Rooms:        "3+1",
		Bedrooms:     models.IntPtr(3),
		Area:         models.FloatPtr(145),
		Floor:        models.IntPtr(-1),
		Images:       []string{"https://cdn.example.com/1.jpg"},
		Features:     []string{"Parking", "Elevator"},
		Raw:          map[string]any{"ilan_no": "TR-1001"},
	}
	p.Finalize()
	return models.NewCatalogRow("tenant-a", p, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
}

func exerciseStore(t *testing.T, store catalogStore) {
	ctx := context.Background()

	missing, err := store.FindByExternalID(ctx, "tenant-a", "TR-1001")
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil for a missing row, got %v, %v", missing, err)
	}

	row := sampleRow(t)
	if err := store.Create(ctx, row); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := store.Create(ctx, sampleRow(t)); err == nil {
		t.Fatal("expected duplicate (tenant, external id) to be rejected")
	}

	got, err := store.FindByExternalID(ctx, "tenant-a", "TR-1001")
	if err != nil || got == nil {
		t.Fatalf("find failed: %v", err)
	}
	if got.ID != row.ID || got.City != "İstanbul" || got.Price != 4750000 {
		t.Fatalf("unexpected row %+v", got)
	}
	if got.Bedrooms == nil || *got.Bedrooms != 3 || got.Floor == nil || *got.Floor != -1 || got.Bathrooms != nil {
		t.Fatalf("nullable columns not preserved: %+v", got)
	}
	if got.Area == nil || *got.Area != 145 {
		t.Fatalf("area not preserved: %v", got.Area)
	}
	if !reflect.DeepEqual(got.Features, []string{"Parking", "Elevator"}) {
		t.Fatalf("features = %v", got.Features)
	}
	var raw map[string]any
	if err := json.Unmarshal(got.RawData, &raw); err != nil || raw["ilan_no"] != "TR-1001" {
		t.Fatalf("raw data = %s (%v)", got.RawData, err)
	}
	if !got.CreatedAt.Equal(row.CreatedAt) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, row.CreatedAt)
	}

	other, err := store.FindByExternalID(ctx, "tenant-b", "TR-1001")
	if err != nil || other != nil {
		t.Fatal("expected rows to be scoped by tenant")
	}

	got.Price = 4500000
	got.Features = []string{"Parking"}
	got.UpdatedAt = got.UpdatedAt.Add(time.Hour)
	if err := store.Update(ctx, got); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	updated, _ := store.FindByExternalID(ctx, "tenant-a", "TR-1001")
	if updated.Price != 4500000 || len(updated.Features) != 1 || !updated.CreatedAt.Equal(row.CreatedAt) {
		t.Fatalf("update not applied: %+v", updated)
	}

	stray := sampleRow(t)
	stray.ExternalID = "never-created"
	if err := store.Update(ctx, stray); !errors.Is(err, ErrRowNotFound) {
		t.Fatalf("expected ErrRowNotFound, got %v", err)
	}

	if n, err := store.CountByTenant(ctx, "tenant-a"); err != nil || n != 1 {
		t.Fatalf("count = %d, %v", n, err)
	}
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer store.Close()
	exerciseStore(t, store)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	exerciseStore(t, store)

	rows := store.Rows("tenant-a")
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	rows[0].Features[0] = "mutated"
	if store.Rows("tenant-a")[0].Features[0] != "Parking" {
		t.Fatal("expected Rows to return copies")
	}
}

func TestArchiveKey(t *testing.T) {
	at := time.Date(2025, 3, 7, 23, 30, 0, 0, time.FixedZone("TRT", 3*3600))
	got := ArchiveKey("raw", "agency/1", at, "abc", "xml")
	if got != "raw/agency_1/2025/03/07/abc.xml" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := ArchiveKey("", "t", at, "abc", "csv"); got != "t/2025/03/07/abc.csv" {
		t.Fatalf("unexpected key without prefix %q", got)
	}
}

func TestSniffContent(t *testing.T) {
	tests := []struct {
		content string
		ext     string
	}{
		{"\ufeff<?xml version=\"1.0\"?><ilanlar/>", "xml"},
		{"<!DOCTYPE html><html></html>", "html"},
		{`[{"id":1}]`, "json"},
		{"https://agency.example.com", "url"},
		{"id,title\n1,Flat\n", "csv"},
		{"hello", "txt"},
	}
	for _, tt := range tests {
		if ext, _ := sniffContent(tt.content); ext != tt.ext {
			t.Errorf("sniffContent(%q) = %s, want %s", tt.content, ext, tt.ext)
		}
	}
}

func TestS3ArchivePutsObject(t *testing.T) {
	var mu sync.Mutex
	var gotPath, gotType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotPath, gotType, gotBody = r.URL.Path, r.Header.Get("Content-Type"), string(body)
		mu.Unlock()
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	archive, err := NewS3Archive(context.Background(), S3Config{
		Bucket:          "feeds",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		Prefix:          "/raw/",
	})
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	archive.now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }

	key, err := archive.Archive(context.Background(), "tenant-a", `[{"id":"a1"}]`)
	if err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	if !strings.HasPrefix(key, "raw/tenant-a/2025/03/01/") || !strings.HasSuffix(key, ".json") {
		t.Fatalf("unexpected key %q", key)
	}

	mu.Lock()
	defer mu.Unlock()
	if gotPath != "/feeds/"+key {
		t.Fatalf("unexpected request path %q", gotPath)
	}
	if gotType != "application/json" || gotBody != `[{"id":"a1"}]` {
		t.Fatalf("unexpected upload %q %q", gotType, gotBody)
	}
}
