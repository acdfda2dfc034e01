package feeds

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"feed_importer/countries"
	"feed_importer/httputil"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	path := filepath.Join("testdata", name)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	return data
}

var fixedNow = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

func testOptions(fetcher Fetcher) Options {
	return Options{
		Profiles:       countries.Default(),
		DefaultCountry: "TR",
		Fetcher:        fetcher,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:            fixedNow,
	}
}

// stubFetcher serves canned bodies by URL and records every request.
type stubFetcher struct {
	mu        sync.Mutex
	responses map[string][]byte
	requested []string
}

func (s *stubFetcher) Fetch(_ context.Context, rawURL string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requested = append(s.requested, rawURL)
	if body, ok := s.responses[rawURL]; ok {
		return body, nil
	}
	return nil, &httputil.StatusError{URL: rawURL, Code: 404}
}

func intValue(p *int) int {
	if p == nil {
		return -999
	}
	return *p
}

func floatValue(p *float64) float64 {
	if p == nil {
		return -999
	}
	return *p
}
