// Package feeds turns listing feeds in several dialects into
// models.NormalizedProperty records.
package feeds

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"feed_importer/countries"
	"feed_importer/identity"
	"feed_importer/models"
)

// Strategy parses one feed dialect.
//
// CanHandle must be cheap and free of side effects. Parse omits (and logs)
// records it cannot map; it returns an error only when the whole input is
// unusable, e.g. a malformed document or a failed fetch.
type Strategy interface {
	Name() string
	Format() models.Format
	SupportedCountries() []string
	CanHandle(content, countryHint string) bool
	Parse(ctx context.Context, content, countryHint string) ([]models.NormalizedProperty, error)
}

// Fetcher retrieves the body of a 2xx GET response.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Options carries the dependencies shared by all strategies.
type Options struct {
	Profiles       *countries.Table
	DefaultCountry string
	Fetcher        Fetcher
	Logger         *slog.Logger
	Now            func() time.Time
}

type base struct {
	profiles       *countries.Table
	defaultCountry string
	logger         *slog.Logger
	now            func() time.Time
}

func newBase(opts Options, name string) base {
	b := base{
		profiles:       opts.Profiles,
		defaultCountry: opts.DefaultCountry,
		logger:         opts.Logger,
		now:            opts.Now,
	}
	if b.profiles == nil {
		b.profiles = countries.Default()
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.now == nil {
		b.now = time.Now
	}
	b.logger = b.logger.With("strategy", name)
	return b
}

func (b base) allCountries() []string {
	profiles := b.profiles.Profiles()
	codes := make([]string, len(profiles))
	for i, p := range profiles {
		codes[i] = p.Code
	}
	return codes
}

// resolveCountry picks the market for a record: explicit source metadata,
// then the caller's hint, then the configured default.
func (b base) resolveCountry(explicit, hint string) (*countries.Profile, bool) {
	if p, ok := b.profiles.Detect(explicit); ok {
		return p, true
	}
	if p, ok := b.profiles.Detect(hint); ok {
		return p, false
	}
	if p, ok := b.profiles.Detect(b.defaultCountry); ok {
		return p, false
	}
	return nil, false
}

// finish fills country and currency defaults, derives a fallback external id
// and enforces the record invariants.
func (b base) finish(p *models.NormalizedProperty, profile *countries.Profile, currency string) {
	if profile != nil {
		p.Country = profile.Name
		p.CountryCode = profile.Code
	}
	switch {
	case currency != "":
		p.Currency = currency
	case profile != nil:
		p.Currency = profile.Currency
	}
	if p.Bedrooms == nil && p.Rooms != "" {
		p.Bedrooms = leadingRoomCount(p.Rooms)
	}
	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)
	p.City = strings.TrimSpace(p.City)
	p.Address = strings.TrimSpace(p.Address)
	p.District = strings.TrimSpace(p.District)
	p.Finalize()
	if strings.TrimSpace(p.ExternalID) == "" {
		p.ExternalID = identity.Fingerprint(p)
	}
}

func (b base) buildingAgeFromYear(year int) *int {
	now := b.now().Year()
	if year < 1700 || year > now+5 {
		return nil
	}
	age := now - year
	if age < 0 {
		age = 0
	}
	return &age
}

func (b base) omit(index int, reason string, args ...any) {
	b.logger.Warn("record omitted", append([]any{"index", index, "reason", reason}, args...)...)
}

// isAbsoluteURL accepts http(s) URLs with a host and no embedded whitespace.
func isAbsoluteURL(content string) bool {
	s := strings.TrimSpace(content)
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func resolveURL(baseURL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || baseURL == "" {
		return ref
	}
	b, err := url.Parse(baseURL)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
