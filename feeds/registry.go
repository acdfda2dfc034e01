package feeds

import (
	"strings"

	"feed_importer/countries"
	"feed_importer/models"
)

// Registry holds strategies in priority order, most specific first.
type Registry struct {
	strategies []Strategy
	byFormat   map[models.Format]Strategy
	profiles   *countries.Table
}

func NewRegistry(profiles *countries.Table, strategies ...Strategy) *Registry {
	if profiles == nil {
		profiles = countries.Default()
	}
	r := &Registry{
		strategies: strategies,
		byFormat:   make(map[models.Format]Strategy, len(strategies)),
		profiles:   profiles,
	}
	for _, s := range strategies {
		if _, dup := r.byFormat[s.Format()]; !dup {
			r.byFormat[s.Format()] = s
		}
	}
	return r
}

// NewDefaultRegistry wires every built-in strategy in detection order.
func NewDefaultRegistry(opts Options) *Registry {
	if opts.Profiles == nil {
		opts.Profiles = countries.Default()
	}
	return NewRegistry(opts.Profiles,
		NewREAXML(opts),
		NewTurkishXML(opts),
		NewGeneric(opts),
		NewWordPress(opts),
		NewJSONLD(opts),
	)
}

func (r *Registry) Strategies() []Strategy {
	return append([]Strategy(nil), r.strategies...)
}

// CountryCode resolves a hint (code, name or alias) to a supported market code.
func (r *Registry) CountryCode(hint string) string {
	if p, ok := r.profiles.Detect(hint); ok {
		return p.Code
	}
	return strings.ToUpper(strings.TrimSpace(hint))
}

// Detect returns the first strategy accepting content. With a country hint,
// strategies declaring that country are tried first.
func (r *Registry) Detect(content, countryHint string) (Strategy, bool) {
	candidates := r.Candidates(content, countryHint)
	if len(candidates) == 0 {
		return nil, false
	}
	return candidates[0], true
}

// Candidates lists every accepting strategy in detection order without repeats.
func (r *Registry) Candidates(content, countryHint string) []Strategy {
	var out []Strategy
	seen := make(map[Strategy]bool)

	if countryHint != "" {
		code := r.CountryCode(countryHint)
		for _, s := range r.strategies {
			if supports(s, code) && s.CanHandle(content, code) {
				out = append(out, s)
				seen[s] = true
			}
		}
		countryHint = code
	}
	for _, s := range r.strategies {
		if !seen[s] && s.CanHandle(content, countryHint) {
			out = append(out, s)
			seen[s] = true
		}
	}
	return out
}

func (r *Registry) ByFormat(f models.Format) (Strategy, bool) {
	s, ok := r.byFormat[models.Format(strings.ToLower(strings.TrimSpace(string(f))))]
	return s, ok
}

// FormatsForCountry lists the formats expected from a market, limited to
// registered strategies that support it.
func (r *Registry) FormatsForCountry(code string) []models.Format {
	code = r.CountryCode(code)
	var out []models.Format
	for _, f := range r.profiles.Formats(code) {
		if s, ok := r.byFormat[f]; ok && supports(s, code) {
			out = append(out, f)
		}
	}
	return out
}

func supports(s Strategy, code string) bool {
	for _, c := range s.SupportedCountries() {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}
