package countries

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"feed_importer/models"
)

//go:embed profiles.yaml
var embeddedProfiles []byte

// Profile holds the static defaults for one market.
type Profile struct {
	Code     string          `yaml:"code" json:"code"`
	Name     string          `yaml:"name" json:"name"`
	Currency string          `yaml:"currency" json:"currency"`
	Formats  []models.Format `yaml:"formats" json:"formats"`
	Aliases  []string        `yaml:"aliases" json:"aliases,omitempty"`
}

// Table is a read-only lookup of profiles by code, name or alias.
type Table struct {
	profiles []*Profile
	byCode   map[string]*Profile
	byName   map[string]*Profile
}

func fold(s string) string {
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}

// Parse builds a table from a YAML list of profiles.
func Parse(data []byte) (*Table, error) {
	var profiles []*Profile
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("parse country profiles: %w", err)
	}

	t := &Table{
		byCode: make(map[string]*Profile, len(profiles)),
		byName: make(map[string]*Profile, len(profiles)*4),
	}
	for i, p := range profiles {
		p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
		p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
		if len(p.Code) != 2 {
			return nil, fmt.Errorf("country profile %d: invalid code %q", i, p.Code)
		}
		if len(p.Currency) != 3 {
			return nil, fmt.Errorf("country profile %s: invalid currency %q", p.Code, p.Currency)
		}
		for _, f := range p.Formats {
			if !f.Valid() {
				return nil, fmt.Errorf("country profile %s: unknown format %q", p.Code, f)
			}
		}
		if _, dup := t.byCode[p.Code]; dup {
			return nil, fmt.Errorf("country profile %s: duplicate code", p.Code)
		}
		t.profiles = append(t.profiles, p)
		t.byCode[p.Code] = p
		t.byName[fold(p.Name)] = p
		for _, a := range p.Aliases {
			t.byName[fold(a)] = p
		}
	}
	return t, nil
}

// Default returns the table compiled into the binary.
func Default() *Table {
	t, err := Parse(embeddedProfiles)
	if err != nil {
		panic(err)
	}
	return t
}

// Load reads an override file, or returns the embedded table when path is empty.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read country profiles: %w", err)
	}
	return Parse(data)
}

// Get looks a profile up by its two-letter code.
func (t *Table) Get(code string) (*Profile, bool) {
	p, ok := t.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return p, ok
}

// Detect resolves a free-form country value (code, name or alias).
func (t *Table) Detect(value string) (*Profile, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, false
	}
	if p, ok := t.Get(value); ok {
		return p, true
	}
	p, ok := t.byName[fold(value)]
	return p, ok
}

// Profiles returns every profile in file order.
func (t *Table) Profiles() []*Profile {
	return append([]*Profile(nil), t.profiles...)
}

// Formats lists the formats typically seen from a market.
func (t *Table) Formats(code string) []models.Format {
	p, ok := t.Get(code)
	if !ok {
		return nil
	}
	return append([]models.Format(nil), p.Formats...)
}
