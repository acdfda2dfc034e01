package feeds

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"feed_importer/models"
)

var ldListingTypes = map[string]bool{
	"RealEstateListing":       true,
	"Residence":               true,
	"Apartment":               true,
	"ApartmentComplex":        true,
	"House":                   true,
	"SingleFamilyResidence":   true,
	"Accommodation":           true,
	"Room":                    true,
	"Suite":                   true,
	"GatedResidenceCommunity": true,
}

var ldPropertyTypes = map[string]models.PropertyType{
	"Apartment":             models.PropertyApartment,
	"ApartmentComplex":      models.PropertyApartment,
	"Suite":                 models.PropertyApartment,
	"Room":                  models.PropertyApartment,
	"House":                 models.PropertyHouse,
	"SingleFamilyResidence": models.PropertyHouse,
}

var (
	ldSubjectKeys = []string{"about", "mainEntity", "itemOffered"}

	ldID          = keys("@id", "identifier", "sku", "productID", "url")
	ldTitle       = keys("name", "headline")
	ldDescription = keys("description")
	ldPrice       = chain(
		nestedKeys([]string{"offers"}, "price", "lowPrice"),
		[]accessor{within("offers", within("priceSpecification", key("price")))},
		keys("price"),
	)
	ldCurrency = chain(
		nestedKeys([]string{"offers"}, "priceCurrency"),
		[]accessor{within("offers", within("priceSpecification", key("priceCurrency")))},
		keys("priceCurrency"),
	)
	ldOfferKind   = nestedKeys([]string{"offers"}, "businessFunction", "@type", "category", "name")
	ldStreet      = nestedKeys([]string{"address"}, "streetAddress")
	ldCity        = nestedKeys([]string{"address"}, "addressLocality")
	ldDistrict    = nestedKeys([]string{"address"}, "addressRegion")
	ldCountry     = nestedKeys([]string{"address"}, "addressCountry")
	ldBedrooms    = keys("numberOfBedrooms")
	ldRooms       = keys("numberOfRooms")
	ldBathrooms   = keys("numberOfBathroomsTotal", "numberOfFullBathrooms", "numberOfBathrooms")
	ldArea        = keys("floorSize")
	ldAreaUnit    = nestedKeys([]string{"floorSize"}, "unitCode", "unitText")
	ldFloor       = keys("floorLevel")
	ldYearBuilt   = keys("yearBuilt")
	ldImages      = keys("image", "photo", "photos")
	ldURL         = keys("url")
	ldAddressText = keys("address")
)

// JSONLD extracts listings from schema.org blocks embedded in a web page.
// It accepts any URL and is meant to run after more specific strategies.
type JSONLD struct {
	base
	fetcher Fetcher
}

func NewJSONLD(opts Options) *JSONLD {
	return &JSONLD{base: newBase(opts, string(models.FormatJSONLD)), fetcher: opts.Fetcher}
}

func (j *JSONLD) Name() string                 { return "Website structured data" }
func (j *JSONLD) Format() models.Format        { return models.FormatJSONLD }
func (j *JSONLD) SupportedCountries() []string { return j.allCountries() }

func (j *JSONLD) CanHandle(content, _ string) bool {
	return isAbsoluteURL(content)
}

func (j *JSONLD) Parse(ctx context.Context, content, countryHint string) ([]models.NormalizedProperty, error) {
	if j.fetcher == nil {
		return nil, errors.New("jsonld: no fetcher configured")
	}
	pageURL := strings.TrimSpace(content)
	body, err := j.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	return j.ParseHTML(body, pageURL, countryHint)
}

// ParseHTML maps every listing node found in the page's ld+json blocks.
func (j *JSONLD) ParseHTML(html []byte, pageURL, countryHint string) ([]models.NormalizedProperty, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var nodes []object
	doc.Find(`script[type="application/ld+json"]`).Each(func(i int, s *goquery.Selection) {
		var block any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &block); err != nil {
			j.logger.Warn("skipping invalid ld+json block", "index", i, "url", pageURL, "error", err)
			return
		}
		flattenLD(block, &nodes)
	})

	index := make(map[string]object)
	for _, n := range nodes {
		if id := asString(n["@id"]); id != "" {
			index[id] = n
		}
	}

	// Nodes referenced as the subject of a listing are mapped with it, not alone.
	consumed := make(map[string]bool)
	for _, n := range nodes {
		if !isListingNode(n) {
			continue
		}
		if sub := ldSubject(n, index); sub != nil {
			if sid := asString(sub["@id"]); sid != "" {
				consumed[sid] = true
			}
		}
	}

	var out []models.NormalizedProperty
	for i, n := range nodes {
		if !isListingNode(n) || consumed[asString(n["@id"])] {
			continue
		}
		p, ok := j.mapNode(n, ldSubject(n, index), pageURL, countryHint)
		if !ok {
			j.omit(i, "listing node without name, price or address", "url", pageURL)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// flattenLD expands arrays, @graph containers and ItemList elements.
func flattenLD(v any, out *[]object) {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			flattenLD(item, out)
		}
	case map[string]any:
		if g, ok := t["@graph"]; ok {
			flattenLD(g, out)
		}
		if hasType(t, "ItemList") {
			items, _ := t["itemListElement"].([]any)
			for _, el := range items {
				if obj, ok := el.(map[string]any); ok {
					if item, ok := obj["item"]; ok {
						flattenLD(item, out)
						continue
					}
				}
				flattenLD(el, out)
			}
		}
		*out = append(*out, t)
	}
}

func ldTypes(o object) []string {
	switch t := o["@type"].(type) {
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, v := range t {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func hasType(o object, name string) bool {
	for _, t := range ldTypes(o) {
		if strings.TrimPrefix(t, "schema:") == name {
			return true
		}
	}
	return false
}

func isListingNode(o object) bool {
	for _, t := range ldTypes(o) {
		if ldListingTypes[strings.TrimPrefix(t, "schema:")] {
			return true
		}
	}
	return false
}

// ldSubject returns the property a listing node describes, resolving @id references.
func ldSubject(o object, index map[string]object) object {
	for _, k := range ldSubjectKeys {
		sub, ok := asObject(o[k])
		if !ok {
			continue
		}
		if len(sub) == 1 {
			if ref, ok := index[asString(sub["@id"])]; ok {
				return ref
			}
		}
		return sub
	}
	return nil
}

func (j *JSONLD) mapNode(n, sub object, pageURL, countryHint string) (models.NormalizedProperty, bool) {
	nodes := []object{n}
	if sub != nil {
		nodes = append(nodes, sub)
	}
	str := func(accs []accessor) string {
		for _, o := range nodes {
			if s := firstString(o, accs); s != "" {
				return s
			}
		}
		return ""
	}
	val := func(accs []accessor) (any, bool) {
		for _, o := range nodes {
			if v, ok := firstValue(o, accs); ok {
				return v, true
			}
		}
		return nil, false
	}

	p := models.NormalizedProperty{
		Title:       str(ldTitle),
		Description: str(ldDescription),
		Address:     str(ldStreet),
		City:        str(ldCity),
		District:    str(ldDistrict),
		Rooms:       str(ldRooms),
		SourceURL:   resolveURL(pageURL, str(ldURL)),
		Raw:         n,
	}
	if p.Address == "" {
		if v, ok := val(ldAddressText); ok {
			if s, ok := v.(string); ok {
				p.Address = strings.TrimSpace(s)
			}
		}
	}
	if id := str(ldID); id != "" {
		if strings.HasPrefix(id, "#") || strings.HasPrefix(id, "/") {
			id = resolveURL(pageURL, id)
		}
		p.ExternalID = id
	}
	if p.SourceURL == "" {
		p.SourceURL = pageURL
	}

	priceText := ""
	if v, ok := val(ldPrice); ok {
		priceText = asString(v)
		if f, ok := asFloat(v); ok {
			p.Price = f
		}
	}
	if p.Title == "" && priceText == "" && p.Address == "" && p.City == "" {
		return p, false
	}

	if v, ok := val(ldBedrooms); ok {
		if f, ok := asFloat(v); ok {
			p.Bedrooms = models.IntPtr(int(f))
		}
	}
	if v, ok := val(ldBathrooms); ok {
		if f, ok := asFloat(v); ok {
			p.Bathrooms = models.IntPtr(int(f))
		}
	}
	if v, ok := val(ldArea); ok {
		if f, ok := asMeasure(v); ok && f > 0 {
			f = convertArea(f, ldAreaUnitName(str(ldAreaUnit)))
			p.Area = &f
		}
	}
	p.Floor = intPtrFrom(str(ldFloor))
	if y, ok := parseInt(str(ldYearBuilt)); ok {
		p.BuildingAge = j.buildingAgeFromYear(y)
	}

	for _, o := range nodes {
		for _, img := range allStrings(o, ldImages) {
			p.Images = append(p.Images, resolveURL(pageURL, img))
		}
		p.Features = append(p.Features, ldAmenities(o)...)
	}

	p.PropertyType = models.PropertyOther
	for _, o := range nodes {
		for _, t := range ldTypes(o) {
			if pt, ok := ldPropertyTypes[strings.TrimPrefix(t, "schema:")]; ok {
				p.PropertyType = pt
			}
		}
	}
	if p.PropertyType == models.PropertyOther {
		p.PropertyType = normalizePropertyType(p.Title)
	}
	p.ListingType = normalizeListingType(str(ldOfferKind), p.Description)

	profile, detected := j.resolveCountry(str(ldCountry), countryHint)
	currency := ""
	if !detected {
		if c, ok := normalizeCurrency(str(ldCurrency)); ok {
			currency = c
		}
	}
	j.finish(&p, profile, currency)
	return p, true
}

// UN/CEFACT codes used by schema.org QuantitativeValue.
func ldAreaUnitName(code string) string {
	switch strings.ToUpper(code) {
	case "FTK", "SQFT":
		return "squareFeet"
	case "ACR":
		return "acre"
	case "HAR":
		return "hectare"
	}
	return code
}

func ldAmenities(o object) []string {
	list, _ := o["amenityFeature"].([]any)
	var out []string
	for _, item := range list {
		switch t := item.(type) {
		case string:
			out = append(out, t)
		case map[string]any:
			if v, ok := t["value"]; ok {
				if b, isBool := v.(bool); isBool && !b {
					continue
				}
				if s, isStr := v.(string); isStr && falsy(s) {
					continue
				}
			}
			if name := asString(t["name"]); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}
