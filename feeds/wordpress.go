package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"feed_importer/models"
)

// Collection endpoints used by common real-estate themes and plugins, probed
// in order.
var wpEndpoints = []string{
	"/wp-json/wp/v2/properties",
	"/wp-json/wp/v2/property",
	"/wp-json/wp/v2/estate_property",
	"/wp-json/wp/v2/es_property",
	"/wp-json/wp/v2/listings",
	"/wp-json/wp/v2/listing",
	"/wp-json/wp/v2/rem_property",
}

const wpQuery = "?per_page=100&_embed=1"

// Where plugins keep custom fields, in lookup priority.
var wpFieldParents = []string{"acf", "meta", "custom_fields"}

// wpField builds the lookup for one logical field: the top-level field first,
// then each custom-field container.
func wpField(names ...string) []accessor {
	return chain(keys(names...), nestedKeys(wpFieldParents, names...))
}

var (
	wpPrice       = wpField("price", "property_price", "fave_property_price", "es_property_price", "_price", "rem_property_price")
	wpCurrency    = wpField("currency", "property_currency", "fave_currency", "es_property_currency")
	wpAddress     = wpField("address", "property_address", "fave_property_map_address", "es_property_address", "street")
	wpCity        = wpField("city", "property_city", "fave_property_city", "es_property_city", "suburb", "locality")
	wpDistrict    = wpField("district", "property_area", "neighborhood", "state", "region")
	wpCountry     = wpField("country", "property_country", "fave_property_country", "es_property_country")
	wpType        = wpField("property_type", "type_of_property", "fave_property_type", "es_property_type", "category")
	wpListingType = wpField("listing_type", "property_status", "fave_property_status", "es_property_category", "offer_type", "transaction")
	wpBedrooms    = wpField("bedrooms", "property_bedrooms", "fave_property_bedrooms", "es_property_bedrooms", "beds")
	wpBathrooms   = wpField("bathrooms", "property_bathrooms", "fave_property_bathrooms", "es_property_bathrooms", "baths")
	wpRooms       = wpField("rooms", "property_rooms", "fave_property_rooms")
	wpArea        = wpField("area", "property_size", "fave_property_size", "es_property_area", "size", "sqm")
	wpFloor       = wpField("floor", "property_floor")
	wpTotalFloors = wpField("total_floors", "floors", "property_floors")
	wpYearBuilt   = wpField("year_built", "property_year", "fave_property_year", "es_property_year_built")
	wpImages      = chain(
		keys("featured_image_url", "jetpack_featured_media_url"),
		wpField("gallery", "images", "property_images", "fave_property_images"),
	)
	wpFeatures = wpField("features", "amenities", "property_features")
)

// WordPress probes a site's REST API for listing collections.
type WordPress struct {
	base
	fetcher Fetcher
}

func NewWordPress(opts Options) *WordPress {
	return &WordPress{base: newBase(opts, string(models.FormatWordPress)), fetcher: opts.Fetcher}
}

func (w *WordPress) Name() string                 { return "WordPress REST API" }
func (w *WordPress) Format() models.Format        { return models.FormatWordPress }
func (w *WordPress) SupportedCountries() []string { return w.allCountries() }

func (w *WordPress) CanHandle(content, _ string) bool {
	return isAbsoluteURL(content)
}

// Parse stops at the first endpoint returning a non-empty array.
func (w *WordPress) Parse(ctx context.Context, content, countryHint string) ([]models.NormalizedProperty, error) {
	if w.fetcher == nil {
		return nil, errors.New("wordpress: no fetcher configured")
	}
	u, err := url.Parse(strings.TrimSpace(content))
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	origin := u.Scheme + "://" + u.Host

	var lastErr error
	responded := false
	for _, endpoint := range wpEndpoints {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		body, err := w.fetcher.Fetch(ctx, origin+endpoint+wpQuery)
		if err != nil {
			w.logger.Debug("endpoint probe failed", "endpoint", endpoint, "error", err)
			lastErr = err
			continue
		}
		responded = true

		var items []any
		if err := json.Unmarshal(body, &items); err != nil || len(items) == 0 {
			continue
		}
		w.logger.Debug("endpoint matched", "endpoint", endpoint, "items", len(items))
		return w.ParseItems(items, origin, countryHint), nil
	}

	if !responded && lastErr != nil {
		return nil, fmt.Errorf("no listing endpoint at %s: %w", origin, lastErr)
	}
	return nil, nil
}

// ParseItems maps decoded REST items; origin qualifies the external ids.
func (w *WordPress) ParseItems(items []any, origin, countryHint string) []models.NormalizedProperty {
	host := origin
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		host = u.Host
	}

	var out []models.NormalizedProperty
	for i, item := range items {
		o, ok := item.(map[string]any)
		if !ok {
			w.omit(i, "not an object")
			continue
		}
		id := asString(o["id"])
		if id == "" {
			w.omit(i, "missing id")
			continue
		}
		p := w.mapItem(o, countryHint)
		p.ExternalID = "wp-" + host + "-" + id
		out = append(out, p)
	}
	return out
}

func (w *WordPress) mapItem(o object, countryHint string) models.NormalizedProperty {
	p := models.NormalizedProperty{
		Title:       stripHTML(asString(o["title"])),
		Description: stripHTML(firstString(o, keys("content", "excerpt"))),
		Address:     firstString(o, wpAddress),
		City:        firstString(o, wpCity),
		District:    firstString(o, wpDistrict),
		Rooms:       firstString(o, wpRooms),
		Bedrooms:    firstInt(o, wpBedrooms),
		Bathrooms:   firstInt(o, wpBathrooms),
		Floor:       firstInt(o, wpFloor),
		TotalFloors: firstInt(o, wpTotalFloors),
		SourceURL:   asString(o["link"]),
		Images:      imageURLs(append(wpEmbeddedMedia(o), allStrings(o, wpImages)...)),
		Features:    allStrings(o, wpFeatures),
		Raw:         o,
	}

	priceText := ""
	if v, ok := firstValue(o, wpPrice); ok {
		priceText = asString(v)
		if f, ok := asFloat(v); ok {
			p.Price = f
		}
	}
	if a, ok := firstMeasure(o, wpArea); ok && a > 0 {
		p.Area = models.FloatPtr(a)
	}
	if y := firstInt(o, wpYearBuilt); y != nil {
		p.BuildingAge = w.buildingAgeFromYear(*y)
	}

	typeText := firstString(o, wpType)
	p.PropertyType = normalizePropertyType(typeText, p.Title)
	p.ListingType = normalizeListingType(firstString(o, wpListingType), typeText)

	profile, detected := w.resolveCountry(firstString(o, wpCountry), countryHint)
	currency := ""
	if !detected {
		var ok bool
		if currency, ok = normalizeCurrency(firstString(o, wpCurrency)); !ok {
			currency, _ = currencyFromText(priceText)
		}
	}
	w.finish(&p, profile, currency)
	return p
}

// wpEmbeddedMedia reads _embedded["wp:featuredmedia"][].source_url.
func wpEmbeddedMedia(o object) []string {
	embedded, ok := o["_embedded"].(map[string]any)
	if !ok {
		return nil
	}
	media, _ := embedded["wp:featuredmedia"].([]any)
	var out []string
	for _, m := range media {
		if obj, ok := m.(map[string]any); ok {
			if s := asString(obj["source_url"]); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// stripHTML returns the text of a rendered WordPress field.
func stripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// imageURLs drops attachment ids and other non-URL gallery entries.
func imageURLs(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "/") {
			out = append(out, s)
		}
	}
	return out
}
