package feeds

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"feed_importer/models"
)

var (
	locationParents = []string{"location", "address", "adres", "konum"}

	genericID          = keys("id", "external_id", "listing_id", "property_id", "ref", "reference", "ilan_no", "ilan_id", "sku", "code")
	genericTitle       = keys("title", "name", "headline", "baslik", "ilan_basligi")
	genericDescription = keys("description", "desc", "details", "summary", "aciklama")
	genericPrice       = keys("price", "fiyat", "asking_price", "sale_price", "rent", "rent_price", "monthly_rent", "kira_bedeli", "amount", "tutar", "bedel")
	genericCurrency    = chain(
		keys("currency", "currency_code", "para_birimi", "doviz"),
		nestedKeys([]string{"price", "fiyat"}, "currency", "currency_code"),
	)
	genericAddress = chain(
		keys("address", "street_address", "street", "adres", "acik_adres"),
		nestedKeys(locationParents, "street", "street_address", "streetAddress", "line1", "address"),
	)
	genericCity = chain(
		keys("city", "suburb", "locality", "town", "sehir", "il"),
		nestedKeys(locationParents, "city", "suburb", "locality", "addressLocality", "town", "sehir", "il"),
	)
	genericDistrict = chain(
		keys("district", "neighbourhood", "neighborhood", "ilce", "semt", "mahalle", "region", "state"),
		nestedKeys(locationParents, "district", "neighbourhood", "neighborhood", "ilce", "semt", "region", "state", "addressRegion"),
	)
	genericCountry = chain(
		keys("country", "country_name", "country_code", "ulke"),
		nestedKeys(locationParents, "country", "country_code", "addressCountry", "ulke"),
	)
	genericPropertyType = keys("property_type", "type", "category", "property_category", "emlak_tipi", "kategori", "tip")
	genericListingType  = keys("listing_type", "offer_type", "transaction_type", "transaction", "ilan_tipi", "islem_tipi", "status", "for")
	genericBedrooms     = keys("bedrooms", "beds", "bedroom", "bedroom_count", "yatak_odasi")
	genericBathrooms    = keys("bathrooms", "baths", "bathroom", "bathroom_count", "banyo", "banyo_sayisi")
	genericRooms        = keys("rooms", "room_count", "oda", "oda_sayisi")
	genericArea         = keys("area", "size", "sqm", "m2", "floor_area", "building_area", "living_area", "metrekare", "brut_m2", "net_m2", "alan", "land_area")
	genericAreaSqft     = keys("sqft", "square_feet", "area_sqft")
	genericFloor        = keys("floor", "floor_number", "kat", "bulundugu_kat")
	genericTotalFloors  = keys("total_floors", "floors", "building_floors", "kat_sayisi")
	genericBuildingAge  = keys("building_age", "age", "bina_yasi")
	genericYearBuilt    = keys("year_built", "built", "construction_year", "yapim_yili")
	genericImages       = keys("images", "photos", "pictures", "image_urls", "image", "photo", "image_url", "resimler", "fotograflar")
	genericFeatures     = keys("features", "amenities", "facilities", "ozellikler")
	genericRent         = keys("rent", "rent_price", "monthly_rent", "kira_bedeli")
	genericURL          = keys("url", "link", "source_url", "permalink", "listing_url")

	collectionKeys = []string{"properties", "listings", "data", "items", "results"}
)

// Generic reads flat JSON and CSV exports.
type Generic struct {
	base
}

func NewGeneric(opts Options) *Generic {
	return &Generic{base: newBase(opts, string(models.FormatGeneric))}
}

func (g *Generic) Name() string                 { return "Generic CSV/JSON" }
func (g *Generic) Format() models.Format        { return models.FormatGeneric }
func (g *Generic) SupportedCountries() []string { return g.allCountries() }

func (g *Generic) CanHandle(content, _ string) bool {
	s := strings.TrimSpace(trimBOM(content))
	if s == "" || isAbsoluteURL(s) {
		return false
	}
	if s[0] == '[' || s[0] == '{' {
		return json.Valid([]byte(s))
	}
	if s[0] == '<' {
		return false
	}
	return strings.Contains(s, "\n") && strings.ContainsAny(s, ",;\t")
}

func (g *Generic) Parse(ctx context.Context, content, countryHint string) ([]models.NormalizedProperty, error) {
	s := strings.TrimSpace(trimBOM(content))
	var (
		items []object
		err   error
	)
	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
		items, err = g.decodeJSON(s)
	} else {
		items, err = decodeCSV(s)
	}
	if err != nil {
		return nil, err
	}

	out := make([]models.NormalizedProperty, 0, len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		p, ok := g.mapRecord(item, countryHint)
		if !ok {
			g.omit(i, "no identifying fields")
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (g *Generic) decodeJSON(s string) ([]object, error) {
	var doc any
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	var list []any
	switch t := doc.(type) {
	case []any:
		list = t
	case map[string]any:
		for _, k := range collectionKeys {
			if arr, ok := t[k].([]any); ok {
				list = arr
				break
			}
		}
		if list == nil {
			if _, ok := firstValue(t, chain(genericID, genericPrice)); ok {
				list = []any{t}
			}
		}
	}

	items := make([]object, 0, len(list))
	for i, v := range list {
		obj, ok := v.(map[string]any)
		if !ok {
			g.omit(i, "not an object")
			continue
		}
		items = append(items, obj)
	}
	return items, nil
}

// decodeCSV reads a header row plus records. The delimiter is sniffed from
// the header line; quoted fields may contain delimiters.
func decodeCSV(s string) ([]object, error) {
	header := s
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		header = s[:i]
	}
	r := csv.NewReader(strings.NewReader(s))
	r.Comma = sniffDelimiter(header)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	names, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}

	var items []object
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return items, fmt.Errorf("read csv: %w", err)
		}
		obj := make(object, len(names))
		empty := true
		for i, name := range names {
			if i >= len(row) || name == "" {
				continue
			}
			v := strings.TrimSpace(row[i])
			if v != "" {
				empty = false
			}
			obj[name] = v
		}
		if !empty {
			items = append(items, obj)
		}
	}
	return items, nil
}

func sniffDelimiter(header string) rune {
	best, count := ',', strings.Count(header, ",")
	for _, d := range []rune{';', '\t'} {
		if c := strings.Count(header, string(d)); c > count {
			best, count = d, c
		}
	}
	return best
}

func (g *Generic) mapRecord(o object, countryHint string) (models.NormalizedProperty, bool) {
	p := models.NormalizedProperty{
		ExternalID:  firstString(o, genericID),
		Title:       firstString(o, genericTitle),
		Description: firstString(o, genericDescription),
		Address:     firstString(o, genericAddress),
		City:        firstString(o, genericCity),
		District:    firstString(o, genericDistrict),
		Rooms:       firstString(o, genericRooms),
		Bedrooms:    firstInt(o, genericBedrooms),
		Bathrooms:   firstInt(o, genericBathrooms),
		Floor:       firstInt(o, genericFloor),
		TotalFloors: firstInt(o, genericTotalFloors),
		BuildingAge: firstInt(o, genericBuildingAge),
		SourceURL:   firstString(o, genericURL),
		Images:      allStrings(o, genericImages),
		Features:    allStrings(o, genericFeatures),
		Raw:         o,
	}
	if p.ExternalID == "" && p.Title == "" && p.City == "" {
		if _, ok := firstValue(o, genericPrice); !ok {
			return p, false
		}
	}

	priceText := ""
	if v, ok := firstValue(o, genericPrice); ok {
		priceText = asString(v)
		if f, ok := asFloat(v); ok {
			p.Price = f
		}
	}
	// zero is how many exports say "unknown"
	if a, ok := firstMeasure(o, genericArea); ok && a > 0 {
		p.Area = models.FloatPtr(a)
	} else if a, ok := firstMeasure(o, genericAreaSqft); ok && a > 0 {
		p.Area = models.FloatPtr(convertArea(a, "sqft"))
	}
	if p.BuildingAge == nil {
		if y := firstInt(o, genericYearBuilt); y != nil {
			p.BuildingAge = g.buildingAgeFromYear(*y)
		}
	}

	typeText := firstString(o, genericPropertyType)
	listingText := firstString(o, genericListingType)
	p.PropertyType = normalizePropertyType(typeText)
	p.ListingType = normalizeListingType(listingText, typeText)
	if listingText == "" {
		if _, ok := firstValue(o, genericRent); ok {
			p.ListingType = models.ListingRent
		}
	}

	profile, _ := g.resolveCountry(firstString(o, genericCountry), countryHint)
	currency, ok := normalizeCurrency(firstString(o, genericCurrency))
	if !ok {
		currency, _ = currencyFromText(priceText)
	}
	g.finish(&p, profile, currency)
	return p, true
}
