package feeds

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/beevik/etree"

	"feed_importer/models"
)

var reaxmlMarker = regexp.MustCompile(`<(propertyList|residential|rental|holidayRental|commercial|commercialRental|land|rural)[\s>/]`)

type reaxmlCategory struct {
	listing   models.ListingType
	forceType models.PropertyType
}

// reaxmlCategories maps listing container tags onto listing and property types.
var reaxmlCategories = map[string]reaxmlCategory{
	"residential":      {models.ListingSale, ""},
	"rental":           {models.ListingRent, ""},
	"holidayrental":    {models.ListingRent, ""},
	"commercial":       {models.ListingSale, models.PropertyCommercial},
	"commercialrental": {models.ListingRent, models.PropertyCommercial},
	"land":             {models.ListingSale, models.PropertyLand},
	"rural":            {models.ListingSale, models.PropertyRural},
}

// Feature children that are counts or free text rather than yes/no flags.
var reaxmlNonFlagFeatures = map[string]bool{
	"bedrooms": true, "bathrooms": true, "ensuite": true, "toilets": true,
	"livingareas": true, "garages": true, "carports": true, "openspaces": true,
	"otherfeatures": true, "heating": true, "hotwaterservice": true,
}

// REAXML reads the Australian real-estate exchange format.
type REAXML struct {
	base
}

func NewREAXML(opts Options) *REAXML {
	return &REAXML{base: newBase(opts, string(models.FormatREAXML))}
}

func (r *REAXML) Name() string                 { return "REAXML" }
func (r *REAXML) Format() models.Format        { return models.FormatREAXML }
func (r *REAXML) SupportedCountries() []string { return []string{"AU"} }

func (r *REAXML) CanHandle(content, countryHint string) bool {
	if countryHint != "" && !strings.EqualFold(countryHint, "AU") {
		return false
	}
	return looksLikeXML(content) && reaxmlMarker.MatchString(content)
}

func (r *REAXML) Parse(ctx context.Context, content, _ string) ([]models.NormalizedProperty, error) {
	doc, err := parseXML(content)
	if err != nil {
		return nil, err
	}
	if doc.readErr != nil {
		r.logger.Error("feed is malformed, keeping complete listings", "error", doc.readErr)
	}

	root := doc.Root()
	listings := root.ChildElements()
	if _, ok := reaxmlCategories[fieldKey(root.Tag)]; ok {
		listings = []*etree.Element{root}
	}

	profile, _ := r.profiles.Get("AU")
	var out []models.NormalizedProperty
	for i, el := range listings {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		cat, ok := reaxmlCategories[fieldKey(el.Tag)]
		if !ok {
			continue
		}
		if !doc.complete(el) {
			r.omit(i, "listing cut off", "category", el.Tag)
			continue
		}
		p, err := r.mapListing(el, cat)
		if err != nil {
			r.omit(i, err.Error(), "category", el.Tag)
			continue
		}
		r.finish(&p, profile, "")
		out = append(out, p)
	}
	if len(out) == 0 && doc.readErr != nil {
		return nil, doc.readErr
	}
	return out, nil
}

func (r *REAXML) mapListing(el *etree.Element, cat reaxmlCategory) (models.NormalizedProperty, error) {
	id := childText(el, "uniqueID")
	if id == "" {
		return models.NormalizedProperty{}, errors.New("missing uniqueID")
	}

	listing := cat.listing
	if fieldKey(el.Tag) == "commercial" {
		if t := foldText(attr(child(el, "commercialListingType"), "value")); t == "lease" {
			listing = models.ListingRent
		}
	}

	p := models.NormalizedProperty{
		ExternalID:  id,
		Title:       childText(el, "headline"),
		Description: childText(el, "description"),
		ListingType: listing,
		Raw:         elementMap(el),
	}
	p.Raw["category"] = el.Tag
	if status := attr(el, "status"); status != "" {
		p.Raw["status"] = status
	}

	if addr := child(el, "address"); addr != nil {
		p.Address = reaxmlStreet(addr)
		p.City = childText(addr, "suburb", "city")
		p.District = strings.ToUpper(childText(addr, "state"))
	}

	if v, ok := r.price(el, listing); ok {
		p.Price = v
	}

	typeName := attr(child(el, "category", "commercialCategory", "landCategory", "ruralCategory"), "name")
	p.PropertyType = normalizePropertyType(typeName)
	if cat.forceType != "" {
		p.PropertyType = cat.forceType
	}

	features := child(el, "features")
	p.Bedrooms = intPtrFrom(childText(features, "bedrooms"))
	p.Bathrooms = intPtrFrom(childText(features, "bathrooms"))
	p.Features = reaxmlFeatures(features)
	p.Area = reaxmlArea(el)
	p.Images = reaxmlImages(el)
	if link := child(el, "externalLink"); link != nil {
		p.SourceURL = attr(link, "href")
	}
	return p, nil
}

func reaxmlStreet(addr *etree.Element) string {
	number := childText(addr, "streetNumber")
	if sub := childText(addr, "subNumber"); sub != "" {
		if number != "" {
			number = sub + "/" + number
		} else {
			number = sub
		}
	}
	street := childText(addr, "street")
	return strings.TrimSpace(number + " " + street)
}

// price reads the value for the listing's transaction type; rent first for
// rentals, sale price otherwise, display text as a last resort.
func (r *REAXML) price(el *etree.Element, listing models.ListingType) (float64, bool) {
	names := []string{"price", "commercialRent", "rent", "priceView"}
	if listing == models.ListingRent {
		names = []string{"rent", "commercialRent", "price", "priceView"}
	}
	for _, name := range names {
		for _, c := range children(el, name) {
			if v, ok := parseNumber(valueText(c)); ok {
				return v, true
			}
		}
	}
	return 0, false
}

func reaxmlArea(el *etree.Element) *float64 {
	for _, section := range []string{"buildingDetails", "landDetails"} {
		area := child(child(el, section), "area")
		if area == nil {
			continue
		}
		if v, ok := parseMeasure(valueText(area)); ok && v > 0 {
			v = convertArea(v, attr(area, "unit"))
			return &v
		}
	}
	return nil
}

func reaxmlFeatures(features *etree.Element) []string {
	out := []string{}
	if features == nil {
		return out
	}
	for _, c := range features.ChildElements() {
		k := fieldKey(c.Tag)
		switch {
		case k == "garages" || k == "carports":
			if n, ok := parseInt(valueText(c)); ok && n > 0 {
				out = append(out, strings.TrimSuffix(humanize(c.Tag), "s"))
			}
		case k == "otherfeatures":
			out = append(out, splitList(c.Text())...)
		case reaxmlNonFlagFeatures[k]:
		default:
			if truthy(valueText(c)) {
				out = append(out, humanize(c.Tag))
			}
		}
	}
	return out
}

// reaxmlImages collects image URLs from images/img, objects/img and bare img
// children, skipping placeholders without a URL.
func reaxmlImages(el *etree.Element) []string {
	var imgs []*etree.Element
	for _, container := range []string{"images", "objects"} {
		for _, c := range children(el, container) {
			imgs = append(imgs, c.ChildElements()...)
		}
	}
	imgs = append(imgs, children(el, "img")...)

	out := []string{}
	for _, img := range imgs {
		switch fieldKey(img.Tag) {
		case "img", "image", "picture", "photo":
		default:
			continue
		}
		u := attr(img, "url", "file", "src")
		if u == "" {
			u = strings.TrimSpace(img.Text())
		}
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}
