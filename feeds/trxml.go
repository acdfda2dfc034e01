package feeds

import (
	"context"
	"errors"
	"strings"

	"github.com/beevik/etree"

	"feed_importer/models"
)

// Candidate listing paths, most common first.
var trRootPaths = []string{
	"listings/listing",
	"properties/property",
	"ilanlar/ilan",
	"emlaklar/emlak",
	"portfoy/ilan",
	"portfoyler/portfoy",
	"ilanlar/emlak",
	"emlak/ilan",
	"data/ilan",
	"root/ilan",
	"root/listing",
	"feed/listing",
	"ads/ad",
	"items/item",
	"rss/channel/item",
}

var trPortalMarkers = []string{
	"sahibinden", "hepsiemlak", "emlakjet", "zingat", "hurriyetemlak", "emlaksepeti",
	"<ilan", "<emlak", "<fiyat", ".com.tr",
}

// trRecordKeys are field names that make a repeated element look like a listing.
var trRecordKeys = map[string]bool{
	"fiyat": true, "price": true, "tutar": true, "bedel": true,
	"sehir": true, "il": true, "ilce": true, "city": true, "district": true,
	"oda": true, "odasayisi": true, "rooms": true,
	"m2": true, "brutm2": true, "netm2": true, "metrekare": true, "alan": true, "area": true,
	"baslik": true, "title": true, "aciklama": true, "description": true,
	"adres": true, "address": true,
}

var (
	trID          = []string{"id", "ilan_no", "ilan_id", "ilan_numarasi", "listing_id", "ref", "referans", "referans_no", "kod", "emlak_id", "portfoy_no", "no"}
	trTitle       = []string{"baslik", "ilan_basligi", "title", "ad", "name", "isim"}
	trDescription = []string{"aciklama", "ilan_aciklamasi", "aciklamalar", "description", "detay"}
	trPrice       = []string{"fiyat", "price", "tutar", "bedel", "satis_fiyati", "kira_bedeli"}
	trCurrency    = []string{"para_birimi", "doviz", "doviz_cinsi", "currency", "para"}
	trLocation    = []string{"konum", "lokasyon", "location", "adres", "address"}
	trCity        = []string{"il", "sehir", "city", "province"}
	trDistrict    = []string{"ilce", "district", "semt", "mahalle"}
	trAddress     = []string{"adres", "acik_adres", "tam_adres", "address"}
	trCountry     = []string{"ulke", "country"}
	trType        = []string{"emlak_tipi", "emlak_turu", "konut_tipi", "konut_sekli", "tip", "tipi", "kategori", "alt_kategori", "category", "property_type", "type"}
	trListingType = []string{"ilan_tipi", "islem_tipi", "islem", "durum", "satis_tipi", "listing_type", "status", "tur"}
	trRooms       = []string{"oda_sayisi", "oda", "oda_salon", "rooms", "room_count"}
	trBedrooms    = []string{"yatak_odasi", "yatak_odasi_sayisi", "bedrooms"}
	trBathrooms   = []string{"banyo_sayisi", "banyo", "bathrooms"}
	trArea        = []string{"brut_m2", "m2", "metrekare", "net_m2", "alan", "area", "size", "buyukluk"}
	trFloor       = []string{"bulundugu_kat", "kat", "kat_no", "floor"}
	trTotalFloors = []string{"kat_sayisi", "bina_kat_sayisi", "toplam_kat", "total_floors", "floors"}
	trAge         = []string{"bina_yasi", "yas", "building_age", "age"}
	trYearBuilt   = []string{"yapim_yili", "insaat_yili", "year_built"}
	trURL         = []string{"url", "link", "ilan_url", "ilan_linki", "detay_url"}
	trImageLists  = []string{"resimler", "fotograflar", "fotolar", "gorseller", "images", "photos", "pictures", "medya"}
	trImageItems  = []string{"resim", "foto", "fotograf", "gorsel", "image", "photo", "picture", "img"}
	trFeatureSets = []string{"ozellikler", "ic_ozellikler", "dis_ozellikler", "olanaklar", "features", "amenities"}
)

type amenityFlag struct {
	label string
	names []string
}

var trAmenities = []amenityFlag{
	{"Parking", []string{"otopark", "kapali_otopark", "acik_otopark", "garaj", "parking"}},
	{"Pool", []string{"havuz", "yuzme_havuzu", "pool"}},
	{"Garden", []string{"bahce", "garden"}},
	{"Elevator", []string{"asansor", "elevator", "lift"}},
	{"Security", []string{"guvenlik", "site_guvenligi", "security"}},
	{"Air Conditioning", []string{"klima", "air_conditioning"}},
	{"Furnished", []string{"esyali", "furnished"}},
}

var trAmenityByKey = func() map[string]string {
	m := make(map[string]string)
	for _, a := range trAmenities {
		for _, n := range a.names {
			m[fieldKey(n)] = a.label
		}
	}
	return m
}()

// TurkishXML reads the loosely structured XML exported by Turkish portals
// and agency software. Field and root names vary per vendor, so every field
// is looked up through ordered synonym lists.
type TurkishXML struct {
	base
}

func NewTurkishXML(opts Options) *TurkishXML {
	return &TurkishXML{base: newBase(opts, string(models.FormatTurkishXML))}
}

func (t *TurkishXML) Name() string                 { return "Turkish portal XML" }
func (t *TurkishXML) Format() models.Format        { return models.FormatTurkishXML }
func (t *TurkishXML) SupportedCountries() []string { return []string{"TR"} }

func (t *TurkishXML) CanHandle(content, countryHint string) bool {
	if !looksLikeXML(content) {
		return false
	}
	if strings.EqualFold(countryHint, "TR") {
		return true
	}
	lower := strings.ToLower(content)
	for _, m := range trPortalMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func (t *TurkishXML) Parse(ctx context.Context, content, _ string) ([]models.NormalizedProperty, error) {
	doc, err := parseXML(content)
	if err != nil {
		return nil, err
	}
	if doc.readErr != nil {
		t.logger.Error("feed is malformed, keeping complete listings", "error", doc.readErr)
	}

	listings := t.locate(doc.Document)
	if len(listings) == 0 {
		if doc.readErr != nil {
			return nil, doc.readErr
		}
		t.logger.Warn("no listing elements found", "root", doc.Root().Tag)
		return nil, nil
	}

	var out []models.NormalizedProperty
	for i, el := range listings {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if !doc.complete(el) {
			t.omit(i, "listing cut off", "tag", el.Tag)
			continue
		}
		p, err := t.mapListing(el)
		if err != nil {
			t.omit(i, err.Error(), "tag", el.Tag)
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 && doc.readErr != nil {
		return nil, doc.readErr
	}
	return out, nil
}

// locate tries the known root paths, then falls back to the repeated element
// group that looks most like listing records.
func (t *TurkishXML) locate(doc *etree.Document) []*etree.Element {
	for _, path := range trRootPaths {
		if found := findPath(doc, path); len(found) > 0 {
			t.logger.Debug("listing path matched", "path", path, "count", len(found))
			return found
		}
	}

	root := doc.Root()
	containers := append([]*etree.Element{root}, root.ChildElements()...)
	var best []*etree.Element
	bestScore := 1
	for _, container := range containers {
		groups := make(map[string][]*etree.Element)
		var order []string
		for _, c := range container.ChildElements() {
			k := fieldKey(c.Tag)
			if _, ok := groups[k]; !ok {
				order = append(order, k)
			}
			groups[k] = append(groups[k], c)
		}
		for _, k := range order {
			if score := recordScore(groups[k][0]); score > bestScore {
				best, bestScore = groups[k], score
			}
		}
	}
	if best != nil {
		t.logger.Debug("listing elements found by content", "tag", best[0].Tag, "score", bestScore, "count", len(best))
	}
	return best
}

// recordScore counts distinct listing-like field names among el's children.
func recordScore(el *etree.Element) int {
	seen := make(map[string]bool)
	for _, c := range el.ChildElements() {
		k := fieldKey(c.Tag)
		if trRecordKeys[k] && !seen[k] {
			seen[k] = true
		}
	}
	return len(seen)
}

func (t *TurkishXML) mapListing(el *etree.Element) (models.NormalizedProperty, error) {
	p := models.NormalizedProperty{
		ExternalID:  childText(el, trID...),
		Title:       childText(el, trTitle...),
		Description: childText(el, trDescription...),
		Rooms:       childText(el, trRooms...),
		SourceURL:   childText(el, trURL...),
		Raw:         elementMap(el),
	}
	if p.ExternalID == "" {
		p.ExternalID = attr(el, "id", "ilan_no", "no")
	}

	priceEl := child(el, trPrice...)
	priceText := valueText(priceEl)
	if v, ok := parseNumber(priceText); ok {
		p.Price = v
	}
	if p.ExternalID == "" && p.Title == "" && priceText == "" {
		return p, errors.New("no id, title or price")
	}

	p.City = t.locationText(el, trCity)
	p.District = t.locationText(el, trDistrict)
	p.Address = t.locationText(el, trAddress)

	typeText := childText(el, trType...)
	p.PropertyType = normalizePropertyType(typeText, p.Title)
	listingText := childText(el, trListingType...)
	switch {
	case listingText != "":
		p.ListingType = normalizeListingType(listingText, typeText)
	case child(el, "kira_bedeli") != nil:
		p.ListingType = models.ListingRent
	default:
		p.ListingType = normalizeListingType(typeText, p.Title)
	}

	p.Bedrooms = intPtrFrom(childText(el, trBedrooms...))
	p.Bathrooms = intPtrFrom(childText(el, trBathrooms...))
	if v, ok := parseNumber(childText(el, trArea...)); ok && v > 0 {
		p.Area = models.FloatPtr(v)
	}
	p.Floor = parseFloor(childText(el, trFloor...))
	p.TotalFloors = intPtrFrom(childText(el, trTotalFloors...))
	p.BuildingAge = parseBuildingAge(childText(el, trAge...))
	if p.BuildingAge == nil {
		if y, ok := parseInt(childText(el, trYearBuilt...)); ok {
			p.BuildingAge = t.buildingAgeFromYear(y)
		}
	}

	p.Images = trImages(el)
	p.Features = trFeatures(el)

	currency, ok := normalizeCurrency(childText(el, trCurrency...))
	if !ok {
		currency, ok = normalizeCurrency(attr(priceEl, "para_birimi", "currency", "doviz", "birim", "para"))
	}
	if !ok {
		currency, _ = currencyFromText(priceText)
	}
	profile, _ := t.resolveCountry(childText(el, trCountry...), "TR")
	t.finish(&p, profile, currency)
	return p, nil
}

// locationText looks for a field directly on the listing, then inside a
// nested location block.
func (t *TurkishXML) locationText(el *etree.Element, names []string) string {
	if c := child(el, names...); c != nil && len(c.ChildElements()) == 0 {
		if s := valueText(c); s != "" {
			return s
		}
	}
	for _, block := range trLocation {
		for _, loc := range children(el, block) {
			if len(loc.ChildElements()) == 0 {
				continue
			}
			if s := childText(loc, names...); s != "" {
				return s
			}
		}
	}
	return ""
}

func parseFloor(s string) *int {
	f := foldText(s)
	if f == "" {
		return nil
	}
	switch {
	case strings.Contains(f, "kot"), strings.Contains(f, "bodrum"):
		if n, ok := parseInt(f); ok {
			return models.IntPtr(-n)
		}
		return models.IntPtr(-1)
	case strings.Contains(f, "zemin"), strings.Contains(f, "giris"), strings.Contains(f, "bahce"), f == "ground":
		return models.IntPtr(0)
	}
	if n, ok := parseNumber(f); ok {
		return models.IntPtr(int(n))
	}
	return nil
}

// parseBuildingAge understands "0", "Sıfır Bina", "5-10 arası" and "21 ve üzeri".
func parseBuildingAge(s string) *int {
	f := foldText(s)
	if f == "" {
		return nil
	}
	if strings.Contains(f, "sifir") || strings.Contains(f, "yeni") {
		return models.IntPtr(0)
	}
	if n, ok := parseInt(f); ok && n >= 0 {
		return models.IntPtr(n)
	}
	return nil
}

func trImages(el *etree.Element) []string {
	out := []string{}
	add := func(img *etree.Element) {
		u := attr(img, "url", "src", "href", "link")
		if u == "" {
			u = strings.TrimSpace(img.Text())
		}
		if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") || strings.HasPrefix(u, "//") {
			out = append(out, u)
		}
	}
	for _, name := range trImageLists {
		for _, list := range children(el, name) {
			for _, img := range list.ChildElements() {
				add(img)
			}
		}
	}
	// Numbered siblings such as <resim1>, <resim2>.
	for _, c := range el.ChildElements() {
		k := fieldKey(c.Tag)
		for _, prefix := range trImageItems {
			if strings.HasPrefix(k, prefix) && len(c.ChildElements()) == 0 {
				add(c)
				break
			}
		}
	}
	return out
}

// trFeatures merges feature lists and boolean amenity flags into labels.
func trFeatures(el *etree.Element) []string {
	out := []string{}
	for _, a := range trAmenities {
		if c := child(el, a.names...); c != nil && truthy(valueText(c)) {
			out = append(out, a.label)
		}
	}
	for _, name := range trFeatureSets {
		for _, set := range children(el, name) {
			items := set.ChildElements()
			if len(items) == 0 {
				out = append(out, splitList(set.Text())...)
				continue
			}
			for _, item := range items {
				out = append(out, featureLabel(item)...)
			}
		}
	}
	return out
}

func featureLabel(item *etree.Element) []string {
	value := valueText(item)
	label, isAmenity := trAmenityByKey[fieldKey(item.Tag)]
	switch {
	case isAmenity:
		if truthy(value) || value == "" {
			return []string{label}
		}
		return nil
	case truthy(value):
		return []string{humanize(item.Tag)}
	case falsy(value), value == "":
		return nil
	default:
		// <ozellik>Balkon</ozellik>
		return []string{value}
	}
}
