package feeds

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"

	"feed_importer/models"
)

var (
	asciiFolder = strings.NewReplacer(
		"ı", "i", "ş", "s", "ğ", "g", "ç", "c", "ö", "o", "ü", "u",
		"â", "a", "î", "i", "û", "u", "é", "e", "è", "e", "ä", "a", "ß", "ss",
	)
	camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// foldText lower-cases with Turkish rules and strips Turkish diacritics, so
// "DAİRE", "Daire" and "DAIRE" all become "daire". Casers keep state, so one
// is built per call.
func foldText(s string) string {
	return asciiFolder.Replace(cases.Lower(language.Turkish).String(strings.TrimSpace(s)))
}

// fieldKey normalizes a field or tag name for synonym matching:
// "Oda_Sayısı", "odaSayisi" and "oda-sayisi" share one key.
func fieldKey(s string) string {
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		s = s[i+1:]
	}
	s = foldText(s)
	return strings.Map(func(r rune) rune {
		if r == '_' || r == '-' || r == '.' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// parseNumber extracts the first number from a formatted string such as
// "$1,200.50", "1.500.000 TL" or "120 m²".
func parseNumber(s string) (float64, bool) {
	run, negative := numericRun(s)
	if run == "" {
		return 0, false
	}
	run = resolveSeparators(run)
	v, err := strconv.ParseFloat(run, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}

func numericRun(s string) (string, bool) {
	rs := []rune(s)
	start := -1
	for i, r := range rs {
		if r >= '0' && r <= '9' {
			start = i
			break
		}
	}
	if start < 0 {
		return "", false
	}
	negative := start > 0 && rs[start-1] == '-'

	var b strings.Builder
	for i := start; i < len(rs); i++ {
		r := rs[i]
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == ',':
			if i+1 < len(rs) && rs[i+1] >= '0' && rs[i+1] <= '9' {
				b.WriteRune(r)
				continue
			}
			return b.String(), negative
		case r == ' ' || r == '\u00a0' || r == '\u202f' || r == '\'':
			// digit group separator only when digits follow
			if i+1 < len(rs) && rs[i+1] >= '0' && rs[i+1] <= '9' {
				continue
			}
			return b.String(), negative
		default:
			return b.String(), negative
		}
	}
	return b.String(), negative
}

// resolveSeparators turns a run of digits, dots and commas into a plain
// decimal literal. With both separators present the last one is the decimal
// mark; a lone separator followed by exactly three digits groups thousands.
func resolveSeparators(run string) string {
	lastDot := strings.LastIndexByte(run, '.')
	lastComma := strings.LastIndexByte(run, ',')

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			return strings.ReplaceAll(run, ",", "")
		}
		run = strings.ReplaceAll(run, ".", "")
		return strings.Replace(run, ",", ".", 1)
	case lastDot < 0 && lastComma < 0:
		return run
	}

	sep := ","
	idx := lastComma
	if lastDot >= 0 {
		sep = "."
		idx = lastDot
	}
	if strings.Count(run, sep) > 1 {
		return strings.ReplaceAll(run, sep, "")
	}
	intPart := run[:idx]
	if len(run)-idx-1 == 3 && intPart != "0" {
		return intPart + run[idx+1:]
	}
	return intPart + "." + run[idx+1:]
}

// parseMeasure reads sizes and areas. A lone dot is a decimal point there
// ("120.125 m2"); everything else follows parseNumber.
func parseMeasure(s string) (float64, bool) {
	run, negative := numericRun(s)
	if strings.Count(run, ".") != 1 || strings.Contains(run, ",") {
		return parseNumber(s)
	}
	v, err := strconv.ParseFloat(run, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}

func parseInt(s string) (int, bool) {
	v, ok := parseNumber(s)
	if !ok {
		return 0, false
	}
	return int(v), true
}

func intPtrFrom(s string) *int {
	if v, ok := parseInt(s); ok {
		return models.IntPtr(v)
	}
	return nil
}

// leadingRoomCount reads the bedroom part of "3+1" style notations.
func leadingRoomCount(rooms string) *int {
	rooms = strings.TrimSpace(rooms)
	if rooms == "" {
		return nil
	}
	head := rooms
	if i := strings.IndexByte(rooms, '+'); i >= 0 {
		head = rooms[:i]
	}
	if v, ok := parseInt(head); ok {
		return models.IntPtr(v)
	}
	if strings.Contains(foldText(rooms), "studio") {
		return models.IntPtr(0)
	}
	return nil
}

type keywordRule[T any] struct {
	value    T
	keywords []string
}

// Order matters: "townhouse" must win over "house".
var propertyTypeRules = []keywordRule[models.PropertyType]{
	{models.PropertyTownhouse, []string{"townhouse", "town house", "terrace", "row house", "sira ev", "duplex", "dubleks"}},
	{models.PropertyVilla, []string{"villa", "kosk", "yali"}},
	{models.PropertyApartment, []string{"apartment", "apartman", "apt", "flat", "unit", "condo", "studio", "penthouse", "residence", "rezidans", "daire", "loft"}},
	{models.PropertyLand, []string{"land", "lot", "plot", "arsa", "arazi", "vacant"}},
	{models.PropertyRural, []string{"rural", "farm", "acreage", "ranch", "ciftlik", "tarla", "bag evi"}},
	{models.PropertyCommercial, []string{"commercial", "office", "retail", "shop", "warehouse", "industrial", "isyeri", "dukkan", "ofis", "magaza", "depo", "buro", "plaza"}},
	{models.PropertyHouse, []string{"house", "home", "detached", "bungalow", "cottage", "mustakil", "ev", "konak"}},
}

var rentKeywords = []string{
	"rent", "rental", "lease", "leaseout", "to let", "per month", "per week",
	"kiralik", "kira", "aylik", "mieten", "miete", "alquiler", "huur",
}

// normalizePropertyType maps free text onto the closed vocabulary.
func normalizePropertyType(texts ...string) models.PropertyType {
	for _, text := range texts {
		if t := models.ParsePropertyType(text); t != models.PropertyOther {
			return t
		}
		if v, ok := matchKeywords(text, propertyTypeRules); ok {
			return v
		}
	}
	return models.PropertyOther
}

// normalizeListingType returns rent when any text carries a rental keyword.
func normalizeListingType(texts ...string) models.ListingType {
	for _, text := range texts {
		if containsKeyword(foldText(text), rentKeywords) {
			return models.ListingRent
		}
	}
	return models.ListingSale
}

func matchKeywords[T any](text string, rules []keywordRule[T]) (T, bool) {
	folded := foldText(text)
	if folded != "" {
		for _, rule := range rules {
			if containsKeyword(folded, rule.keywords) {
				return rule.value, true
			}
		}
	}
	var zero T
	return zero, false
}

// containsKeyword matches keywords of four characters or fewer as whole words
// and longer ones as substrings.
func containsKeyword(folded string, keywords []string) bool {
	if folded == "" {
		return false
	}
	var words map[string]struct{}
	for _, kw := range keywords {
		if len(kw) > 4 || strings.Contains(kw, " ") {
			if strings.Contains(folded, kw) {
				return true
			}
			continue
		}
		if words == nil {
			words = make(map[string]struct{})
			for _, w := range strings.FieldsFunc(folded, func(r rune) bool {
				return !unicode.IsLetter(r) && !unicode.IsDigit(r)
			}) {
				words[w] = struct{}{}
			}
		}
		if _, ok := words[kw]; ok {
			return true
		}
	}
	return false
}

var currencyTokens = map[string]string{
	"₺": "TRY", "TL": "TRY", "YTL": "TRY",
	"€": "EUR", "EURO": "EUR", "EUROS": "EUR",
	"£":   "GBP",
	"US$": "USD", "USD$": "USD",
	"A$": "AUD", "AU$": "AUD",
	"C$": "CAD", "CA$": "CAD",
	"DH": "AED", "DHS": "AED", "د.إ": "AED",
}

// normalizeCurrency resolves an explicit currency value. A bare "$" is
// ambiguous and left to the country default.
func normalizeCurrency(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}
	if code, ok := currencyTokens[s]; ok {
		return code, true
	}
	if len(s) == 3 {
		if unit, err := currency.ParseISO(s); err == nil {
			return unit.String(), true
		}
	}
	return "", false
}

// currencyFromText sniffs a currency marker inside a formatted price.
func currencyFromText(s string) (string, bool) {
	upper := strings.ToUpper(s)
	for _, tok := range []string{"₺", "€", "£", "US$", "A$", "AU$", "C$", "CA$"} {
		if strings.Contains(upper, tok) {
			return currencyTokens[tok], true
		}
	}
	for _, word := range strings.FieldsFunc(upper, func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		if code, ok := currencyTokens[word]; ok {
			return code, true
		}
		if priceCodes[word] {
			return word, true
		}
	}
	return "", false
}

// priceCodes are the ISO codes accepted when sniffed from free text; the full
// ISO list contains too many ordinary words ("ALL", "TOP").
var priceCodes = map[string]bool{
	"TRY": true, "EUR": true, "USD": true, "GBP": true, "AUD": true,
	"CAD": true, "AED": true, "NZD": true, "CHF": true,
}

var truthyValues = map[string]bool{
	"1": true, "true": true, "yes": true, "y": true, "on": true, "x": true,
	"evet": true, "var": true, "mevcut": true, "ja": true, "si": true, "oui": true,
}

func truthy(s string) bool {
	return truthyValues[foldText(s)]
}

var falsyValues = map[string]bool{
	"0": true, "false": true, "no": true, "n": true, "off": true,
	"hayir": true, "yok": true, "nein": true,
}

func falsy(s string) bool {
	return falsyValues[foldText(s)]
}

// humanize turns a field name such as "airConditioning" or "secure_parking"
// into a feature label.
func humanize(name string) string {
	name = camelBoundary.ReplaceAllString(name, "$1 $2")
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	return cases.Title(language.English).String(strings.Join(strings.Fields(name), " "))
}

// convertArea normalizes an area to square metres.
func convertArea(v float64, unit string) float64 {
	switch fieldKey(unit) {
	case "square", "squares":
		return v * 9.2903
	case "acre", "acres":
		return v * 4046.8564
	case "hectare", "hectares", "ha":
		return v * 10000
	case "squarefeet", "squarefoot", "sqft", "ft2":
		return v * 0.092903
	default:
		return v
	}
}

func splitList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '|' || r == ';' || r == '\n'
	})
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
