package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"feed_importer/models"
)

var (
	streetReplacements = map[string]string{
		"street":    "st",
		"avenue":    "ave",
		"drive":     "dr",
		"road":      "rd",
		"boulevard": "blvd",
		"lane":      "ln",
		"court":     "ct",
		"place":     "pl",
		"crescent":  "cres",
		"terrace":   "ter",
		"highway":   "hwy",
		"parkway":   "pkwy",
		"square":    "sq",
		"north":     "n",
		"south":     "s",
		"east":      "e",
		"west":      "w",
		"apartment": "apt",
		"suite":     "ste",
		"floor":     "fl",
		"building":  "bldg",
		"mahallesi": "mah",
		"mahalle":   "mah",
		"caddesi":   "cad",
		"cadde":     "cad",
		"sokak":     "sk",
		"sokagi":    "sk",
		"bulvari":   "blv",
		"strasse":   "str",
		"straße":    "str",
	}
	multiSpaceRegex = regexp.MustCompile(`\s+`)
	nonAlnumRegex   = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
)

// Fingerprint derives a stable external id for records whose source carries
// none. Two rows describing the same address, size and price collapse onto
// one catalog entry.
func Fingerprint(p *models.NormalizedProperty) string {
	input := fmt.Sprintf("%s|%s|%s|%.2f|%s|%s",
		NormalizeAddress(p.Address),
		NormalizeAddress(p.City),
		NormalizeAddress(p.Title),
		p.Price,
		p.PropertyType,
		p.Rooms,
	)
	hash := sha256.Sum256([]byte(input))
	return "fp-" + hex.EncodeToString(hash[:12])
}

// NormalizeAddress lower-cases, strips punctuation and abbreviates common
// street words word by word.
func NormalizeAddress(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	addr = nonAlnumRegex.ReplaceAllString(addr, " ")
	words := strings.Fields(multiSpaceRegex.ReplaceAllString(addr, " "))
	for i, w := range words {
		if abbrev, ok := streetReplacements[w]; ok {
			words[i] = abbrev
		}
	}
	return strings.Join(words, " ")
}
