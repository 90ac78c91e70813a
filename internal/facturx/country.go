package facturx

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultCountry is assumed when an address carries no country
const DefaultCountry = "FR"

// countryCodes maps normalized country names (French and English) to ISO 3166-1 alpha-2
var countryCodes = map[string]string{
	"france":             "FR",
	"belgique":           "BE",
	"belgium":            "BE",
	"allemagne":          "DE",
	"germany":            "DE",
	"espagne":            "ES",
	"spain":              "ES",
	"italie":             "IT",
	"italy":              "IT",
	"suisse":             "CH",
	"switzerland":        "CH",
	"luxembourg":         "LU",
	"pays-bas":           "NL",
	"netherlands":        "NL",
	"portugal":           "PT",
	"autriche":           "AT",
	"austria":            "AT",
	"irlande":            "IE",
	"ireland":            "IE",
	"monaco":             "MC",
	"royaume-uni":        "GB",
	"united kingdom":     "GB",
	"etats-unis":         "US",
	"united states":      "US",
	"canada":             "CA",
	"pologne":            "PL",
	"poland":             "PL",
	"suede":              "SE",
	"sweden":             "SE",
	"danemark":           "DK",
	"denmark":            "DK",
	"guadeloupe":         "GP",
	"martinique":         "MQ",
	"la reunion":         "RE",
	"reunion":            "RE",
	"guyane":             "GF",
	"nouvelle-caledonie": "NC",
}

// CountryCode resolves a country name or code to ISO 3166-1 alpha-2.
// Empty input resolves to DefaultCountry.
func CountryCode(country string) (string, bool) {
	c := strings.TrimSpace(country)
	if c == "" {
		return DefaultCountry, true
	}
	if len(c) == 2 && isASCIILetters(c) {
		return strings.ToUpper(c), true
	}
	code, ok := countryCodes[normalizeName(c)]
	return code, ok
}

func normalizeName(s string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(strings.Join(strings.Fields(out), " "))
	return strings.ReplaceAll(out, " - ", "-")
}

func isASCIILetters(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
