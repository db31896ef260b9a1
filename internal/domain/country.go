package domain

import (
	"strings"
)

// countryAliases maps common spellings to ISO 3166-1 alpha-2 codes.
var countryAliases = map[string]string{
	"china":          "CN",
	"prc":            "CN",
	"united states":  "US",
	"usa":            "US",
	"america":        "US",
	"mexico":         "MX",
	"canada":         "CA",
	"vietnam":        "VN",
	"viet nam":       "VN",
	"india":          "IN",
	"germany":        "DE",
	"japan":          "JP",
	"south korea":    "KR",
	"korea":          "KR",
	"taiwan":         "TW",
	"thailand":       "TH",
	"indonesia":      "ID",
	"malaysia":       "MY",
	"bangladesh":     "BD",
	"italy":          "IT",
	"france":         "FR",
	"united kingdom": "GB",
	"uk":             "GB",
	"brazil":         "BR",
	"turkey":         "TR",
	"philippines":    "PH",
	"cambodia":       "KH",
	"pakistan":       "PK",
	"australia":      "AU",
	"singapore":      "SG",
	"chile":          "CL",
	"colombia":       "CO",
	"peru":           "PE",
	"israel":         "IL",
	"jordan":         "JO",
}

// countryNames maps alpha-2 codes back to display names.
var countryNames = map[string]string{
	"CN": "China",
	"US": "United States",
	"MX": "Mexico",
	"CA": "Canada",
	"VN": "Vietnam",
	"IN": "India",
	"DE": "Germany",
	"JP": "Japan",
	"KR": "South Korea",
	"TW": "Taiwan",
	"TH": "Thailand",
	"ID": "Indonesia",
	"MY": "Malaysia",
	"BD": "Bangladesh",
	"IT": "Italy",
	"FR": "France",
	"GB": "United Kingdom",
	"BR": "Brazil",
	"TR": "Turkey",
	"PH": "Philippines",
	"KH": "Cambodia",
	"PK": "Pakistan",
	"AU": "Australia",
	"SG": "Singapore",
	"CL": "Chile",
	"CO": "Colombia",
	"PE": "Peru",
	"IL": "Israel",
	"JO": "Jordan",
	"BH": "Bahrain",
	"MA": "Morocco",
	"OM": "Oman",
	"PA": "Panama",
}

// NormalizeCountry maps a free-form country string to an alpha-2 code.
// Unrecognized input is uppercased and returned as-is when it already
// looks like a two-letter code; otherwise it falls back to "CN", the
// dominant origin for unlabeled consumer goods.
func NormalizeCountry(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	if s == "" {
		return "CN"
	}
	if code, ok := countryAliases[s]; ok {
		return code
	}
	upper := strings.ToUpper(s)
	if len(upper) == 2 {
		if _, ok := countryNames[upper]; ok {
			return upper
		}
		return upper
	}
	return "CN"
}

// CountryName returns a display name for an alpha-2 code.
func CountryName(code string) string {
	if name, ok := countryNames[strings.ToUpper(code)]; ok {
		return name
	}
	return strings.ToUpper(code)
}
