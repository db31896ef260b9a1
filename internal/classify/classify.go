// Package classify infers an HTS code, category and likely origin from
// a product name.
package classify

import (
	"context"
	"strings"

	"github.com/tariffshield/harrier/internal/domain"
)

// rule maps name keywords to a trade identity. Rules are ordered:
// material rules come before apparel so "stainless steel pan" never
// lands in clothing.
type rule struct {
	keywords []string
	htsCode  string
	category string
}

var rules = []rule{
	{[]string{"stainless", "steel", "cast iron"}, "7326.90.86", domain.CategorySteelAluminum},
	{[]string{"aluminum", "aluminium"}, "7615.10.71", domain.CategorySteelAluminum},
	{[]string{"tv", "television", "monitor"}, "8528.72.64", domain.CategoryElectronics},
	{[]string{"laptop", "notebook", "macbook", "chromebook"}, "8471.30.01", domain.CategoryElectronics},
	{[]string{"phone", "smartphone", "iphone"}, "8517.13.00", domain.CategoryElectronics},
	{[]string{"headphone", "earbud", "earphone", "airpods"}, "8518.30.20", domain.CategoryElectronics},
	{[]string{"vacuum"}, "8508.11.00", domain.CategoryElectronics},
	{[]string{"oven", "stove", "microwave", "air fryer"}, "8516.60.40", domain.CategoryElectronics},
	{[]string{"sofa", "couch", "armchair", "recliner"}, "9401.61.40", domain.CategoryFurniture},
	{[]string{"chair", "desk", "table", "bookshelf", "dresser", "cabinet", "furniture", "bed frame"}, "9403.60.80", domain.CategoryFurniture},
	{[]string{"sweater", "hoodie", "pullover", "cardigan"}, "6110.20.20", domain.CategoryClothing},
	{[]string{"jeans", "pants", "trousers", "chinos"}, "6203.42.40", domain.CategoryClothing},
	{[]string{"sheet", "bedding", "linen", "towel", "duvet", "comforter"}, "6302.31.90", domain.CategoryClothing},
	{[]string{"shoe", "sneaker", "boot", "trainer"}, "6404.11.90", domain.CategoryClothing},
	{[]string{"brake", "bumper", "fender", "tail light", "car part", "auto part"}, "8708.29.50", domain.CategoryAutoParts},
	{[]string{"console", "playstation", "xbox", "nintendo"}, "9504.50.00", domain.CategoryToys},
	{[]string{"toy", "lego", "doll", "puzzle", "action figure", "board game"}, "9503.00.00", domain.CategoryToys},
}

// Classifier resolves product names with ordered keyword rules.
// Implements domain.Classifier. Unknown products degrade to a
// low-confidence catch-all instead of failing.
type Classifier struct{}

// New returns a keyword classifier.
func New() *Classifier {
	return &Classifier{}
}

// Classify never returns an error for unknown names; callers rely on
// the confidence field instead.
func (c *Classifier) Classify(ctx context.Context, productName string) (*domain.Classification, error) {
	name := strings.ToLower(strings.TrimSpace(productName))
	if name == "" {
		return nil, domain.ErrClassification
	}

	country, countryFound := DetectCountry(name)

	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(name, kw) {
				confidence := domain.ConfidenceMedium
				if countryFound {
					confidence = domain.ConfidenceHigh
				}
				return &domain.Classification{
					HTSCode:         r.htsCode,
					CountryOfOrigin: country,
					Category:        r.category,
					Confidence:      confidence,
					MatchedKeyword:  kw,
				}, nil
			}
		}
	}

	return &domain.Classification{
		HTSCode:         domain.UnknownHTSCode,
		CountryOfOrigin: country,
		Category:        domain.CategoryOther,
		Confidence:      domain.ConfidenceLow,
	}, nil
}

// DetectCountry looks for an explicit origin in the product name,
// e.g. "made in vietnam". Unlabeled consumer goods default to China;
// the second return reports whether an origin was actually found.
func DetectCountry(name string) (string, bool) {
	if i := strings.Index(name, "made in "); i >= 0 {
		rest := strings.TrimSpace(name[i+len("made in "):])
		// Origin phrase runs to the next punctuation.
		if j := strings.IndexAny(rest, ",;.("); j >= 0 {
			rest = rest[:j]
		}
		return domain.NormalizeCountry(rest), true
	}
	for adjective, code := range originAdjectives {
		if strings.Contains(name, adjective) {
			return code, true
		}
	}
	return "CN", false
}

var originAdjectives = map[string]string{
	"japanese":   "JP",
	"german":     "DE",
	"korean":     "KR",
	"vietnamese": "VN",
	"american":   "US",
	"mexican":    "MX",
	"canadian":   "CA",
	"italian":    "IT",
	"taiwanese":  "TW",
}
