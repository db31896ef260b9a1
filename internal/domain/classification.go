package domain

// Product category identifiers used by policy tables and pass-through rates.
const (
	CategoryElectronics   = "electronics"
	CategoryFurniture     = "furniture"
	CategoryClothing      = "clothing"
	CategoryAutoParts     = "auto_parts"
	CategorySteelAluminum = "steel_aluminum"
	CategoryToys          = "toys"
	CategoryOther         = "other"
)

// CategoryLabels maps category identifiers to display labels.
var CategoryLabels = map[string]string{
	CategoryElectronics:   "Electronics",
	CategoryFurniture:     "Furniture",
	CategoryClothing:      "Clothing & Textiles",
	CategoryAutoParts:     "Auto Parts",
	CategorySteelAluminum: "Steel & Aluminum",
	CategoryToys:          "Toys & Games",
	CategoryOther:         "Other",
}

// CategoryLabel returns the display label for a category identifier.
// Unknown categories fall back to the Other label.
func CategoryLabel(category string) string {
	if label, ok := CategoryLabels[category]; ok {
		return label
	}
	return CategoryLabels[CategoryOther]
}

// Confidence levels for a classification.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// UnknownHTSCode is assigned when no classification rule matches.
const UnknownHTSCode = "9999.99.99"

// Classification is the inferred trade identity of a product.
type Classification struct {
	HTSCode         string `json:"htsCode"`
	CountryOfOrigin string `json:"countryOfOrigin"`
	Category        string `json:"category"`
	Confidence      string `json:"confidence"`

	// MatchedKeyword records which classifier rule fired, when known.
	MatchedKeyword string `json:"matchedKeyword,omitempty"`
}

// LowConfidence reports whether downstream results should carry a
// low-confidence marker.
func (c *Classification) LowConfidence() bool {
	return c.Confidence == ConfidenceLow || c.HTSCode == UnknownHTSCode
}

// AnalyzeRequest is the API payload for single-product analysis.
type AnalyzeRequest struct {
	ProductName string  `json:"productName"`
	Price       float64 `json:"price"`

	// Optional overrides. When set, the classifier is skipped for
	// that field.
	HTSCode string `json:"htsCode,omitempty"`
	Country string `json:"country,omitempty"`
}

// LookupRequest is the API payload for a direct tariff lookup.
type LookupRequest struct {
	HTSCode string  `json:"htsCode"`
	Country string  `json:"country"`
	Price   float64 `json:"price"`
}

// LookupResponse pairs the layered tariff with its consumer price
// impact at the requested price.
type LookupResponse struct {
	Tariff *TariffResult `json:"tariff"`
	Impact *PriceImpact  `json:"impact"`
}

// CandidateProduct is an alternative sourced from product search.
type CandidateProduct struct {
	Title   string  `json:"title"`
	Price   float64 `json:"price"`
	Source  string  `json:"source,omitempty"`
	Link    string  `json:"link,omitempty"`
	Country string  `json:"country"`

	// Filled by the alternatives enricher.
	TariffRate    float64 `json:"tariffRate"`
	TariffAmount  float64 `json:"tariffAmount"`
	PriceSavings  float64 `json:"priceSavings"`
	TariffSavings float64 `json:"tariffSavings"`
	Score         float64 `json:"score"`
	Reason        string  `json:"reason,omitempty"`
}

// SearchRequest is the API payload for alternative-product search.
type SearchRequest struct {
	Query      string  `json:"query"`
	MaxResults int     `json:"maxResults,omitempty"`
	MaxPrice   float64 `json:"maxPrice,omitempty"`
}

// AlternativesRequest asks for ranked substitutes for a baseline product.
type AlternativesRequest struct {
	ProductName string  `json:"productName"`
	Price       float64 `json:"price"`
	HTSCode     string  `json:"htsCode,omitempty"`
	Country     string  `json:"country,omitempty"`
	MaxResults  int     `json:"maxResults,omitempty"`
}
