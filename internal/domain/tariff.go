// Package domain defines the core interfaces and types for Harrier.
package domain

import (
	"fmt"
	"math"
)

// TariffCode is one entry of the loaded HTS reference table.
// Entries are immutable after load and shared across requests.
type TariffCode struct {
	// Code is the dotted hierarchical HTS code, e.g. "8528.72.64".
	Code string `json:"code"`

	// NormCode is the code with dots and spaces stripped, used for
	// prefix matching.
	NormCode string `json:"-"`

	Description string `json:"description"`

	// MFNBaseRate is the parsed General Rate of Duty as a fraction.
	// Zero for "Free" entries.
	MFNBaseRate float64 `json:"mfnBaseRate"`

	// RawRateString is the unparsed duty column, kept for explainability.
	RawRateString string `json:"rawRateString"`

	// SpecialRateString is the Special Rate of Duty column (FTA programs).
	SpecialRateString string `json:"specialRateString,omitempty"`

	// Chapter is the leading two digits of the code.
	Chapter string `json:"chapter"`
}

// LayerType identifies one regulatory tariff layer.
type LayerType string

// Layer types in fixed evaluation order. Order matters for display;
// contributions are additive over the base price, not compounding.
const (
	LayerMFNBase       LayerType = "mfn_base"
	LayerSection301    LayerType = "section_301"
	LayerSection232    LayerType = "section_232"
	LayerIEEPAFentanyl LayerType = "ieepa_fentanyl"
	LayerSection122    LayerType = "section_122"
	LayerFTAAdjustment LayerType = "fta_adjustment"
)

// LayerOrder is the canonical display order of layer types.
var LayerOrder = []LayerType{
	LayerMFNBase,
	LayerSection301,
	LayerSection232,
	LayerIEEPAFentanyl,
	LayerSection122,
	LayerFTAAdjustment,
}

// TariffLayer is one named contribution to the total effective rate.
// Non-applying and zero-rate layers are retained for explainability.
type TariffLayer struct {
	Type      LayerType `json:"type"`
	Rate      float64   `json:"rate"`
	Applies   bool      `json:"applies"`
	Rationale string    `json:"rationale,omitempty"`
}

// TariffResult is the calculator output for one (classification, price) pair.
type TariffResult struct {
	HTSCode      string `json:"htsCode"`
	Country      string `json:"country"`
	CountryName  string `json:"countryName"`
	Category     string `json:"category"`
	CategoryLabel string `json:"categoryLabel"`
	Description  string `json:"description"`

	// Layers in evaluation order, including non-applying ones.
	Layers []TariffLayer `json:"layers"`

	// TotalRate is the sum of applying layer rates, clamped to >= 0.
	TotalRate float64 `json:"totalRate"`

	// TotalTariffAmount is price * TotalRate, rounded to cents.
	TotalTariffAmount float64 `json:"totalTariffAmount"`

	RawRateString string `json:"rawRateString,omitempty"`

	// LowConfidence is set when the code was resolved via a broad prefix
	// fallback or not found at all.
	LowConfidence bool `json:"lowConfidence,omitempty"`
}

// TotalPct renders the total rate as a percentage string, e.g. "58.9%".
func (r *TariffResult) TotalPct() string {
	return fmt.Sprintf("%.1f%%", r.TotalRate*100)
}

// TariffOnPrice returns the nominal tariff amount embedded in a price.
func (r *TariffResult) TariffOnPrice(price float64) float64 {
	return RoundCents(price * r.TotalRate)
}

// AppliedSum returns the sum of applying layer rates, clamped to >= 0.
func (r *TariffResult) AppliedSum() float64 {
	var sum float64
	for _, l := range r.Layers {
		if l.Applies {
			sum += l.Rate
		}
	}
	if sum < 0 {
		return 0
	}
	return sum
}

// PriceImpact converts a nominal tariff into the share the buyer pays.
type PriceImpact struct {
	RetailPrice         float64 `json:"retailPrice"`
	NominalTariffAmount float64 `json:"nominalTariffAmount"`

	// PassthroughRate is the fraction of the tariff reflected in the
	// retail price, in [0, 1].
	PassthroughRate float64 `json:"passthroughRate"`

	TariffYouPay            float64 `json:"tariffYouPay"`
	EstimatedPreTariffPrice float64 `json:"estimatedPreTariffPrice"`
	TariffShareOfPrice      string  `json:"tariffShareOfPrice"`
	PassthroughNote         string  `json:"passthroughNote,omitempty"`
}

// RoundCents rounds a dollar amount to currency precision.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
