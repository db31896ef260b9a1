package domain

import (
	"time"
)

// CartItem is one line of a shopping cart submitted for analysis.
type CartItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity,omitempty"`

	// Optional overrides, same semantics as AnalyzeRequest.
	HTSCode string `json:"htsCode,omitempty"`
	Country string `json:"country,omitempty"`
}

// CartRequest is the API payload for cart analysis. MaxSwaps and
// AltsPerSwap override the engine defaults when positive.
type CartRequest struct {
	Items       []CartItem `json:"items"`
	MaxSwaps    int        `json:"maxSwaps,omitempty"`
	AltsPerSwap int        `json:"altsPerSwap,omitempty"`
}

// AnalyzedItem is one cart item after classification and tariff
// computation. Err is set when this item failed; the rest of the cart
// still aggregates.
type AnalyzedItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`

	Classification Classification `json:"classification"`
	Tariff         *TariffResult  `json:"tariff,omitempty"`
	Impact         *PriceImpact   `json:"impact,omitempty"`

	// Err is a human-readable failure marker, e.g.
	// "classification_error: ...". Empty on success.
	Err string `json:"error,omitempty"`
}

// TariffYouPay returns the consumer-borne tariff for this line,
// scaled by quantity. Zero for failed items.
func (it *AnalyzedItem) TariffYouPay() float64 {
	if it.Err != "" || it.Impact == nil {
		return 0
	}
	qty := it.Quantity
	if qty < 1 {
		qty = 1
	}
	return RoundCents(it.Impact.TariffYouPay * float64(qty))
}

// LineTotal returns price * quantity for this line.
func (it *AnalyzedItem) LineTotal() float64 {
	qty := it.Quantity
	if qty < 1 {
		qty = 1
	}
	return RoundCents(it.Price * float64(qty))
}

// GroupTotal is an aggregation bucket keyed by category or country.
// AvgTariffRate is TariffYouPay / Spend for country buckets, zero
// when spend is zero.
type GroupTotal struct {
	Key           string  `json:"key"`
	Label         string  `json:"label"`
	ItemCount     int     `json:"itemCount"`
	Spend         float64 `json:"spend"`
	TariffYouPay  float64 `json:"tariffYouPay"`
	AvgTariffRate float64 `json:"avgTariffRate,omitempty"`
}

// SwapSuggestion pairs a cart item with its ranked alternatives,
// best first. PotentialSaved reflects the top alternative.
type SwapSuggestion struct {
	ItemName          string             `json:"itemName"`
	ItemPrice         float64            `json:"itemPrice"`
	TariffYouPay      float64            `json:"tariffYouPay"`
	Alternatives      []CandidateProduct `json:"alternatives"`
	AlternativesFound int                `json:"alternativesFound"`
	Verdict           *SwapVerdict       `json:"verdict,omitempty"`
	PotentialSaved    float64            `json:"potentialSaved"`
}

// CartSummary is the rollup across all analyzed items.
type CartSummary struct {
	TotalItems    int     `json:"totalItems"`
	AnalyzedItems int     `json:"analyzedItems"`
	FailedItems   int     `json:"failedItems"`

	CartTotal         float64 `json:"cartTotal"`
	TotalTariffAmount float64 `json:"totalTariffAmount"`
	TotalTariffYouPay float64 `json:"totalTariffYouPay"`

	// EffectiveRate is TotalTariffYouPay / CartTotal, zero when the
	// cart total is zero.
	EffectiveRate float64 `json:"effectiveRate"`

	ByCategory []GroupTotal `json:"byCategory"`
	ByCountry  []GroupTotal `json:"byCountry"`

	// PotentialSavings sums the top-alternative savings across all
	// swap suggestions; SwapCount is the number of suggestions.
	PotentialSavings float64 `json:"potentialSavings"`
	SwapCount        int     `json:"swapCount"`

	// HighestItem names the line with the largest consumer tariff.
	HighestItem     string  `json:"highestItem,omitempty"`
	HighestItemCost float64 `json:"highestItemCost,omitempty"`
}

// CartAnalysis is the complete result of a cart analysis.
type CartAnalysis struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	Timestamp time.Time `json:"timestamp"`

	Items    []AnalyzedItem   `json:"items"`
	Summary  CartSummary      `json:"summary"`
	Swaps    []SwapSuggestion `json:"swaps,omitempty"`
	Headline string           `json:"headline,omitempty"`

	Metadata CartMetadata `json:"metadata"`
}

// CartMetadata carries processing information for a cart analysis.
type CartMetadata struct {
	TraceID       string `json:"traceId,omitempty"`
	ItemsMs       int64  `json:"itemsMs"`
	SwapsMs       int64  `json:"swapsMs"`
	TotalMs       int64  `json:"totalMs"`
	Workers       int    `json:"workers"`
	EngineVersion string `json:"engineVersion"`
}
