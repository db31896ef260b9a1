package domain

import (
	"time"
)

// ProductAnalysis is the complete result for one product: classification,
// layered tariff, consumer price impact, and ranked alternatives.
type ProductAnalysis struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`

	ProductName string    `json:"productName"`
	Price       float64   `json:"price"`
	Timestamp   time.Time `json:"timestamp"`

	Classification Classification     `json:"classification"`
	Tariff         *TariffResult      `json:"tariff"`
	Impact         *PriceImpact       `json:"impact"`
	Alternatives   []CandidateProduct `json:"alternatives,omitempty"`

	// Verdict summarizes whether switching is worthwhile.
	Verdict *SwapVerdict `json:"verdict,omitempty"`

	Headline string `json:"headline,omitempty"`

	Metadata AnalysisMetadata `json:"metadata"`
}

// SwapVerdict grades the best available alternative.
type SwapVerdict struct {
	// Tier is "strong", "good", "marginal", or "none".
	Tier string `json:"tier"`

	SavingsPct  float64 `json:"savingsPct"`
	BestSavings float64 `json:"bestSavings"`
	Message     string  `json:"message"`
}

// Verdict tiers, ordered best to worst.
const (
	VerdictStrong   = "strong"
	VerdictGood     = "good"
	VerdictMarginal = "marginal"
	VerdictNone     = "none"
)

// AnalysisMetadata carries per-stage timing for an analysis.
type AnalysisMetadata struct {
	TraceID        string `json:"traceId,omitempty"`
	ClassifyMs     int64  `json:"classifyMs"`
	TariffMs       int64  `json:"tariffMs"`
	AlternativesMs int64  `json:"alternativesMs"`
	TotalMs        int64  `json:"totalMs"`
	EngineVersion  string `json:"engineVersion"`
}

// Alert is a watch-rule alert raised for an analysis or a cart.
type Alert struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	SubjectID string    `json:"subjectId"`
	Kind      string    `json:"kind"` // "product" or "cart"
	Score     float64   `json:"score"`
	Reasons   []string  `json:"reasons,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Alert kinds.
const (
	AlertKindProduct = "product"
	AlertKindCart    = "cart"
)
