//go:build integration
// +build integration

// Package integration provides end-to-end tests for the Harrier tariff
// engine.
//
// These tests verify the COMPLETE analysis pipeline:
//
//	Product → Classification → Layered Tariff → Pass-Through → Alternatives
//
// Run with: go test -tags=integration -v ./tests/integration/...
//
// UNDERSTANDING THE DOMAIN:
//
// 1. CLASSIFICATION: A product name resolves to an HTS code, a product
//    category, and a likely country of origin. Callers can override
//    either with explicit htsCode/country fields.
//
// 2. LAYERED TARIFF: The effective rate is the sum of independent
//    regulatory layers (MFN base, Section 301, Section 232, IEEPA,
//    Section 122, FTA adjustment). Every layer appears in the response
//    with an applies flag and a rationale.
//
// 3. PASS-THROUGH: Only part of a tariff reaches the shelf price. The
//    consumer share ("tariffYouPay") is nominal tariff x category
//    pass-through rate.
//
// 4. ALTERNATIVES: Candidate products from other origins are enriched
//    with their own tariff burden and ranked; a verdict grades the
//    best swap.
//
// The server under test runs the embedded sample HTS table and the
// built-in policy snapshot, so the expected rates below are stable.
package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

// TestConfig holds test environment configuration
type TestConfig struct {
	BaseURL  string
	TenantID string
}

func getTestConfig() TestConfig {
	baseURL := os.Getenv("HARRIER_TEST_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return TestConfig{
		BaseURL:  baseURL,
		TenantID: "test-tenant",
	}
}

// ============================================================================
// API Request/Response Types (matching Harrier's API contract)
// ============================================================================

type AnalyzeRequest struct {
	ProductName string  `json:"productName"`
	Price       float64 `json:"price"`
	HTSCode     string  `json:"htsCode,omitempty"`
	Country     string  `json:"country,omitempty"`
}

type LookupRequest struct {
	HTSCode string  `json:"htsCode"`
	Country string  `json:"country"`
	Price   float64 `json:"price"`
}

type CartItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity,omitempty"`
}

type CartRequest struct {
	Items []CartItem `json:"items"`
}

type Layer struct {
	Type      string  `json:"type"`
	Rate      float64 `json:"rate"`
	Applies   bool    `json:"applies"`
	Rationale string  `json:"rationale"`
}

type TariffResult struct {
	HTSCode       string  `json:"htsCode"`
	Country       string  `json:"country"`
	Category      string  `json:"category"`
	Layers        []Layer `json:"layers"`
	TotalRate     float64 `json:"totalRate"`
	LowConfidence bool    `json:"lowConfidence"`
}

type LookupResponse struct {
	Tariff *TariffResult `json:"tariff"`
	Impact *Impact       `json:"impact"`
}

type Impact struct {
	NominalTariffAmount float64 `json:"nominalTariffAmount"`
	PassthroughRate     float64 `json:"passthroughRate"`
	TariffYouPay        float64 `json:"tariffYouPay"`
}

type Verdict struct {
	Tier        string  `json:"tier"`
	BestSavings float64 `json:"bestSavings"`
}

type AnalyzeResponse struct {
	ID             string `json:"id"`
	Classification struct {
		HTSCode         string `json:"htsCode"`
		Category        string `json:"category"`
		CountryOfOrigin string `json:"countryOfOrigin"`
		Confidence      string `json:"confidence"`
	} `json:"classification"`
	Tariff       *TariffResult `json:"tariff"`
	Impact       *Impact       `json:"impact"`
	Alternatives []struct {
		Title   string  `json:"title"`
		Country string  `json:"country"`
		Score   float64 `json:"score"`
	} `json:"alternatives"`
	Verdict  *Verdict `json:"verdict"`
	Headline string   `json:"headline"`
	Metadata struct {
		TraceID       string `json:"traceId"`
		TotalMs       int64  `json:"totalMs"`
		EngineVersion string `json:"engineVersion"`
	} `json:"metadata"`
}

type CartResponse struct {
	ID      string `json:"id"`
	Summary struct {
		TotalItems        int     `json:"totalItems"`
		AnalyzedItems     int     `json:"analyzedItems"`
		FailedItems       int     `json:"failedItems"`
		CartTotal         float64 `json:"cartTotal"`
		TotalTariffYouPay float64 `json:"totalTariffYouPay"`
		EffectiveRate     float64 `json:"effectiveRate"`
	} `json:"summary"`
	Swaps []struct {
		ItemName       string  `json:"itemName"`
		PotentialSaved float64 `json:"potentialSaved"`
	} `json:"swaps"`
	Headline string `json:"headline"`
}

// ============================================================================
// Test Helper Functions
// ============================================================================

func post(t *testing.T, config TestConfig, path string, payload any, out any) int {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}

	httpReq, err := http.NewRequest("POST", config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", config.TenantID)

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}

	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.Unmarshal(respBody, out); err != nil {
			t.Fatalf("Failed to unmarshal response: %v (body: %s)", err, string(respBody))
		}
	}
	return resp.StatusCode
}

func analyze(t *testing.T, config TestConfig, req AnalyzeRequest) AnalyzeResponse {
	t.Helper()
	var result AnalyzeResponse
	if status := post(t, config, "/analyze", req, &result); status != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", status)
	}
	return result
}

// ============================================================================
// SCENARIO 1: Chinese electronics carry the full layer stack
// ============================================================================

func TestChineseTV_FullStack(t *testing.T) {
	/*
	   SCENARIO: A $500 smart TV, classified as Chinese-origin electronics.

	   EXPECTED BEHAVIOR:
	   - MFN base: 0% (flat-panel TVs enter Free)
	   - Section 301: +25% (China electronics)
	   - IEEPA: +20% (China origin)
	   - Section 122: +10% (all imports)
	   - Total: 55% effective rate
	   - Consumer share: $500 x 0.55 x 0.70 pass-through = $192.50
	*/
	config := getTestConfig()

	result := analyze(t, config, AnalyzeRequest{
		ProductName: "55 inch 4K Smart TV",
		Price:       500,
	})

	if result.Classification.HTSCode != "8528.72.64" {
		t.Errorf("Expected HTS 8528.72.64, got %s", result.Classification.HTSCode)
	}
	if result.Classification.CountryOfOrigin != "CN" {
		t.Errorf("Expected CN origin, got %s", result.Classification.CountryOfOrigin)
	}
	if result.Tariff.TotalRate != 0.55 {
		t.Errorf("Expected 55%% total rate, got %.2f", result.Tariff.TotalRate)
	}
	if result.Impact.TariffYouPay != 192.50 {
		t.Errorf("Expected $192.50 consumer tariff, got %.2f", result.Impact.TariffYouPay)
	}

	// Every layer must carry a rationale, applying or not.
	for _, layer := range result.Tariff.Layers {
		if layer.Rationale == "" {
			t.Errorf("Layer %s has no rationale", layer.Type)
		}
	}

	if len(result.Alternatives) == 0 {
		t.Error("Expected alternatives for a high-tariff product")
	}
	if result.Verdict == nil || result.Verdict.Tier == "none" {
		t.Error("Expected a graded swap verdict")
	}

	t.Logf("✓ TV analysis: rate=%.0f%%, youPay=$%.2f, verdict=%v",
		result.Tariff.TotalRate*100, result.Impact.TariffYouPay, result.Verdict.Tier)
}

// ============================================================================
// SCENARIO 2: USMCA origin zeroes the base, Section 122 still applies
// ============================================================================

func TestMexicanOrigin_USMCAOffset(t *testing.T) {
	/*
	   SCENARIO: The same TV sourced from Mexico via explicit overrides.

	   EXPECTED BEHAVIOR:
	   - No Section 301 (not China), no IEEPA (not China)
	   - USMCA zeroes the MFN base
	   - Section 122 (+10%) applies to all non-US origins
	   - Total: 10%
	*/
	config := getTestConfig()

	var result LookupResponse
	if status := post(t, config, "/lookup", LookupRequest{
		HTSCode: "8528.72.64",
		Country: "MX",
		Price:   450,
	}, &result); status != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", status)
	}

	if result.Tariff == nil {
		t.Fatal("Expected a tariff result")
	}
	if result.Tariff.TotalRate != 0.10 {
		t.Errorf("Expected 10%% for Mexican origin, got %.2f", result.Tariff.TotalRate)
	}
	if result.Impact == nil || result.Impact.TariffYouPay <= 0 {
		t.Error("Expected a consumer impact alongside the tariff")
	}

	t.Logf("✓ USMCA lookup: rate=%.0f%%", result.Tariff.TotalRate*100)
}

// ============================================================================
// SCENARIO 3: Unknown products degrade, not fail
// ============================================================================

func TestUnknownProduct_LowConfidenceFallback(t *testing.T) {
	/*
	   SCENARIO: A product name the classifier has never seen.

	   EXPECTED BEHAVIOR:
	   - Classification degrades to a catch-all code with low confidence
	   - Policy layers still apply off the assumed origin
	   - HTTP 200, never a classification error
	*/
	config := getTestConfig()

	result := analyze(t, config, AnalyzeRequest{
		ProductName: "Zorblatt industrial flux capacitor",
		Price:       100,
	})

	if result.Classification.Confidence == "high" {
		t.Errorf("Expected degraded confidence for unknown product, got %s",
			result.Classification.Confidence)
	}
	if !result.Tariff.LowConfidence {
		t.Error("Expected lowConfidence flag on the tariff result")
	}
	if result.Tariff.TotalRate <= 0 {
		t.Errorf("Expected positive fallback rate, got %.2f", result.Tariff.TotalRate)
	}

	t.Logf("✓ Unknown product degraded gracefully: rate=%.0f%%", result.Tariff.TotalRate*100)
}

// ============================================================================
// SCENARIO 4: Cart aggregation with partial failure
// ============================================================================

func TestCartAnalysis_Aggregation(t *testing.T) {
	/*
	   SCENARIO: A mixed cart with one unpriceable item (empty name).

	   EXPECTED BEHAVIOR:
	   - Valid items analyzed concurrently, failed item counted but
	     excluded from money columns
	   - Quantity multiplies both spend and consumer tariff
	   - Swap suggestions target the largest consumer-tariff lines
	*/
	config := getTestConfig()

	var result CartResponse
	if status := post(t, config, "/cart/analyze", CartRequest{
		Items: []CartItem{
			{Name: "55 inch 4K Smart TV", Price: 500},
			{Name: "Cotton sweater", Price: 50, Quantity: 2},
			{Name: "", Price: 10},
		},
	}, &result); status != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", status)
	}

	if result.Summary.TotalItems != 3 {
		t.Errorf("Expected 3 total items, got %d", result.Summary.TotalItems)
	}
	if result.Summary.AnalyzedItems != 2 {
		t.Errorf("Expected 2 analyzed items, got %d", result.Summary.AnalyzedItems)
	}
	if result.Summary.FailedItems != 1 {
		t.Errorf("Expected 1 failed item, got %d", result.Summary.FailedItems)
	}
	if result.Summary.CartTotal != 600 {
		t.Errorf("Expected $600 cart total, got %.2f", result.Summary.CartTotal)
	}
	if result.Summary.TotalTariffYouPay <= 0 {
		t.Error("Expected positive consumer tariff for the cart")
	}
	if result.Headline == "" {
		t.Error("Expected a cart headline")
	}

	t.Logf("✓ Cart: total=$%.2f, youPay=$%.2f, swaps=%d",
		result.Summary.CartTotal, result.Summary.TotalTariffYouPay, len(result.Swaps))
}

// ============================================================================
// SCENARIO 5: Determinism
// ============================================================================

func TestAnalysisDeterminism(t *testing.T) {
	/*
	   SCENARIO: The same request twice must produce identical numbers.
	   Caching the classification must not change any output.
	*/
	config := getTestConfig()

	req := AnalyzeRequest{ProductName: "Gaming laptop", Price: 999}
	first := analyze(t, config, req)
	second := analyze(t, config, req)

	if first.Tariff.TotalRate != second.Tariff.TotalRate {
		t.Errorf("Rate changed between runs: %.4f vs %.4f",
			first.Tariff.TotalRate, second.Tariff.TotalRate)
	}
	if first.Impact.TariffYouPay != second.Impact.TariffYouPay {
		t.Errorf("Consumer tariff changed between runs: %.2f vs %.2f",
			first.Impact.TariffYouPay, second.Impact.TariffYouPay)
	}

	t.Logf("✓ Deterministic: rate=%.2f both runs", first.Tariff.TotalRate)
}

// ============================================================================
// SCENARIO 6: Input Validation
// ============================================================================

func TestMissingNameAndCode_Error(t *testing.T) {
	config := getTestConfig()

	if status := post(t, config, "/analyze", AnalyzeRequest{Price: 100}, nil); status != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing name and code, got %d", status)
	}
}

func TestNegativePrice_Error(t *testing.T) {
	config := getTestConfig()

	if status := post(t, config, "/analyze", AnalyzeRequest{
		ProductName: "TV",
		Price:       -1,
	}, nil); status != http.StatusBadRequest {
		t.Errorf("Expected 400 for negative price, got %d", status)
	}
}

func TestEmptyCart_Error(t *testing.T) {
	config := getTestConfig()

	if status := post(t, config, "/cart/analyze", CartRequest{}, nil); status != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty cart, got %d", status)
	}
}

func TestMissingTenantHeader_Error(t *testing.T) {
	config := getTestConfig()

	body, _ := json.Marshal(AnalyzeRequest{ProductName: "TV", Price: 100})
	httpReq, _ := http.NewRequest("POST", config.BaseURL+"/analyze", bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	// NO X-Tenant-ID header!

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing tenant, got %d", resp.StatusCode)
	}
}

// ============================================================================
// SCENARIO 7: Response Metadata Verification
// ============================================================================

func TestResponseMetadata(t *testing.T) {
	/*
	   SCENARIO: Verify response includes all required metadata.
	   This ensures the API contract is stable for clients.
	*/
	config := getTestConfig()

	result := analyze(t, config, AnalyzeRequest{
		ProductName: "Wireless earbuds",
		Price:       129,
	})

	if result.ID == "" {
		t.Error("Missing analysis id")
	}
	if result.Metadata.TraceID == "" {
		t.Error("Missing metadata.traceId")
	}
	if result.Metadata.EngineVersion == "" {
		t.Error("Missing metadata.engineVersion")
	}
	// Note: TotalMs can be 0 for very fast operations (sub-millisecond)
	if result.Metadata.TotalMs < 0 {
		t.Error("Invalid metadata.totalMs (negative)")
	}
	if result.Headline == "" {
		t.Error("Missing headline")
	}

	t.Logf("✓ Metadata complete: id=%s, traceId=%s, totalMs=%d",
		result.ID[:8], result.Metadata.TraceID[:8], result.Metadata.TotalMs)
}
