package cart

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/tariffshield/harrier/internal/alternatives"
	"github.com/tariffshield/harrier/internal/classify"
	"github.com/tariffshield/harrier/internal/domain"
	"github.com/tariffshield/harrier/internal/htstable"
	"github.com/tariffshield/harrier/internal/passthrough"
	"github.com/tariffshield/harrier/internal/search"
	"github.com/tariffshield/harrier/internal/tariff"
)

func newTestAnalyzer(t *testing.T, catalog []domain.CandidateProduct) *Analyzer {
	t.Helper()
	return newTestAnalyzerWith(t, search.NewCatalogSearcherWith(catalog))
}

func newTestAnalyzerWith(t *testing.T, searcher domain.Searcher) *Analyzer {
	t.Helper()

	tables, err := htstable.NewProvider("")
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	calc, err := tariff.NewCalculator(tables, domain.DefaultPolicyTable())
	if err != nil {
		t.Fatalf("NewCalculator failed: %v", err)
	}

	a, err := NewAnalyzer(
		classify.New(),
		calc,
		passthrough.NewModel(),
		searcher,
		alternatives.NewScorer(calc),
		nil,
		domain.DefaultConfig().Engine,
		"test",
	)
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}
	return a
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.001
}

func TestAnalyzeCart(t *testing.T) {
	catalog := []domain.CandidateProduct{
		{Title: "55 inch 4K Smart TV (Mexico assembled)", Price: 450, Country: "MX", Source: "catalog"},
	}
	a := newTestAnalyzer(t, catalog)
	ctx := context.Background()

	req := &domain.CartRequest{
		Items: []domain.CartItem{
			{Name: "55 inch 4K Smart TV", Price: 500},
			{Name: "Cotton sweater made in vietnam", Price: 50, Quantity: 2},
			{Name: "German brake pads", Price: 80},
			{Name: "Mystery gadget", Price: 100},
			{Name: "", Price: 10},
		},
	}

	analysis, err := a.Analyze(ctx, "tenant-001", req)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	t.Run("Counts", func(t *testing.T) {
		s := analysis.Summary
		if s.TotalItems != 5 {
			t.Errorf("TotalItems = %d, want 5", s.TotalItems)
		}
		if s.AnalyzedItems != 4 {
			t.Errorf("AnalyzedItems = %d, want 4", s.AnalyzedItems)
		}
		if s.FailedItems != 1 {
			t.Errorf("FailedItems = %d, want 1", s.FailedItems)
		}
	})

	t.Run("FailedItemKeepsMarker", func(t *testing.T) {
		it := analysis.Items[4]
		if !strings.HasPrefix(it.Err, "classification_error:") {
			t.Errorf("Err = %q, want classification_error prefix", it.Err)
		}
		if it.Tariff != nil || it.Impact != nil {
			t.Error("failed item should carry no tariff or impact")
		}
		if it.TariffYouPay() != 0 {
			t.Errorf("failed item TariffYouPay = %v, want 0", it.TariffYouPay())
		}
	})

	t.Run("ItemsKeepInputOrder", func(t *testing.T) {
		want := []string{
			"55 inch 4K Smart TV",
			"Cotton sweater made in vietnam",
			"German brake pads",
			"Mystery gadget",
			"",
		}
		for i, name := range want {
			if analysis.Items[i].Name != name {
				t.Errorf("items[%d].Name = %q, want %q", i, analysis.Items[i].Name, name)
			}
		}
	})

	t.Run("Totals", func(t *testing.T) {
		s := analysis.Summary
		// TV: 500 * 0.55 * 0.70 = 192.50
		// Sweater x2 (VN): 2 * 50 * 0.265 * 0.85 = 22.52
		// Brake pads (DE): 80 * 0.125 * 0.60 = 6.00
		// Gadget (unknown, CN): 100 * 0.30 * 0.72 = 21.60
		if !almostEqual(s.CartTotal, 780) {
			t.Errorf("CartTotal = %v, want 780", s.CartTotal)
		}
		if !almostEqual(s.TotalTariffAmount, 341.50) {
			t.Errorf("TotalTariffAmount = %v, want 341.50", s.TotalTariffAmount)
		}
		if !almostEqual(s.TotalTariffYouPay, 242.62) {
			t.Errorf("TotalTariffYouPay = %v, want 242.62", s.TotalTariffYouPay)
		}
		if !almostEqual(s.EffectiveRate, 242.62/780) {
			t.Errorf("EffectiveRate = %v, want %v", s.EffectiveRate, 242.62/780)
		}
	})

	t.Run("HighestItem", func(t *testing.T) {
		s := analysis.Summary
		if s.HighestItem != "55 inch 4K Smart TV" {
			t.Errorf("HighestItem = %q", s.HighestItem)
		}
		if !almostEqual(s.HighestItemCost, 192.50) {
			t.Errorf("HighestItemCost = %v, want 192.50", s.HighestItemCost)
		}
	})

	t.Run("GroupsOrderedByTariff", func(t *testing.T) {
		s := analysis.Summary
		wantCats := []string{
			domain.CategoryElectronics,
			domain.CategoryClothing,
			domain.CategoryOther,
			domain.CategoryAutoParts,
		}
		if len(s.ByCategory) != len(wantCats) {
			t.Fatalf("ByCategory has %d buckets, want %d", len(s.ByCategory), len(wantCats))
		}
		for i, want := range wantCats {
			if s.ByCategory[i].Key != want {
				t.Errorf("ByCategory[%d] = %q, want %q", i, s.ByCategory[i].Key, want)
			}
		}

		wantCountries := []string{"CN", "VN", "DE"}
		if len(s.ByCountry) != len(wantCountries) {
			t.Fatalf("ByCountry has %d buckets, want %d", len(s.ByCountry), len(wantCountries))
		}
		for i, want := range wantCountries {
			if s.ByCountry[i].Key != want {
				t.Errorf("ByCountry[%d] = %q, want %q", i, s.ByCountry[i].Key, want)
			}
		}
		// CN bucket spans the TV and the gadget.
		if s.ByCountry[0].ItemCount != 2 || !almostEqual(s.ByCountry[0].TariffYouPay, 214.10) {
			t.Errorf("CN bucket = %+v", s.ByCountry[0])
		}
	})

	t.Run("Swaps", func(t *testing.T) {
		if len(analysis.Swaps) != 3 {
			t.Fatalf("got %d swaps, want 3", len(analysis.Swaps))
		}

		top := analysis.Swaps[0]
		if top.ItemName != "55 inch 4K Smart TV" {
			t.Errorf("top swap item = %q", top.ItemName)
		}
		if top.AlternativesFound != 1 || len(top.Alternatives) != 1 {
			t.Fatalf("top swap alternatives = %d (found %d), want 1", len(top.Alternatives), top.AlternativesFound)
		}
		if top.Alternatives[0].Country != "MX" {
			t.Errorf("alternative country = %q, want MX", top.Alternatives[0].Country)
		}
		// 50 price savings + 230 tariff savings.
		if !almostEqual(top.PotentialSaved, 280) {
			t.Errorf("PotentialSaved = %v, want 280", top.PotentialSaved)
		}
		if top.Verdict == nil || top.Verdict.Tier != domain.VerdictGood {
			t.Errorf("verdict = %+v, want good tier", top.Verdict)
		}

		// No catalog matches for the other items.
		for _, swap := range analysis.Swaps[1:] {
			if len(swap.Alternatives) != 0 || swap.AlternativesFound != 0 {
				t.Errorf("unexpected alternatives for %q", swap.ItemName)
			}
			if swap.Verdict == nil || swap.Verdict.Tier != domain.VerdictNone {
				t.Errorf("verdict for %q = %+v, want none", swap.ItemName, swap.Verdict)
			}
		}
	})

	t.Run("SwapRollup", func(t *testing.T) {
		s := analysis.Summary
		if s.SwapCount != 3 {
			t.Errorf("SwapCount = %d, want 3", s.SwapCount)
		}
		// Only the TV swap saves anything.
		if !almostEqual(s.PotentialSavings, 280) {
			t.Errorf("PotentialSavings = %v, want 280", s.PotentialSavings)
		}
	})

	t.Run("CountryAvgRate", func(t *testing.T) {
		s := analysis.Summary
		// CN bucket: 214.10 consumer tariff over 600 spend.
		if !almostEqual(s.ByCountry[0].AvgTariffRate, 214.10/600) {
			t.Errorf("CN AvgTariffRate = %v, want %v", s.ByCountry[0].AvgTariffRate, 214.10/600)
		}
		for _, g := range s.ByCountry {
			if g.Spend > 0 && !almostEqual(g.AvgTariffRate, g.TariffYouPay/g.Spend) {
				t.Errorf("%s AvgTariffRate = %v, want %v", g.Key, g.AvgTariffRate, g.TariffYouPay/g.Spend)
			}
		}
	})

	t.Run("Headline", func(t *testing.T) {
		if !strings.Contains(analysis.Headline, "huge") {
			t.Errorf("headline = %q, want the high-impact wording", analysis.Headline)
		}
	})

	t.Run("Metadata", func(t *testing.T) {
		if analysis.Metadata.Workers != 8 {
			t.Errorf("Workers = %d, want 8", analysis.Metadata.Workers)
		}
		if analysis.Metadata.EngineVersion != "test" {
			t.Errorf("EngineVersion = %q", analysis.Metadata.EngineVersion)
		}
		if analysis.ID == "" || analysis.TenantID != "tenant-001" {
			t.Errorf("identity fields missing: %q %q", analysis.ID, analysis.TenantID)
		}
	})
}

func TestAnalyzeCartDeterministic(t *testing.T) {
	a := newTestAnalyzer(t, nil)
	ctx := context.Background()

	req := &domain.CartRequest{
		Items: []domain.CartItem{
			{Name: "55 inch 4K Smart TV", Price: 500},
			{Name: "Cotton sweater", Price: 50},
			{Name: "Aluminum frying pan", Price: 40},
			{Name: "Lego castle set", Price: 120},
		},
	}

	first, err := a.Analyze(ctx, "tenant-001", req)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	second, err := a.Analyze(ctx, "tenant-001", req)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !almostEqual(first.Summary.TotalTariffYouPay, second.Summary.TotalTariffYouPay) {
		t.Errorf("totals differ across runs: %v vs %v",
			first.Summary.TotalTariffYouPay, second.Summary.TotalTariffYouPay)
	}
	for i := range first.Summary.ByCategory {
		if first.Summary.ByCategory[i] != second.Summary.ByCategory[i] {
			t.Errorf("category bucket %d differs: %+v vs %+v",
				i, first.Summary.ByCategory[i], second.Summary.ByCategory[i])
		}
	}
	for i := range first.Items {
		if first.Items[i].Name != second.Items[i].Name {
			t.Errorf("item order differs at %d", i)
		}
	}
}

func TestAnalyzeCartValidation(t *testing.T) {
	a := newTestAnalyzer(t, nil)
	ctx := context.Background()

	t.Run("EmptyCart", func(t *testing.T) {
		_, err := a.Analyze(ctx, "tenant-001", &domain.CartRequest{})
		if !errors.Is(err, domain.ErrEmptyCart) {
			t.Errorf("err = %v, want ErrEmptyCart", err)
		}
	})

	t.Run("NilRequest", func(t *testing.T) {
		_, err := a.Analyze(ctx, "tenant-001", nil)
		if !errors.Is(err, domain.ErrEmptyCart) {
			t.Errorf("err = %v, want ErrEmptyCart", err)
		}
	})

	t.Run("MissingTenantID", func(t *testing.T) {
		_, err := a.Analyze(ctx, "", &domain.CartRequest{
			Items: []domain.CartItem{{Name: "TV", Price: 100}},
		})
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("err = %v, want ErrInvalidInput", err)
		}
	})
}

func TestAnalyzeCartOverrides(t *testing.T) {
	a := newTestAnalyzer(t, nil)
	ctx := context.Background()

	req := &domain.CartRequest{
		Items: []domain.CartItem{
			{Name: "Mystery import", Price: 200, HTSCode: "8528.72.64", Country: "MX"},
		},
	}

	analysis, err := a.Analyze(ctx, "tenant-001", req)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	it := analysis.Items[0]
	if it.Err != "" {
		t.Fatalf("unexpected item error: %s", it.Err)
	}
	if it.Classification.CountryOfOrigin != "MX" {
		t.Errorf("country = %q, want MX", it.Classification.CountryOfOrigin)
	}
	if it.Classification.Category != domain.CategoryElectronics {
		t.Errorf("category = %q, want electronics", it.Classification.Category)
	}
	// MX origin pays only the Section 122 surcharge.
	if !almostEqual(it.Tariff.TotalRate, 0.10) {
		t.Errorf("TotalRate = %v, want 0.10", it.Tariff.TotalRate)
	}
}

func TestAnalyzeCartRankedSwaps(t *testing.T) {
	catalog := []domain.CandidateProduct{
		{Title: "55 inch 4K Smart TV (Mexico assembled)", Price: 450, Country: "MX", Source: "catalog"},
		{Title: "55 inch 4K Smart TV (Vietnam assembled)", Price: 430, Country: "VN", Source: "catalog"},
	}
	a := newTestAnalyzer(t, catalog)
	ctx := context.Background()

	analysis, err := a.Analyze(ctx, "tenant-001", &domain.CartRequest{
		Items: []domain.CartItem{{Name: "55 inch 4K Smart TV", Price: 500}},
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(analysis.Swaps) != 1 {
		t.Fatalf("got %d swaps, want 1", len(analysis.Swaps))
	}

	swap := analysis.Swaps[0]
	if swap.AlternativesFound != 2 || len(swap.Alternatives) != 2 {
		t.Fatalf("alternatives = %d (found %d), want 2", len(swap.Alternatives), swap.AlternativesFound)
	}
	// Both drop the rate to 0.10; the cheaper VN set scores higher.
	if swap.Alternatives[0].Country != "VN" || swap.Alternatives[1].Country != "MX" {
		t.Errorf("alternative order = %q, %q, want VN then MX",
			swap.Alternatives[0].Country, swap.Alternatives[1].Country)
	}
	if swap.Alternatives[0].Score <= swap.Alternatives[1].Score {
		t.Errorf("scores not descending: %v then %v",
			swap.Alternatives[0].Score, swap.Alternatives[1].Score)
	}
	// VN: 70 price savings + (275 - 43) tariff savings.
	if !almostEqual(swap.PotentialSaved, 302) {
		t.Errorf("PotentialSaved = %v, want 302", swap.PotentialSaved)
	}
	if !almostEqual(analysis.Summary.PotentialSavings, 302) {
		t.Errorf("Summary.PotentialSavings = %v, want 302", analysis.Summary.PotentialSavings)
	}
	if analysis.Summary.SwapCount != 1 {
		t.Errorf("Summary.SwapCount = %d, want 1", analysis.Summary.SwapCount)
	}
}

func TestAnalyzeCartSwapKnobs(t *testing.T) {
	catalog := []domain.CandidateProduct{
		{Title: "55 inch 4K Smart TV (Mexico assembled)", Price: 450, Country: "MX", Source: "catalog"},
		{Title: "55 inch 4K Smart TV (Vietnam assembled)", Price: 430, Country: "VN", Source: "catalog"},
		{Title: "Cotton sweater (US milled)", Price: 45, Country: "US", Source: "catalog"},
	}
	a := newTestAnalyzer(t, catalog)
	ctx := context.Background()

	analysis, err := a.Analyze(ctx, "tenant-001", &domain.CartRequest{
		Items: []domain.CartItem{
			{Name: "55 inch 4K Smart TV", Price: 500},
			{Name: "Cotton sweater", Price: 50},
		},
		MaxSwaps:    1,
		AltsPerSwap: 1,
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(analysis.Swaps) != 1 {
		t.Fatalf("got %d swaps, want 1 with maxSwaps=1", len(analysis.Swaps))
	}
	swap := analysis.Swaps[0]
	if swap.ItemName != "55 inch 4K Smart TV" {
		t.Errorf("swap item = %q, want the highest-tariff line", swap.ItemName)
	}
	if len(swap.Alternatives) != 1 {
		t.Errorf("got %d alternatives, want 1 with altsPerSwap=1", len(swap.Alternatives))
	}
}

// failingSearcher simulates a search backend outage.
type failingSearcher struct{}

func (failingSearcher) Search(ctx context.Context, req *domain.SearchRequest) ([]domain.CandidateProduct, error) {
	return nil, domain.ErrSearchFailed
}

func TestAnalyzeCartSearchFailure(t *testing.T) {
	a := newTestAnalyzerWith(t, failingSearcher{})
	ctx := context.Background()

	analysis, err := a.Analyze(ctx, "tenant-001", &domain.CartRequest{
		Items: []domain.CartItem{{Name: "55 inch 4K Smart TV", Price: 500}},
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(analysis.Swaps) != 1 {
		t.Fatalf("got %d swaps, want 1", len(analysis.Swaps))
	}

	swap := analysis.Swaps[0]
	if swap.AlternativesFound != 0 || len(swap.Alternatives) != 0 {
		t.Errorf("unexpected alternatives after search failure: %+v", swap.Alternatives)
	}
	// A dead searcher reads the same as an empty result set.
	if swap.Verdict == nil || swap.Verdict.Tier != domain.VerdictNone {
		t.Errorf("verdict = %+v, want none tier", swap.Verdict)
	}
}

func TestSummarizeZeroSpendGroup(t *testing.T) {
	items := []domain.AnalyzedItem{
		{
			Name:     "Promo giveaway",
			Price:    0,
			Quantity: 1,
			Classification: domain.Classification{
				HTSCode:         "9503.00.00",
				CountryOfOrigin: "CN",
				Category:        domain.CategoryToys,
			},
			Tariff: &domain.TariffResult{},
			Impact: &domain.PriceImpact{},
		},
	}

	summary := summarize(items)
	if len(summary.ByCountry) != 1 {
		t.Fatalf("ByCountry has %d buckets, want 1", len(summary.ByCountry))
	}
	if summary.ByCountry[0].AvgTariffRate != 0 {
		t.Errorf("AvgTariffRate = %v, want 0 on zero spend", summary.ByCountry[0].AvgTariffRate)
	}
}
