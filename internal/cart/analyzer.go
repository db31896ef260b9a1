// Package cart analyzes a shopping cart: every line is classified and
// priced concurrently, then rolled up into totals and swap suggestions.
package cart

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/tariffshield/harrier/internal/alternatives"
	"github.com/tariffshield/harrier/internal/domain"
	"github.com/tariffshield/harrier/internal/passthrough"
	"github.com/tariffshield/harrier/internal/tariff"
)

// Analyzer runs cart analyses. Item analysis fans out over a bounded
// worker pool; one failed item never fails the cart.
type Analyzer struct {
	classifier domain.Classifier
	calc       *tariff.Calculator
	model      *passthrough.Model
	searcher   domain.Searcher
	scorer     *alternatives.Scorer
	cache      domain.Cache

	maxWorkers  int
	itemTimeout time.Duration
	maxSwaps    int
	altsPerSwap int
	classifyTTL time.Duration
	version     string
}

// NewAnalyzer wires a cart analyzer. The cache may be nil; classification
// caching is then skipped.
func NewAnalyzer(
	classifier domain.Classifier,
	calc *tariff.Calculator,
	model *passthrough.Model,
	searcher domain.Searcher,
	scorer *alternatives.Scorer,
	cache domain.Cache,
	cfg domain.EngineConfig,
	version string,
) (*Analyzer, error) {
	if classifier == nil || calc == nil || model == nil {
		return nil, fmt.Errorf("classifier, calculator and passthrough model are required")
	}
	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 8
	}
	itemTimeout := cfg.ItemTimeout
	if itemTimeout <= 0 {
		itemTimeout = 10 * time.Second
	}
	maxSwaps := cfg.MaxSwaps
	if maxSwaps <= 0 {
		maxSwaps = 3
	}
	altsPerSwap := cfg.AltsPerSwap
	if altsPerSwap <= 0 {
		altsPerSwap = 2
	}
	return &Analyzer{
		classifier:  classifier,
		calc:        calc,
		model:       model,
		searcher:    searcher,
		scorer:      scorer,
		cache:       cache,
		maxWorkers:  maxWorkers,
		itemTimeout: itemTimeout,
		maxSwaps:    maxSwaps,
		altsPerSwap: altsPerSwap,
		classifyTTL: cfg.ClassifyCacheTTL,
		version:     version,
	}, nil
}

// Analyze processes all cart items concurrently and aggregates the
// results. Failed items are kept in the output with an error marker and
// excluded from totals.
func (a *Analyzer) Analyze(ctx context.Context, tenantID string, req *domain.CartRequest) (*domain.CartAnalysis, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", domain.ErrInvalidInput)
	}
	if req == nil || len(req.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}

	start := time.Now()

	items := a.analyzeItems(ctx, tenantID, req.Items)
	itemsMs := time.Since(start).Milliseconds()

	summary := summarize(items)

	maxSwaps := a.maxSwaps
	if req.MaxSwaps > 0 {
		maxSwaps = req.MaxSwaps
	}
	altsPerSwap := a.altsPerSwap
	if req.AltsPerSwap > 0 {
		altsPerSwap = req.AltsPerSwap
	}

	swapStart := time.Now()
	swaps := a.suggestSwaps(ctx, items, maxSwaps, altsPerSwap)
	swapsMs := time.Since(swapStart).Milliseconds()

	summary.SwapCount = len(swaps)
	var savings float64
	for i := range swaps {
		savings += swaps[i].PotentialSaved
	}
	summary.PotentialSavings = domain.RoundCents(savings)

	analysis := &domain.CartAnalysis{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Timestamp: time.Now().UTC(),
		Items:     items,
		Summary:   summary,
		Swaps:     swaps,
		Headline:  headline(summary),
		Metadata: domain.CartMetadata{
			ItemsMs:       itemsMs,
			SwapsMs:       swapsMs,
			TotalMs:       time.Since(start).Milliseconds(),
			Workers:       a.maxWorkers,
			EngineVersion: a.version,
		},
	}

	slog.Info("cart analyzed",
		"tenant_id", tenantID,
		"cart_id", analysis.ID,
		"items", summary.TotalItems,
		"failed", summary.FailedItems,
		"tariff_you_pay", summary.TotalTariffYouPay,
		"duration_ms", analysis.Metadata.TotalMs,
	)

	return analysis, nil
}

// analyzeItems fans item analysis out over a semaphore-bounded pool.
// Results keep the input order regardless of completion order.
func (a *Analyzer) analyzeItems(ctx context.Context, tenantID string, items []domain.CartItem) []domain.AnalyzedItem {
	results := make([]domain.AnalyzedItem, len(items))
	sem := make(chan struct{}, a.maxWorkers)
	done := make(chan int, len(items))

	for i := range items {
		sem <- struct{}{}
		go func(idx int) {
			defer func() { <-sem }()

			itemCtx, cancel := context.WithTimeout(ctx, a.itemTimeout)
			defer cancel()

			results[idx] = a.analyzeItem(itemCtx, tenantID, items[idx])
			done <- idx
		}(i)
	}

	for range items {
		<-done
	}
	return results
}

// analyzeItem runs the classify-compute-impact chain for one line.
// Every failure mode is captured in the Err marker.
func (a *Analyzer) analyzeItem(ctx context.Context, tenantID string, item domain.CartItem) domain.AnalyzedItem {
	out := domain.AnalyzedItem{
		Name:     item.Name,
		Price:    item.Price,
		Quantity: item.Quantity,
	}
	if out.Quantity < 1 {
		out.Quantity = 1
	}

	cl, err := a.classifyItem(ctx, tenantID, item)
	if err != nil {
		out.Err = "classification_error: " + err.Error()
		return out
	}
	out.Classification = *cl

	res, err := a.calc.Compute(cl.HTSCode, cl.CountryOfOrigin, item.Price)
	if err != nil {
		out.Err = "tariff_error: " + err.Error()
		return out
	}
	out.Tariff = res
	if out.Classification.Category == "" {
		out.Classification.Category = res.Category
	}

	impact, err := a.model.Impact(a.calc.Policy(), res, item.Price)
	if err != nil {
		out.Err = "impact_error: " + err.Error()
		return out
	}
	out.Impact = impact

	return out
}

// classifyItem resolves the item's trade identity, honoring overrides
// and the classification cache.
func (a *Analyzer) classifyItem(ctx context.Context, tenantID string, item domain.CartItem) (*domain.Classification, error) {
	if item.HTSCode != "" {
		// Category is backfilled from the tariff result.
		cl := &domain.Classification{
			HTSCode:         item.HTSCode,
			CountryOfOrigin: domain.NormalizeCountry(item.Country),
			Confidence:      domain.ConfidenceHigh,
		}
		return cl, nil
	}

	if a.cache != nil {
		if cached, err := a.cache.GetClassification(ctx, tenantID, item.Name); err == nil && cached != nil {
			return a.applyCountryOverride(cached, item.Country), nil
		}
	}

	cl, err := a.classifier.Classify(ctx, item.Name)
	if err != nil {
		return nil, err
	}

	if a.cache != nil {
		_ = a.cache.SetClassification(ctx, tenantID, item.Name, cl, a.classifyTTL)
	}

	return a.applyCountryOverride(cl, item.Country), nil
}

func (a *Analyzer) applyCountryOverride(cl *domain.Classification, country string) *domain.Classification {
	if country == "" {
		return cl
	}
	override := *cl
	override.CountryOfOrigin = domain.NormalizeCountry(country)
	return &override
}

// suggestSwaps picks the successful items with the largest consumer
// tariff and searches for better-sourced alternatives for each. Every
// selected item yields a suggestion, even when nothing beats it.
func (a *Analyzer) suggestSwaps(ctx context.Context, items []domain.AnalyzedItem, maxSwaps, altsPerSwap int) []domain.SwapSuggestion {
	if a.searcher == nil || a.scorer == nil {
		return nil
	}

	candidates := make([]*domain.AnalyzedItem, 0, len(items))
	for i := range items {
		if items[i].Err == "" && items[i].TariffYouPay() > 0 {
			candidates = append(candidates, &items[i])
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].TariffYouPay() > candidates[j].TariffYouPay()
	})
	if len(candidates) > maxSwaps {
		candidates = candidates[:maxSwaps]
	}

	swaps := make([]domain.SwapSuggestion, 0, len(candidates))
	for _, item := range candidates {
		swap := domain.SwapSuggestion{
			ItemName:     item.Name,
			ItemPrice:    item.Price,
			TariffYouPay: item.TariffYouPay(),
		}
		baseline := alternatives.Baseline{
			HTSCode:      item.Classification.HTSCode,
			Price:        item.Price,
			TariffRate:   item.Tariff.TotalRate,
			TariffAmount: item.Tariff.TotalTariffAmount,
			TariffYouPay: item.Impact.TariffYouPay,
		}

		found, err := a.searcher.Search(ctx, &domain.SearchRequest{Query: item.Name})
		if err != nil {
			slog.Warn("swap search failed", "item", item.Name, "error", err)
			swap.Verdict = alternatives.Verdict(nil, baseline)
			swaps = append(swaps, swap)
			continue
		}

		ranked, err := a.scorer.Rank(ctx, baseline, found, altsPerSwap)
		if err != nil || len(ranked) == 0 {
			swap.Verdict = alternatives.Verdict(nil, baseline)
			swaps = append(swaps, swap)
			continue
		}

		swap.Alternatives = ranked
		swap.AlternativesFound = len(ranked)
		best := &ranked[0]
		swap.Verdict = alternatives.Verdict(best, baseline)
		saved := best.PriceSavings + best.TariffSavings
		if saved < 0 {
			saved = 0
		}
		swap.PotentialSaved = domain.RoundCents(saved)
		swaps = append(swaps, swap)
	}

	return swaps
}
