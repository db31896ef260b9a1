package cart

import (
	"fmt"
	"sort"

	"github.com/tariffshield/harrier/internal/domain"
)

// summarize rolls analyzed items up into cart totals. Failed items are
// counted but contribute nothing to the money columns.
func summarize(items []domain.AnalyzedItem) domain.CartSummary {
	summary := domain.CartSummary{TotalItems: len(items)}

	byCategory := make(map[string]*domain.GroupTotal)
	byCountry := make(map[string]*domain.GroupTotal)

	for i := range items {
		it := &items[i]
		if it.Err != "" {
			summary.FailedItems++
			continue
		}
		summary.AnalyzedItems++

		lineTotal := it.LineTotal()
		youPay := it.TariffYouPay()
		qty := it.Quantity
		if qty < 1 {
			qty = 1
		}
		nominal := domain.RoundCents(it.Tariff.TotalTariffAmount * float64(qty))

		summary.CartTotal += lineTotal
		summary.TotalTariffAmount += nominal
		summary.TotalTariffYouPay += youPay

		accumulate(byCategory, it.Classification.Category, domain.CategoryLabel(it.Classification.Category), lineTotal, youPay)
		accumulate(byCountry, it.Classification.CountryOfOrigin, domain.CountryName(it.Classification.CountryOfOrigin), lineTotal, youPay)

		if youPay > summary.HighestItemCost {
			summary.HighestItem = it.Name
			summary.HighestItemCost = youPay
		}
	}

	summary.CartTotal = domain.RoundCents(summary.CartTotal)
	summary.TotalTariffAmount = domain.RoundCents(summary.TotalTariffAmount)
	summary.TotalTariffYouPay = domain.RoundCents(summary.TotalTariffYouPay)
	if summary.CartTotal > 0 {
		summary.EffectiveRate = summary.TotalTariffYouPay / summary.CartTotal
	}

	summary.ByCategory = sortGroups(byCategory)
	summary.ByCountry = sortGroups(byCountry)
	for i := range summary.ByCountry {
		if g := &summary.ByCountry[i]; g.Spend > 0 {
			g.AvgTariffRate = g.TariffYouPay / g.Spend
		}
	}
	return summary
}

func accumulate(groups map[string]*domain.GroupTotal, key, label string, spend, youPay float64) {
	g, ok := groups[key]
	if !ok {
		g = &domain.GroupTotal{Key: key, Label: label}
		groups[key] = g
	}
	g.ItemCount++
	g.Spend = domain.RoundCents(g.Spend + spend)
	g.TariffYouPay = domain.RoundCents(g.TariffYouPay + youPay)
}

// sortGroups orders buckets by consumer tariff, largest first. Key
// order breaks ties so output is deterministic.
func sortGroups(groups map[string]*domain.GroupTotal) []domain.GroupTotal {
	out := make([]domain.GroupTotal, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TariffYouPay != out[j].TariffYouPay {
			return out[i].TariffYouPay > out[j].TariffYouPay
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// headline produces the one-line takeaway for a cart.
func headline(s domain.CartSummary) string {
	if s.AnalyzedItems == 0 {
		return "No items could be analyzed."
	}
	if s.CartTotal <= 0 || s.TotalTariffYouPay <= 0 {
		return "No meaningful tariff cost detected in this cart."
	}
	pct := s.TotalTariffYouPay / s.CartTotal * 100
	switch {
	case pct >= 30:
		return fmt.Sprintf("Tariffs add $%.2f to this cart, a huge %.0f%% of what you pay.", s.TotalTariffYouPay, pct)
	case pct >= 15:
		return fmt.Sprintf("Tariffs add $%.2f to this cart (%.0f%% of the total).", s.TotalTariffYouPay, pct)
	case pct >= 5:
		return fmt.Sprintf("Tariffs add $%.2f to this cart (%.0f%%).", s.TotalTariffYouPay, pct)
	default:
		return fmt.Sprintf("Minimal tariff impact on this cart: $%.2f (%.1f%%).", s.TotalTariffYouPay, pct)
	}
}
