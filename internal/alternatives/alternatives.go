// Package alternatives enriches and ranks substitute products against
// a baseline.
package alternatives

import (
	"context"
	"fmt"
	"sort"

	"github.com/tariffshield/harrier/internal/domain"
	"github.com/tariffshield/harrier/internal/tariff"
)

// rateEpsilon guards the tariff-savings fraction when the baseline
// rate is zero.
const rateEpsilon = 1e-9

// Score weights: price savings dominate, tariff savings break the
// near-ties.
const (
	priceWeight  = 0.6
	tariffWeight = 0.4
)

// Baseline is the product the candidates compete against.
type Baseline struct {
	HTSCode      string
	Price        float64
	TariffRate   float64
	TariffAmount float64
	TariffYouPay float64
}

// Scorer ranks candidates by a composite of price and tariff savings.
// Candidates share the baseline's HTS code; only origin and price vary.
type Scorer struct {
	calc *tariff.Calculator
}

// NewScorer wires a scorer to the calculator.
func NewScorer(calc *tariff.Calculator) *Scorer {
	return &Scorer{calc: calc}
}

// Rank enriches candidates with their own tariff burden, drops ones
// that beat the baseline on neither axis, and returns the best ones
// first. Candidates the calculator rejects are skipped, not fatal.
func (s *Scorer) Rank(ctx context.Context, baseline Baseline, candidates []domain.CandidateProduct, limit int) ([]domain.CandidateProduct, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kept := make([]domain.CandidateProduct, 0, len(candidates))
	for _, cand := range candidates {
		res, err := s.calc.Compute(baseline.HTSCode, cand.Country, cand.Price)
		if err != nil {
			continue
		}
		cand.TariffRate = res.TotalRate
		cand.TariffAmount = res.TotalTariffAmount

		cheaper := cand.Price < baseline.Price
		lowerRate := cand.TariffRate < baseline.TariffRate
		if !cheaper && !lowerRate {
			continue
		}

		cand.PriceSavings = domain.RoundCents(baseline.Price - cand.Price)
		cand.TariffSavings = domain.RoundCents(baseline.TariffAmount - cand.TariffAmount)
		cand.Score = score(baseline, cand)
		cand.Reason = reason(cand, cheaper, lowerRate)
		kept = append(kept, cand)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return rankLess(kept[i], kept[j])
	})

	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	return kept, nil
}

// rankLess orders candidates best first: higher composite score, then
// larger dollar price savings, then lower tariff rate.
func rankLess(a, b domain.CandidateProduct) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.PriceSavings != b.PriceSavings {
		return a.PriceSavings > b.PriceSavings
	}
	return a.TariffRate < b.TariffRate
}

// score blends the two savings fractions. Each fraction clamps at
// zero so a candidate cannot ride a deficit on one axis into a higher
// composite.
func score(baseline Baseline, cand domain.CandidateProduct) float64 {
	var priceFrac float64
	if baseline.Price > 0 {
		priceFrac = (baseline.Price - cand.Price) / baseline.Price
	}
	if priceFrac < 0 {
		priceFrac = 0
	}

	denom := baseline.TariffRate
	if denom < rateEpsilon {
		denom = rateEpsilon
	}
	tariffFrac := (baseline.TariffRate - cand.TariffRate) / denom
	if tariffFrac < 0 {
		tariffFrac = 0
	}

	return priceWeight*priceFrac + tariffWeight*tariffFrac
}

func reason(cand domain.CandidateProduct, cheaper, lowerRate bool) string {
	origin := domain.CountryName(cand.Country)
	switch {
	case cheaper && lowerRate:
		return fmt.Sprintf("Cheaper and lower tariff from %s", origin)
	case lowerRate:
		return fmt.Sprintf("Lower tariff exposure from %s", origin)
	default:
		return "Lower list price"
	}
}

// Verdict grades the best candidate's savings against the baseline's
// consumer tariff cost.
func Verdict(best *domain.CandidateProduct, baseline Baseline) *domain.SwapVerdict {
	if best == nil {
		return &domain.SwapVerdict{
			Tier:    domain.VerdictNone,
			Message: "No better-sourced alternative found.",
		}
	}
	saved := best.PriceSavings + best.TariffSavings
	if saved < 0 {
		saved = 0
	}
	base := baseline.Price + baseline.TariffAmount
	var pct float64
	if base > 0 {
		pct = saved / base * 100
	}

	v := &domain.SwapVerdict{SavingsPct: pct, BestSavings: domain.RoundCents(saved)}
	switch {
	case pct >= 50:
		v.Tier = domain.VerdictStrong
		v.Message = fmt.Sprintf("Strong swap: save %.0f%% by switching.", pct)
	case pct >= 20:
		v.Tier = domain.VerdictGood
		v.Message = fmt.Sprintf("Good swap: save %.0f%% by switching.", pct)
	default:
		v.Tier = domain.VerdictMarginal
		v.Message = fmt.Sprintf("Marginal swap: about %.0f%% savings.", pct)
	}
	return v
}

// Headline produces the one-line takeaway for an analysis.
func Headline(tariffYouPay, price float64) string {
	if price <= 0 || tariffYouPay <= 0 {
		return "No meaningful tariff cost detected in this price."
	}
	pct := tariffYouPay / price * 100
	switch {
	case pct >= 30:
		return fmt.Sprintf("Tariffs make up a huge share of this price: you pay $%.2f (%.0f%%).", tariffYouPay, pct)
	case pct >= 15:
		return fmt.Sprintf("Tariffs add a lot here: $%.2f of the price (%.0f%%).", tariffYouPay, pct)
	case pct >= 5:
		return fmt.Sprintf("Tariffs add $%.2f to this price (%.0f%%).", tariffYouPay, pct)
	default:
		return fmt.Sprintf("Minimal tariff impact: $%.2f (%.1f%%).", tariffYouPay, pct)
	}
}
